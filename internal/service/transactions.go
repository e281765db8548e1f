package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"barreldrop/backend/internal/domain"
	"barreldrop/backend/internal/money"
	"barreldrop/backend/internal/stock"
	"barreldrop/backend/internal/store"
	"barreldrop/backend/internal/xid"
)

// pricedLines is the planning result for one sale or credit request: the
// priced line items plus the lot deductions that back them. Nothing is
// written to the store during planning.
type pricedLines struct {
	lines      []domain.LineItem
	deductions []domain.LotDeduction
	revenue    float64
	cost       float64
}

// priceLines resolves, validates and FIFO-allocates every request line. A
// single plan is shared across lines so two lines for the same item see each
// other's staged consumption.
func (s *Service) priceLines(ctx context.Context, reqLines []domain.SaleLineRequest) (pricedLines, error) {
	if len(reqLines) == 0 {
		return pricedLines{}, fmt.Errorf("%w: at least one line is required", store.ErrInvalidRequest)
	}

	plan := stock.NewPlan()
	out := pricedLines{lines: make([]domain.LineItem, 0, len(reqLines))}

	for i, line := range reqLines {
		if strings.TrimSpace(line.ItemID) == "" {
			return pricedLines{}, fmt.Errorf("%w: line %d: item_id is required", store.ErrInvalidRequest, i+1)
		}
		if !finitePositive(line.Quantity) || line.Quantity <= stock.Epsilon {
			return pricedLines{}, fmt.Errorf("%w: line %d: quantity must be a positive number", store.ErrInvalidRequest, i+1)
		}

		item, err := s.repo.GetItem(ctx, line.ItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return pricedLines{}, fmt.Errorf("%w: item %s", store.ErrNotFound, line.ItemID)
			}
			return pricedLines{}, err
		}
		if item.Status == domain.ItemStatusFrozen {
			return pricedLines{}, fmt.Errorf("%w: %s", store.ErrItemFrozen, item.Name)
		}

		lots, err := s.repo.ListOpenLots(ctx, item.ID)
		if err != nil {
			return pricedLines{}, err
		}

		alloc := plan.Allocate(lots, line.Quantity)
		if alloc.Remaining > 0 {
			return pricedLines{}, fmt.Errorf("%w: %s", store.ErrInsufficientStock, item.Name)
		}

		unitPrice := money.RoundMoney(item.SellingPrice)
		lineTotal := money.RoundMoney(line.Quantity * unitPrice)
		lineCost := money.RoundMoney(alloc.LineCost)
		unitCost := money.Round(alloc.LineCost/line.Quantity, 4)

		out.lines = append(out.lines, domain.LineItem{
			ItemID:    item.ID,
			ItemName:  item.Name,
			ItemSKU:   item.SKU,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
			UnitCost:  unitCost,
			LineTotal: lineTotal,
			LineCost:  lineCost,
		})
		out.revenue = money.RoundMoney(out.revenue + lineTotal)
		out.cost = money.RoundMoney(out.cost + lineCost)
	}

	out.deductions = plan.Deductions()
	return out, nil
}

func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Sale{}, ErrForbidden
	}

	priced, err := s.priceLines(ctx, req.Lines)
	if err != nil {
		return domain.Sale{}, err
	}

	applier := stock.NewApplier(s.repo)
	if err := applier.Apply(ctx, priced.deductions); err != nil {
		return domain.Sale{}, err
	}

	sale := domain.Sale{
		ID:           xid.New("sale"),
		Lines:        priced.lines,
		TotalRevenue: priced.revenue,
		TotalCost:    priced.cost,
		Profit:       money.RoundMoney(priced.revenue - priced.cost),
		SoldAt:       time.Now().UTC(),
		CreatedBy:    actor.ID,
		Notes:        strings.TrimSpace(req.Notes),
	}
	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		applier.Rollback(ctx)
		return domain.Sale{}, err
	}
	applier.Commit()

	s.invalidateReports(ctx)
	s.logAudit(ctx, "sale_create", "sale", created.ID, fmt.Sprintf("revenue=%.2f,lines=%d", created.TotalRevenue, len(created.Lines)))
	return created, nil
}

// listScope returns the created_by filter for the calling actor: admins see
// every record, everyone else only their own.
func (s *Service) listScope(ctx context.Context) (string, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return "", ErrForbidden
	}
	if actor.Role == domain.RoleAdmin {
		return "", nil
	}
	return actor.ID, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	if actor, ok := ActorFromContext(ctx); !ok || (actor.Role != domain.RoleAdmin && sale.CreatedBy != actor.ID) {
		return domain.Sale{}, ErrForbidden
	}
	return sale, nil
}

func (s *Service) ListSales(ctx context.Context, from, to time.Time) ([]domain.Sale, error) {
	scope, err := s.listScope(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, from, to, scope)
}

func (s *Service) CreateCredit(ctx context.Context, req domain.CreditCreateRequest) (domain.Credit, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Credit{}, ErrForbidden
	}

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.CustomerName == "" {
		return domain.Credit{}, fmt.Errorf("%w: customer_name is required", store.ErrInvalidRequest)
	}

	priced, err := s.priceLines(ctx, req.Lines)
	if err != nil {
		return domain.Credit{}, err
	}

	applier := stock.NewApplier(s.repo)
	if err := applier.Apply(ctx, priced.deductions); err != nil {
		return domain.Credit{}, err
	}

	credit := domain.Credit{
		ID:              xid.New("credit"),
		CustomerName:    req.CustomerName,
		CustomerContact: strings.TrimSpace(req.CustomerContact),
		Notes:           strings.TrimSpace(req.Notes),
		Lines:           priced.lines,
		TotalAmount:     priced.revenue,
		TotalCost:       priced.cost,
		Status:          domain.CreditStatusOpen,
		CreditedAt:      time.Now().UTC(),
		CreatedBy:       actor.ID,
	}
	created, err := s.repo.CreateCredit(ctx, credit)
	if err != nil {
		applier.Rollback(ctx)
		return domain.Credit{}, err
	}
	applier.Commit()

	s.logAudit(ctx, "credit_create", "credit", created.ID, fmt.Sprintf("customer=%s,amount=%.2f", created.CustomerName, created.TotalAmount))
	return created, nil
}

func (s *Service) GetCredit(ctx context.Context, id string) (domain.Credit, error) {
	credit, err := s.repo.GetCredit(ctx, id)
	if err != nil {
		return domain.Credit{}, err
	}
	if actor, ok := ActorFromContext(ctx); !ok || (actor.Role != domain.RoleAdmin && credit.CreatedBy != actor.ID) {
		return domain.Credit{}, ErrForbidden
	}
	return credit, nil
}

func (s *Service) ListCredits(ctx context.Context, status string, from, to time.Time) ([]domain.Credit, error) {
	if status != "" && status != domain.CreditStatusOpen && status != domain.CreditStatusConverted {
		return nil, store.ErrInvalidRequest
	}
	scope, err := s.listScope(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCredits(ctx, status, scope, from, to)
}

// ConvertCredit turns an open credit into a sale exactly once. Stock was
// already deducted when the credit was created, so conversion only copies
// the priced lines; the lock flag keeps concurrent conversions out, and a
// failed finalize deletes the sale it created.
func (s *Service) ConvertCredit(ctx context.Context, creditID string) (domain.CreditConversionResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.CreditConversionResponse{}, ErrForbidden
	}

	// Only the credit's creator or an admin may convert it. The lock below
	// is still the authority on the credit's state; this read only gates.
	credit, err := s.repo.GetCredit(ctx, creditID)
	if err != nil {
		return domain.CreditConversionResponse{}, err
	}
	if actor.Role != domain.RoleAdmin && credit.CreatedBy != actor.ID {
		return domain.CreditConversionResponse{}, ErrForbidden
	}

	if err := s.repo.LockCreditForConversion(ctx, creditID); err != nil {
		if errors.Is(err, store.ErrConversionConflict) {
			return domain.CreditConversionResponse{}, s.classifyLockFailure(ctx, creditID)
		}
		return domain.CreditConversionResponse{}, err
	}

	credit, err = s.repo.GetCredit(ctx, creditID)
	if err != nil {
		s.releaseConversion(ctx, creditID)
		return domain.CreditConversionResponse{}, err
	}

	notes := fmt.Sprintf("Converted from credit %s", credit.ID)
	if credit.Notes != "" {
		notes = fmt.Sprintf("%s: %s", notes, credit.Notes)
	}

	now := time.Now().UTC()
	sale := domain.Sale{
		ID:           xid.New("sale"),
		Lines:        credit.Lines,
		TotalRevenue: credit.TotalAmount,
		TotalCost:    credit.TotalCost,
		Profit:       money.RoundMoney(credit.TotalAmount - credit.TotalCost),
		SoldAt:       now,
		CreatedBy:    actor.ID,
		Notes:        notes,
	}
	createdSale, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		s.releaseConversion(ctx, creditID)
		return domain.CreditConversionResponse{}, err
	}

	if err := s.repo.FinalizeCreditConversion(ctx, creditID, createdSale.ID, actor.ID, now); err != nil {
		if delErr := s.repo.DeleteSale(ctx, createdSale.ID); delErr != nil {
			log.Printf("[service] WARN: failed to delete sale %s after finalize failure: %v", createdSale.ID, delErr)
		}
		s.releaseConversion(ctx, creditID)
		if errors.Is(err, store.ErrConversionConflict) {
			return domain.CreditConversionResponse{}, store.ErrConversionInProgress
		}
		return domain.CreditConversionResponse{}, err
	}

	s.invalidateReports(ctx)
	s.logAudit(ctx, "credit_convert", "credit", creditID, "sale="+createdSale.ID)
	return domain.CreditConversionResponse{CreditID: creditID, SaleID: createdSale.ID}, nil
}

// classifyLockFailure re-reads the credit after a failed lock so the caller
// learns whether the credit was already converted or is mid-conversion.
func (s *Service) classifyLockFailure(ctx context.Context, creditID string) error {
	credit, err := s.repo.GetCredit(ctx, creditID)
	if err != nil {
		return err
	}
	if credit.Status == domain.CreditStatusConverted {
		return store.ErrAlreadyConverted
	}
	if credit.ConversionInProgress {
		return store.ErrConversionInProgress
	}
	return store.ErrConversionConflict
}

func (s *Service) releaseConversion(ctx context.Context, creditID string) {
	if err := s.repo.ReleaseCreditConversion(ctx, creditID); err != nil {
		log.Printf("[service] WARN: failed to release conversion lock on credit %s: %v", creditID, err)
	}
}
