// Package service implements the business operations over the repository:
// catalog management, stock receiving, FIFO-costed sales and credits, credit
// conversion and reporting.
package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"barreldrop/backend/internal/cache"
	"barreldrop/backend/internal/domain"
	"barreldrop/backend/internal/store"
	"barreldrop/backend/internal/xid"
)

// ErrForbidden indicates the caller lacks the role the operation requires.
var ErrForbidden = errors.New("admin role required")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo    store.Repository
	reports cache.ReportCache
}

func New(repo store.Repository, reports cache.ReportCache) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	return &Service{repo: repo, reports: reports}
}

func (s *Service) requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (domain.Item, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Item{}, err
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	if req.SKU == "" || req.Name == "" || req.Category == "" {
		return domain.Item{}, store.ErrInvalidRequest
	}
	if !finiteNonNegative(req.BuyingPrice) || !finiteNonNegative(req.SellingPrice) || !finiteNonNegative(req.ReorderLevel) {
		return domain.Item{}, store.ErrInvalidRequest
	}
	if req.ABV < 0 || req.ABV > 100 {
		return domain.Item{}, store.ErrInvalidRequest
	}

	actor, _ := ActorFromContext(ctx)
	now := time.Now().UTC()
	item := domain.Item{
		ID:           xid.New("item"),
		Name:         req.Name,
		SKU:          req.SKU,
		Category:     req.Category,
		Size:         strings.TrimSpace(req.Size),
		ABV:          req.ABV,
		BuyingPrice:  req.BuyingPrice,
		SellingPrice: req.SellingPrice,
		Status:       domain.ItemStatusActive,
		ReorderLevel: req.ReorderLevel,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return domain.Item{}, err
	}

	s.logAudit(ctx, "item_create", "item", created.ID, fmt.Sprintf("sku=%s,name=%s", created.SKU, created.Name))
	return created, nil
}

func (s *Service) GetItem(ctx context.Context, id string) (domain.Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *Service) ListItems(ctx context.Context) ([]domain.ItemWithAvailability, error) {
	return s.repo.ListItems(ctx)
}

func (s *Service) UpdateItem(ctx context.Context, id string, req domain.ItemUpdateRequest) (domain.Item, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Item{}, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return domain.Item{}, store.ErrInvalidRequest
	}
	for _, v := range []*float64{req.BuyingPrice, req.SellingPrice, req.ReorderLevel} {
		if v != nil && !finiteNonNegative(*v) {
			return domain.Item{}, store.ErrInvalidRequest
		}
	}
	if req.ABV != nil && (*req.ABV < 0 || *req.ABV > 100) {
		return domain.Item{}, store.ErrInvalidRequest
	}

	updated, err := s.repo.UpdateItem(ctx, id, req)
	if err != nil {
		return domain.Item{}, err
	}
	s.logAudit(ctx, "item_update", "item", updated.ID, "")
	return updated, nil
}

func (s *Service) SetItemStatus(ctx context.Context, id string, status string) (domain.Item, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Item{}, err
	}
	if status != domain.ItemStatusActive && status != domain.ItemStatusFrozen {
		return domain.Item{}, store.ErrInvalidRequest
	}

	updated, err := s.repo.SetItemStatus(ctx, id, status)
	if err != nil {
		return domain.Item{}, err
	}
	s.logAudit(ctx, "item_status", "item", updated.ID, "status="+status)
	return updated, nil
}

// BulkImportItems reads a CSV with columns name,sku,category,size,abv,
// buying_price,selling_price,reorder_level and upserts by SKU.
func (s *Service) BulkImportItems(ctx context.Context, r io.Reader) (domain.ItemBulkImportResult, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.ItemBulkImportResult{}, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return domain.ItemBulkImportResult{}, store.ErrInvalidRequest
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"name", "sku", "category", "buying_price", "selling_price"} {
		if _, ok := col[required]; !ok {
			return domain.ItemBulkImportResult{}, fmt.Errorf("%w: missing column %s", store.ErrInvalidRequest, required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	numField := func(record []string, name string) (float64, error) {
		raw := field(record, name)
		if raw == "" {
			return 0, nil
		}
		return strconv.ParseFloat(raw, 64)
	}

	var result domain.ItemBulkImportResult
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, fmt.Errorf("%w: row %d: %v", store.ErrInvalidRequest, line, err)
		}
		line++

		sku := strings.ToUpper(field(record, "sku"))
		name := field(record, "name")
		category := field(record, "category")
		if sku == "" || name == "" || category == "" {
			return result, fmt.Errorf("%w: row %d: name, sku and category are required", store.ErrInvalidRequest, line)
		}
		abv, err := numField(record, "abv")
		if err != nil {
			return result, fmt.Errorf("%w: row %d: bad abv", store.ErrInvalidRequest, line)
		}
		buying, err := numField(record, "buying_price")
		if err != nil || !finiteNonNegative(buying) {
			return result, fmt.Errorf("%w: row %d: bad buying_price", store.ErrInvalidRequest, line)
		}
		selling, err := numField(record, "selling_price")
		if err != nil || !finiteNonNegative(selling) {
			return result, fmt.Errorf("%w: row %d: bad selling_price", store.ErrInvalidRequest, line)
		}
		reorder, err := numField(record, "reorder_level")
		if err != nil || !finiteNonNegative(reorder) {
			return result, fmt.Errorf("%w: row %d: bad reorder_level", store.ErrInvalidRequest, line)
		}
		size := field(record, "size")

		existing, err := s.repo.GetItemBySKU(ctx, sku)
		switch {
		case err == nil:
			update := domain.ItemUpdateRequest{
				Name:         &name,
				Category:     &category,
				Size:         &size,
				ABV:          &abv,
				BuyingPrice:  &buying,
				SellingPrice: &selling,
				ReorderLevel: &reorder,
			}
			if _, err := s.repo.UpdateItem(ctx, existing.ID, update); err != nil {
				return result, err
			}
			result.Updated++
		case errors.Is(err, store.ErrNotFound):
			actor, _ := ActorFromContext(ctx)
			now := time.Now().UTC()
			item := domain.Item{
				ID:           xid.New("item"),
				Name:         name,
				SKU:          sku,
				Category:     category,
				Size:         size,
				ABV:          abv,
				BuyingPrice:  buying,
				SellingPrice: selling,
				Status:       domain.ItemStatusActive,
				ReorderLevel: reorder,
				CreatedBy:    actor.ID,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if _, err := s.repo.CreateItem(ctx, item); err != nil {
				return result, err
			}
			result.Created++
		default:
			return result, err
		}
	}

	s.logAudit(ctx, "item_bulk_import", "item", "", fmt.Sprintf("created=%d,updated=%d", result.Created, result.Updated))
	return result, nil
}

// ReceiveStock records one lot per request line, inserted as a single batch.
// Lines are validated up front so a bad line never leaves a partial batch
// behind.
func (s *Service) ReceiveStock(ctx context.Context, req domain.StockReceiveRequest) (domain.StockReceiveResponse, error) {
	if len(req.Lines) == 0 {
		return domain.StockReceiveResponse{}, store.ErrInvalidRequest
	}

	actor, _ := ActorFromContext(ctx)
	now := time.Now().UTC()

	type pending struct {
		line        domain.StockReceiveLine
		purchasedAt time.Time
	}
	batch := make([]pending, 0, len(req.Lines))
	for i, line := range req.Lines {
		if strings.TrimSpace(line.ItemID) == "" {
			return domain.StockReceiveResponse{}, fmt.Errorf("%w: line %d: item_id is required", store.ErrInvalidRequest, i+1)
		}
		if !finitePositive(line.Quantity) {
			return domain.StockReceiveResponse{}, fmt.Errorf("%w: line %d: quantity must be a positive number", store.ErrInvalidRequest, i+1)
		}
		if !finiteNonNegative(line.UnitCost) {
			return domain.StockReceiveResponse{}, fmt.Errorf("%w: line %d: unit_cost must be a non-negative number", store.ErrInvalidRequest, i+1)
		}

		purchasedAt := now
		raw := line.PurchasedAt
		if raw == "" {
			raw = req.PurchasedAt
		}
		if raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return domain.StockReceiveResponse{}, fmt.Errorf("%w: line %d: purchased_at must be RFC 3339", store.ErrInvalidRequest, i+1)
			}
			purchasedAt = parsed.UTC()
		}

		if _, err := s.repo.GetItem(ctx, line.ItemID); err != nil {
			return domain.StockReceiveResponse{}, err
		}
		batch = append(batch, pending{line: line, purchasedAt: purchasedAt})
	}

	lots := make([]domain.StockLot, 0, len(batch))
	for _, p := range batch {
		supplier := p.line.Supplier
		if supplier == "" {
			supplier = req.Supplier
		}
		lots = append(lots, domain.StockLot{
			ID:                xid.New("lot"),
			ItemID:            p.line.ItemID,
			Quantity:          p.line.Quantity,
			RemainingQuantity: p.line.Quantity,
			UnitCost:          p.line.UnitCost,
			Supplier:          strings.TrimSpace(supplier),
			PurchasedAt:       p.purchasedAt,
			CreatedBy:         actor.ID,
			CreatedAt:         now,
		})
	}
	if err := s.repo.CreateLots(ctx, lots); err != nil {
		return domain.StockReceiveResponse{}, err
	}

	s.logAudit(ctx, "stock_receive", "lot", "", fmt.Sprintf("lots=%d", len(lots)))
	return domain.StockReceiveResponse{Lots: lots}, nil
}

func (s *Service) ListOpenLots(ctx context.Context, itemID string) ([]domain.StockLot, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListOpenLots(ctx, itemID)
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest, passwordHash string) (domain.UserView, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.UserView{}, err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || passwordHash == "" {
		return domain.UserView{}, store.ErrInvalidRequest
	}
	if req.Role != domain.RoleAdmin && req.Role != domain.RoleUser {
		return domain.UserView{}, store.ErrInvalidRequest
	}

	user := domain.UserAccount{
		ID:           xid.New("user"),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         req.Role,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return domain.UserView{}, err
	}

	s.logAudit(ctx, "user_create", "user", created.ID, "email="+created.Email)
	return userView(created), nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserView, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]domain.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, userView(u))
	}
	return views, nil
}

func userView(u domain.UserAccount) domain.UserView {
	return domain.UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

// AuditLogs returns the newest audit entries, admins only. Limit defaults to
// 100 and is capped at 500.
func (s *Service) AuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	return s.repo.ListAuditLogs(ctx, limit)
}

// RecordLogin notes a successful login in the audit trail.
func (s *Service) RecordLogin(ctx context.Context, actor domain.Actor) {
	s.logAudit(WithActor(ctx, actor), "login", "user", actor.ID, "email="+actor.Email)
}

func (s *Service) logAudit(ctx context.Context, action, targetType, targetID, detail string) {
	actor, _ := ActorFromContext(ctx)
	if err := s.repo.AppendAudit(ctx, domain.AuditLog{
		ID:         xid.New("audit"),
		ActorID:    actor.ID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s target=%s/%s: %v", action, targetType, targetID, err)
	}
}
