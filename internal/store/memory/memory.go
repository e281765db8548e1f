// Package memory is the in-memory store used for dev mode and tests. Each
// method holds the store lock for its whole body, which gives the same
// per-document atomicity the Postgres store gets from single-statement
// conditional updates.
package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"barreldrop/backend/internal/domain"
	"barreldrop/backend/internal/store"
	"barreldrop/backend/internal/xid"
)

type Store struct {
	mu           sync.RWMutex
	items        map[string]domain.Item
	lots         map[string]domain.StockLot
	lotSeq       map[string]int
	seq          int
	sales        map[string]domain.Sale
	credits      map[string]domain.Credit
	usersByEmail map[string]domain.UserAccount
	auditLogs    []domain.AuditLog
}

func New() *Store {
	return &Store{
		items:        make(map[string]domain.Item),
		lots:         make(map[string]domain.StockLot),
		lotSeq:       make(map[string]int),
		sales:        make(map[string]domain.Sale),
		credits:      make(map[string]domain.Credit),
		usersByEmail: make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store preloaded with an admin account for dev/demo
// mode. The password comes from SEED_ADMIN_PASSWORD, with a warned-about
// default when unset.
func NewSeeded() *Store {
	s := New()
	pwd := os.Getenv("SEED_ADMIN_PASSWORD")
	if pwd == "" {
		pwd = "admin123"
		log.Println("[memory-store] WARNING: using default dev admin password. Set SEED_ADMIN_PASSWORD to override.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[memory-store] failed to hash seed password: %v", err)
	}
	s.usersByEmail["admin@barreldrop.local"] = domain.UserAccount{
		ID:           xid.New("user"),
		Name:         "Admin",
		Email:        "admin@barreldrop.local",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	return s
}

func (s *Store) CreateItem(_ context.Context, item domain.Item) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if strings.EqualFold(existing.SKU, item.SKU) {
			return domain.Item{}, store.ErrDuplicate
		}
	}
	s.items[item.ID] = item
	return item, nil
}

func (s *Store) GetItem(_ context.Context, id string) (domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return domain.Item{}, store.ErrNotFound
	}
	return item, nil
}

func (s *Store) GetItemBySKU(_ context.Context, sku string) (domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if strings.EqualFold(item.SKU, sku) {
			return item, nil
		}
	}
	return domain.Item{}, store.ErrNotFound
}

func (s *Store) ListItems(_ context.Context) ([]domain.ItemWithAvailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ItemWithAvailability, 0, len(s.items))
	for _, item := range s.items {
		var available float64
		for _, lot := range s.lots {
			if lot.ItemID == item.ID {
				available += lot.RemainingQuantity
			}
		}
		out = append(out, domain.ItemWithAvailability{
			Item:              item,
			AvailableQuantity: available,
			LowStock:          item.ReorderLevel > 0 && available <= item.ReorderLevel,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateItem(_ context.Context, id string, req domain.ItemUpdateRequest) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return domain.Item{}, store.ErrNotFound
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Size != nil {
		item.Size = *req.Size
	}
	if req.ABV != nil {
		item.ABV = *req.ABV
	}
	if req.BuyingPrice != nil {
		item.BuyingPrice = *req.BuyingPrice
	}
	if req.SellingPrice != nil {
		item.SellingPrice = *req.SellingPrice
	}
	if req.ReorderLevel != nil {
		item.ReorderLevel = *req.ReorderLevel
	}
	item.UpdatedAt = time.Now().UTC()
	s.items[id] = item
	return item, nil
}

func (s *Store) SetItemStatus(_ context.Context, id, status string) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return domain.Item{}, store.ErrNotFound
	}
	item.Status = status
	item.UpdatedAt = time.Now().UTC()
	s.items[id] = item
	return item, nil
}

func (s *Store) CreateLots(_ context.Context, lots []domain.StockLot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lot := range lots {
		if _, ok := s.items[lot.ItemID]; !ok {
			return store.ErrNotFound
		}
	}
	for _, lot := range lots {
		s.seq++
		s.lotSeq[lot.ID] = s.seq
		s.lots[lot.ID] = lot
	}
	return nil
}

func (s *Store) ListOpenLots(_ context.Context, itemID string) ([]domain.StockLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StockLot
	for _, lot := range s.lots {
		if lot.ItemID == itemID && lot.RemainingQuantity > 0 {
			out = append(out, lot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.PurchasedAt.Equal(b.PurchasedAt) {
			return a.PurchasedAt.Before(b.PurchasedAt)
		}
		return s.lotSeq[a.ID] < s.lotSeq[b.ID]
	})
	return out, nil
}

func (s *Store) DeductLot(_ context.Context, lotID string, quantity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return store.ErrNotFound
	}
	if lot.RemainingQuantity < quantity {
		return store.ErrStockConflict
	}
	lot.RemainingQuantity -= quantity
	s.lots[lotID] = lot
	return nil
}

func (s *Store) RestoreLots(_ context.Context, deductions []domain.LotDeduction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range deductions {
		lot, ok := s.lots[d.LotID]
		if !ok {
			return store.ErrNotFound
		}
		lot.RemainingQuantity += d.Quantity
		s.lots[d.LotID] = lot
	}
	return nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales[sale.ID] = sale
	return sale, nil
}

func (s *Store) GetSale(_ context.Context, id string) (domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.sales[id]
	if !ok {
		return domain.Sale{}, store.ErrNotFound
	}
	return sale, nil
}

func (s *Store) ListSales(_ context.Context, from, to time.Time, createdBy string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Sale
	for _, sale := range s.sales {
		if createdBy != "" && sale.CreatedBy != createdBy {
			continue
		}
		if !from.IsZero() && sale.SoldAt.Before(from) {
			continue
		}
		if !to.IsZero() && !sale.SoldAt.Before(to) {
			continue
		}
		out = append(out, sale)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SoldAt.After(out[j].SoldAt) })
	return out, nil
}

func (s *Store) SaleTotals(_ context.Context, from, to time.Time, createdBy string) (float64, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var revenue, cost float64
	for _, sale := range s.sales {
		if createdBy != "" && sale.CreatedBy != createdBy {
			continue
		}
		if !from.IsZero() && sale.SoldAt.Before(from) {
			continue
		}
		if !to.IsZero() && !sale.SoldAt.Before(to) {
			continue
		}
		revenue += sale.TotalRevenue
		cost += sale.TotalCost
	}
	return revenue, cost, nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sales[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.sales, id)
	return nil
}

func (s *Store) CreateCredit(_ context.Context, credit domain.Credit) (domain.Credit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits[credit.ID] = credit
	return credit, nil
}

func (s *Store) GetCredit(_ context.Context, id string) (domain.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credit, ok := s.credits[id]
	if !ok {
		return domain.Credit{}, store.ErrNotFound
	}
	return credit, nil
}

func (s *Store) ListCredits(_ context.Context, status, createdBy string, from, to time.Time) ([]domain.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Credit
	for _, credit := range s.credits {
		if status != "" && credit.Status != status {
			continue
		}
		if createdBy != "" && credit.CreatedBy != createdBy {
			continue
		}
		if !from.IsZero() && credit.CreditedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !credit.CreditedAt.Before(to) {
			continue
		}
		out = append(out, credit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreditedAt.After(out[j].CreditedAt) })
	return out, nil
}

func (s *Store) LockCreditForConversion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	credit, ok := s.credits[id]
	if !ok {
		return store.ErrNotFound
	}
	if credit.Status != domain.CreditStatusOpen || credit.ConversionInProgress {
		return store.ErrConversionConflict
	}
	credit.ConversionInProgress = true
	s.credits[id] = credit
	return nil
}

func (s *Store) FinalizeCreditConversion(_ context.Context, id, saleID, actorID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	credit, ok := s.credits[id]
	if !ok {
		return store.ErrNotFound
	}
	if credit.Status != domain.CreditStatusOpen || !credit.ConversionInProgress {
		return store.ErrConversionConflict
	}
	credit.Status = domain.CreditStatusConverted
	credit.ConversionInProgress = false
	converted := at
	credit.ConvertedAt = &converted
	credit.ConvertedSaleID = saleID
	credit.ConvertedBy = actorID
	s.credits[id] = credit
	return nil
}

func (s *Store) ReleaseCreditConversion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	credit, ok := s.credits[id]
	if !ok {
		return store.ErrNotFound
	}
	if credit.Status != domain.CreditStatusOpen || !credit.ConversionInProgress {
		return store.ErrConversionConflict
	}
	credit.ConversionInProgress = false
	s.credits[id] = credit
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) (domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, ok := s.usersByEmail[key]; ok {
		return domain.UserAccount{}, store.ErrDuplicate
	}
	s.usersByEmail[key] = user
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return user, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserAccount, 0, len(s.usersByEmail))
	for _, user := range s.usersByEmail {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) AppendAudit(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditLog, len(s.auditLogs))
	copy(out, s.auditLogs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

var _ store.Repository = (*Store)(nil)
