// Package store defines the persistence contract shared by the Postgres and
// in-memory implementations.
package store

import (
	"context"
	"errors"
	"time"

	"barreldrop/backend/internal/domain"
)

var (
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidRequest indicates the request failed validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrItemFrozen indicates the item is frozen and cannot be transacted.
	ErrItemFrozen = errors.New("item is frozen")
	// ErrInsufficientStock indicates the lots cannot cover a requested quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockConflict indicates a lot changed between planning and applying.
	ErrStockConflict = errors.New("stock changed while processing request")
	// ErrAlreadyConverted indicates the credit was already converted to a sale.
	ErrAlreadyConverted = errors.New("credit already converted")
	// ErrConversionInProgress indicates another conversion holds the credit.
	ErrConversionInProgress = errors.New("credit conversion already in progress")
	// ErrConversionConflict indicates the credit's conversion state changed
	// underneath a guarded update.
	ErrConversionConflict = errors.New("credit conversion state changed")
	// ErrDuplicate indicates a uniqueness constraint (SKU, email) was violated.
	ErrDuplicate = errors.New("duplicate record")
)

// Repository is the full persistence surface. Every method that guards on
// prior state performs its check and write as one atomic step against a
// single record.
type Repository interface {
	// Items.
	CreateItem(ctx context.Context, item domain.Item) (domain.Item, error)
	GetItem(ctx context.Context, id string) (domain.Item, error)
	GetItemBySKU(ctx context.Context, sku string) (domain.Item, error)
	ListItems(ctx context.Context) ([]domain.ItemWithAvailability, error)
	UpdateItem(ctx context.Context, id string, req domain.ItemUpdateRequest) (domain.Item, error)
	SetItemStatus(ctx context.Context, id, status string) (domain.Item, error)

	// Stock lots.
	// CreateLots inserts a receipt's lots in one batch. Receipts bootstrap
	// new rows, so no guard applies; ErrNotFound if any item is missing.
	CreateLots(ctx context.Context, lots []domain.StockLot) error
	// ListOpenLots returns the item's lots with remaining quantity, ordered
	// oldest purchase first, creation order breaking ties.
	ListOpenLots(ctx context.Context, itemID string) ([]domain.StockLot, error)
	// DeductLot atomically decrements remaining quantity; it returns
	// ErrStockConflict when the lot no longer covers the decrement and
	// ErrNotFound when the lot does not exist.
	DeductLot(ctx context.Context, lotID string, quantity float64) error
	// RestoreLots adds the deducted quantities back.
	RestoreLots(ctx context.Context, deductions []domain.LotDeduction) error

	// Sales. A non-empty createdBy restricts results to that user's records.
	CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error)
	GetSale(ctx context.Context, id string) (domain.Sale, error)
	ListSales(ctx context.Context, from, to time.Time, createdBy string) ([]domain.Sale, error)
	// SaleTotals aggregates revenue and cost over the window in the store.
	SaleTotals(ctx context.Context, from, to time.Time, createdBy string) (revenue, cost float64, err error)
	DeleteSale(ctx context.Context, id string) error

	// Credits.
	CreateCredit(ctx context.Context, credit domain.Credit) (domain.Credit, error)
	GetCredit(ctx context.Context, id string) (domain.Credit, error)
	ListCredits(ctx context.Context, status, createdBy string, from, to time.Time) ([]domain.Credit, error)
	// LockCreditForConversion flips the in-progress flag, guarded on the
	// credit being open and unlocked; ErrConversionConflict on guard failure.
	LockCreditForConversion(ctx context.Context, id string) error
	// FinalizeCreditConversion marks the credit converted, guarded on it
	// being open and locked.
	FinalizeCreditConversion(ctx context.Context, id, saleID, actorID string, at time.Time) error
	// ReleaseCreditConversion clears the in-progress flag, guarded on the
	// credit being open and locked.
	ReleaseCreditConversion(ctx context.Context, id string) error

	// Users.
	CreateUser(ctx context.Context, user domain.UserAccount) (domain.UserAccount, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)

	// Audit.
	AppendAudit(ctx context.Context, entry domain.AuditLog) error
	// ListAuditLogs returns the newest entries first, at most limit of them.
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)

	Close() error
}
