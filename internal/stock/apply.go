package stock

import (
	"context"
	"log"

	"barreldrop/backend/internal/domain"
)

// LotWriter is the single-lot conditional write surface the applier needs.
// DeductLot must decrement atomically and fail without effect when the lot's
// remaining quantity no longer covers the decrement. RestoreLots adds the
// quantities back unconditionally.
type LotWriter interface {
	DeductLot(ctx context.Context, lotID string, quantity float64) error
	RestoreLots(ctx context.Context, deductions []domain.LotDeduction) error
}

// Applier applies a plan's deductions one conditional write at a time and
// remembers what it applied so the caller can roll back if a later step of
// the transaction fails.
type Applier struct {
	lots    LotWriter
	applied []domain.LotDeduction
}

func NewApplier(lots LotWriter) *Applier {
	return &Applier{lots: lots}
}

// Apply executes the deductions in order. If any write fails it restores the
// deductions already applied and returns the failing write's error.
func (a *Applier) Apply(ctx context.Context, deductions []domain.LotDeduction) error {
	for _, d := range deductions {
		if d.Quantity <= Epsilon {
			continue
		}
		if err := a.lots.DeductLot(ctx, d.LotID, d.Quantity); err != nil {
			a.Rollback(ctx)
			return err
		}
		a.applied = append(a.applied, d)
	}
	return nil
}

// Rollback restores every deduction applied so far. A restore failure is
// logged rather than returned so it never masks the error that triggered
// the rollback.
func (a *Applier) Rollback(ctx context.Context) {
	if len(a.applied) == 0 {
		return
	}
	if err := a.lots.RestoreLots(ctx, a.applied); err != nil {
		log.Printf("[stock] rollback failed for %d lot(s): %v", len(a.applied), err)
	}
	a.applied = nil
}

// Commit forgets the applied deductions, making any later Rollback a no-op.
func (a *Applier) Commit() {
	a.applied = nil
}
