// Package postgres implements store.Repository on PostgreSQL. Every guarded
// write is a single UPDATE whose WHERE clause carries the precondition, so no
// multi-statement transaction is needed for correctness.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"barreldrop/backend/internal/domain"
	"barreldrop/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			sku TEXT NOT NULL,
			category TEXT NOT NULL,
			size TEXT NOT NULL DEFAULT '',
			abv DOUBLE PRECISION NOT NULL DEFAULT 0,
			buying_price DOUBLE PRECISION NOT NULL,
			selling_price DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			reorder_level DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS items_sku_idx ON items (lower(sku))`,
		`CREATE TABLE IF NOT EXISTS stock_lots (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			item_id TEXT NOT NULL REFERENCES items(id),
			quantity DOUBLE PRECISION NOT NULL,
			remaining_quantity DOUBLE PRECISION NOT NULL,
			unit_cost DOUBLE PRECISION NOT NULL,
			supplier TEXT NOT NULL DEFAULT '',
			purchased_at TIMESTAMPTZ NOT NULL,
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS stock_lots_item_idx ON stock_lots (item_id, purchased_at, seq)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			lines JSONB NOT NULL,
			total_revenue DOUBLE PRECISION NOT NULL,
			total_cost DOUBLE PRECISION NOT NULL,
			profit DOUBLE PRECISION NOT NULL,
			sold_at TIMESTAMPTZ NOT NULL,
			created_by TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS sales_sold_at_idx ON sales (sold_at)`,
		`CREATE TABLE IF NOT EXISTS credits (
			id TEXT PRIMARY KEY,
			customer_name TEXT NOT NULL,
			customer_contact TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			lines JSONB NOT NULL,
			total_amount DOUBLE PRECISION NOT NULL,
			total_cost DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			conversion_in_progress BOOLEAN NOT NULL DEFAULT FALSE,
			credited_at TIMESTAMPTZ NOT NULL,
			converted_at TIMESTAMPTZ,
			converted_sale_id TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL,
			converted_by TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS credits_status_idx ON credits (status, credited_at)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_idx ON users (lower(email))`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			actor_id TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			target_type TEXT NOT NULL DEFAULT '',
			target_id TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, sku, category, size, abv, buying_price, selling_price, status, reorder_level, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, item.ID, item.Name, item.SKU, item.Category, item.Size, item.ABV, item.BuyingPrice, item.SellingPrice, item.Status, item.ReorderLevel, item.CreatedBy, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Item{}, store.ErrDuplicate
		}
		return domain.Item{}, err
	}
	return item, nil
}

const itemColumns = `id, name, sku, category, size, abv, buying_price, selling_price, status, reorder_level, created_by, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (domain.Item, error) {
	var it domain.Item
	err := row.Scan(&it.ID, &it.Name, &it.SKU, &it.Category, &it.Size, &it.ABV, &it.BuyingPrice, &it.SellingPrice, &it.Status, &it.ReorderLevel, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func (s *Store) GetItem(ctx context.Context, id string) (domain.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, store.ErrNotFound
	}
	return item, err
}

func (s *Store) GetItemBySKU(ctx context.Context, sku string) (domain.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE lower(sku) = lower($1)`, sku)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, store.ErrNotFound
	}
	return item, err
}

func (s *Store) ListItems(ctx context.Context) ([]domain.ItemWithAvailability, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.name, i.sku, i.category, i.size, i.abv, i.buying_price, i.selling_price, i.status, i.reorder_level, i.created_by, i.created_at, i.updated_at,
		       COALESCE(SUM(l.remaining_quantity), 0)
		FROM items i
		LEFT JOIN stock_lots l ON l.item_id = i.id
		GROUP BY i.id
		ORDER BY i.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ItemWithAvailability, 0, 64)
	for rows.Next() {
		var it domain.ItemWithAvailability
		if err := rows.Scan(&it.ID, &it.Name, &it.SKU, &it.Category, &it.Size, &it.ABV, &it.BuyingPrice, &it.SellingPrice, &it.Status, &it.ReorderLevel, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt, &it.AvailableQuantity); err != nil {
			return nil, err
		}
		it.LowStock = it.ReorderLevel > 0 && it.AvailableQuantity <= it.ReorderLevel
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) UpdateItem(ctx context.Context, id string, req domain.ItemUpdateRequest) (domain.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE items SET
			name = COALESCE($2, name),
			category = COALESCE($3, category),
			size = COALESCE($4, size),
			abv = COALESCE($5, abv),
			buying_price = COALESCE($6, buying_price),
			selling_price = COALESCE($7, selling_price),
			reorder_level = COALESCE($8, reorder_level),
			updated_at = now()
		WHERE id = $1
		RETURNING `+itemColumns+`
	`, id, req.Name, req.Category, req.Size, req.ABV, req.BuyingPrice, req.SellingPrice, req.ReorderLevel)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, store.ErrNotFound
	}
	return item, err
}

func (s *Store) SetItemStatus(ctx context.Context, id, status string) (domain.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE items SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+itemColumns+`
	`, id, status)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, store.ErrNotFound
	}
	return item, err
}

// CreateLots batch-inserts a receipt's lots through one unnest statement, the
// same shape RestoreLots uses for its bulk update.
func (s *Store) CreateLots(ctx context.Context, lots []domain.StockLot) error {
	if len(lots) == 0 {
		return nil
	}
	ids := make([]string, len(lots))
	itemIDs := make([]string, len(lots))
	qtys := make([]float64, len(lots))
	remainings := make([]float64, len(lots))
	costs := make([]float64, len(lots))
	suppliers := make([]string, len(lots))
	purchasedAts := make([]time.Time, len(lots))
	createdBys := make([]string, len(lots))
	createdAts := make([]time.Time, len(lots))
	for i, lot := range lots {
		ids[i] = lot.ID
		itemIDs[i] = lot.ItemID
		qtys[i] = lot.Quantity
		remainings[i] = lot.RemainingQuantity
		costs[i] = lot.UnitCost
		suppliers[i] = lot.Supplier
		purchasedAts[i] = lot.PurchasedAt
		createdBys[i] = lot.CreatedBy
		createdAts[i] = lot.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_lots (id, item_id, quantity, remaining_quantity, unit_cost, supplier, purchased_at, created_by, created_at)
		SELECT * FROM unnest($1::text[], $2::text[], $3::float8[], $4::float8[], $5::float8[], $6::text[], $7::timestamptz[], $8::text[], $9::timestamptz[])
	`, ids, itemIDs, qtys, remainings, costs, suppliers, purchasedAts, createdBys, createdAts)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) ListOpenLots(ctx context.Context, itemID string) ([]domain.StockLot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, quantity, remaining_quantity, unit_cost, supplier, purchased_at, created_by, created_at
		FROM stock_lots
		WHERE item_id = $1 AND remaining_quantity > 0
		ORDER BY purchased_at, seq
	`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lots := make([]domain.StockLot, 0, 8)
	for rows.Next() {
		var l domain.StockLot
		if err := rows.Scan(&l.ID, &l.ItemID, &l.Quantity, &l.RemainingQuantity, &l.UnitCost, &l.Supplier, &l.PurchasedAt, &l.CreatedBy, &l.CreatedAt); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

// DeductLot is the conflict gate for sales and credits: the decrement and its
// precondition execute as one statement, so a concurrent deduction that
// drained the lot makes this one fail cleanly instead of going negative.
func (s *Store) DeductLot(ctx context.Context, lotID string, quantity float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE stock_lots
		SET remaining_quantity = remaining_quantity - $2
		WHERE id = $1 AND remaining_quantity >= $2
	`, lotID, quantity)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM stock_lots WHERE id = $1)`, lotID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return store.ErrNotFound
		}
		return store.ErrStockConflict
	}
	return nil
}

func (s *Store) RestoreLots(ctx context.Context, deductions []domain.LotDeduction) error {
	if len(deductions) == 0 {
		return nil
	}
	ids := make([]string, len(deductions))
	qtys := make([]float64, len(deductions))
	for i, d := range deductions {
		ids[i] = d.LotID
		qtys[i] = d.Quantity
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE stock_lots AS l
		SET remaining_quantity = l.remaining_quantity + r.qty
		FROM (SELECT unnest($1::text[]) AS id, unnest($2::float8[]) AS qty) AS r
		WHERE l.id = r.id
	`, ids, qtys)
	return err
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	linesJSON, err := json.Marshal(sale.Lines)
	if err != nil {
		return domain.Sale{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sales (id, lines, total_revenue, total_cost, profit, sold_at, created_by, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sale.ID, linesJSON, sale.TotalRevenue, sale.TotalCost, sale.Profit, sale.SoldAt, sale.CreatedBy, sale.Notes)
	if err != nil {
		return domain.Sale{}, err
	}
	return sale, nil
}

func scanSale(row interface{ Scan(...any) error }) (domain.Sale, error) {
	var sale domain.Sale
	var linesRaw []byte
	if err := row.Scan(&sale.ID, &linesRaw, &sale.TotalRevenue, &sale.TotalCost, &sale.Profit, &sale.SoldAt, &sale.CreatedBy, &sale.Notes); err != nil {
		return domain.Sale{}, err
	}
	if err := json.Unmarshal(linesRaw, &sale.Lines); err != nil {
		return domain.Sale{}, err
	}
	return sale, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, lines, total_revenue, total_cost, profit, sold_at, created_by, notes
		FROM sales WHERE id = $1
	`, id)
	sale, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Sale{}, store.ErrNotFound
	}
	return sale, err
}

func (s *Store) ListSales(ctx context.Context, from, to time.Time, createdBy string) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lines, total_revenue, total_cost, profit, sold_at, created_by, notes
		FROM sales
		WHERE ($1::timestamptz IS NULL OR sold_at >= $1)
		  AND ($2::timestamptz IS NULL OR sold_at < $2)
		  AND ($3 = '' OR created_by = $3)
		ORDER BY sold_at DESC
	`, nullTime(from), nullTime(to), createdBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 32)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *Store) SaleTotals(ctx context.Context, from, to time.Time, createdBy string) (float64, float64, error) {
	var revenue, cost float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_revenue), 0), COALESCE(SUM(total_cost), 0)
		FROM sales
		WHERE ($1::timestamptz IS NULL OR sold_at >= $1)
		  AND ($2::timestamptz IS NULL OR sold_at < $2)
		  AND ($3 = '' OR created_by = $3)
	`, nullTime(from), nullTime(to), createdBy).Scan(&revenue, &cost)
	return revenue, cost, err
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateCredit(ctx context.Context, credit domain.Credit) (domain.Credit, error) {
	linesJSON, err := json.Marshal(credit.Lines)
	if err != nil {
		return domain.Credit{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credits (id, customer_name, customer_contact, notes, lines, total_amount, total_cost, status, conversion_in_progress, credited_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, credit.ID, credit.CustomerName, credit.CustomerContact, credit.Notes, linesJSON, credit.TotalAmount, credit.TotalCost, credit.Status, credit.ConversionInProgress, credit.CreditedAt, credit.CreatedBy)
	if err != nil {
		return domain.Credit{}, err
	}
	return credit, nil
}

const creditColumns = `id, customer_name, customer_contact, notes, lines, total_amount, total_cost, status, conversion_in_progress, credited_at, converted_at, converted_sale_id, created_by, converted_by`

func scanCredit(row interface{ Scan(...any) error }) (domain.Credit, error) {
	var c domain.Credit
	var linesRaw []byte
	var convertedAt sql.NullTime
	if err := row.Scan(&c.ID, &c.CustomerName, &c.CustomerContact, &c.Notes, &linesRaw, &c.TotalAmount, &c.TotalCost, &c.Status, &c.ConversionInProgress, &c.CreditedAt, &convertedAt, &c.ConvertedSaleID, &c.CreatedBy, &c.ConvertedBy); err != nil {
		return domain.Credit{}, err
	}
	if err := json.Unmarshal(linesRaw, &c.Lines); err != nil {
		return domain.Credit{}, err
	}
	if convertedAt.Valid {
		t := convertedAt.Time
		c.ConvertedAt = &t
	}
	return c, nil
}

func (s *Store) GetCredit(ctx context.Context, id string) (domain.Credit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+creditColumns+` FROM credits WHERE id = $1`, id)
	credit, err := scanCredit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Credit{}, store.ErrNotFound
	}
	return credit, err
}

func (s *Store) ListCredits(ctx context.Context, status, createdBy string, from, to time.Time) ([]domain.Credit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+creditColumns+` FROM credits
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR created_by = $2)
		  AND ($3::timestamptz IS NULL OR credited_at >= $3)
		  AND ($4::timestamptz IS NULL OR credited_at < $4)
		ORDER BY credited_at DESC
	`, status, createdBy, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	credits := make([]domain.Credit, 0, 32)
	for rows.Next() {
		credit, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		credits = append(credits, credit)
	}
	return credits, rows.Err()
}

// creditGuardedUpdate runs an UPDATE that carries its own state guard and
// maps zero affected rows to ErrNotFound or ErrConversionConflict.
func (s *Store) creditGuardedUpdate(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM credits WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return store.ErrNotFound
		}
		return store.ErrConversionConflict
	}
	return nil
}

func (s *Store) LockCreditForConversion(ctx context.Context, id string) error {
	return s.creditGuardedUpdate(ctx, id, `
		UPDATE credits SET conversion_in_progress = TRUE
		WHERE id = $1 AND status = $2 AND conversion_in_progress = FALSE
	`, id, domain.CreditStatusOpen)
}

func (s *Store) FinalizeCreditConversion(ctx context.Context, id, saleID, actorID string, at time.Time) error {
	return s.creditGuardedUpdate(ctx, id, `
		UPDATE credits SET
			status = $2,
			conversion_in_progress = FALSE,
			converted_at = $3,
			converted_sale_id = $4,
			converted_by = $5
		WHERE id = $1 AND status = $6 AND conversion_in_progress = TRUE
	`, id, domain.CreditStatusConverted, at, saleID, actorID, domain.CreditStatusOpen)
}

func (s *Store) ReleaseCreditConversion(ctx context.Context, id string) error {
	return s.creditGuardedUpdate(ctx, id, `
		UPDATE credits SET conversion_in_progress = FALSE
		WHERE id = $1 AND status = $2 AND conversion_in_progress = TRUE
	`, id, domain.CreditStatusOpen)
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) (domain.UserAccount, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.UserAccount{}, store.ErrDuplicate
		}
		return domain.UserAccount{}, err
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, active, created_at
		FROM users WHERE lower(email) = lower($1)
	`, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, password_hash, role, active, created_at
		FROM users ORDER BY email
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) AppendAudit(ctx context.Context, entry domain.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, target_type, target_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.ActorID, entry.Action, entry.TargetType, entry.TargetID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, action, target_type, target_id, detail, created_at
		FROM audit_logs ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, 32)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.TargetType, &entry.TargetID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

var _ store.Repository = (*Store)(nil)
