package domain

import "time"

const (
	ItemStatusActive = "active"
	ItemStatusFrozen = "frozen"
)

const (
	CreditStatusOpen      = "open"
	CreditStatusConverted = "converted"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SKU          string    `json:"sku"`
	Category     string    `json:"category"`
	Size         string    `json:"size,omitempty"`
	ABV          float64   `json:"abv,omitempty"`
	BuyingPrice  float64   `json:"buying_price"`
	SellingPrice float64   `json:"selling_price"`
	Status       string    `json:"status"`
	ReorderLevel float64   `json:"reorder_level"`
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ItemWithAvailability is an Item enriched with the live sum of remaining
// quantity across its stock lots.
type ItemWithAvailability struct {
	Item
	AvailableQuantity float64 `json:"available_quantity"`
	LowStock          bool    `json:"low_stock"`
}

type ItemCreateRequest struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Category     string  `json:"category"`
	Size         string  `json:"size,omitempty"`
	ABV          float64 `json:"abv,omitempty"`
	BuyingPrice  float64 `json:"buying_price"`
	SellingPrice float64 `json:"selling_price"`
	ReorderLevel float64 `json:"reorder_level"`
}

type ItemUpdateRequest struct {
	Name         *string  `json:"name,omitempty"`
	Category     *string  `json:"category,omitempty"`
	Size         *string  `json:"size,omitempty"`
	ABV          *float64 `json:"abv,omitempty"`
	BuyingPrice  *float64 `json:"buying_price,omitempty"`
	SellingPrice *float64 `json:"selling_price,omitempty"`
	ReorderLevel *float64 `json:"reorder_level,omitempty"`
}

type ItemStatusRequest struct {
	Status string `json:"status"`
}

type ItemBulkImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// StockLot is one purchase batch. RemainingQuantity is mutated only by the
// deduction applier and its rollback; 0 <= RemainingQuantity <= Quantity.
type StockLot struct {
	ID                string    `json:"id"`
	ItemID            string    `json:"item_id"`
	Quantity          float64   `json:"quantity"`
	RemainingQuantity float64   `json:"remaining_quantity"`
	UnitCost          float64   `json:"unit_cost"`
	Supplier          string    `json:"supplier,omitempty"`
	PurchasedAt       time.Time `json:"purchased_at"`
	CreatedBy         string    `json:"created_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// LotDeduction is one planned or applied decrement against a lot.
type LotDeduction struct {
	LotID    string
	Quantity float64
}

type StockReceiveLine struct {
	ItemID      string  `json:"item_id"`
	Quantity    float64 `json:"quantity"`
	UnitCost    float64 `json:"unit_cost"`
	Supplier    string  `json:"supplier,omitempty"`
	PurchasedAt string  `json:"purchased_at,omitempty"`
}

type StockReceiveRequest struct {
	Lines       []StockReceiveLine `json:"lines"`
	Supplier    string             `json:"supplier,omitempty"`
	PurchasedAt string             `json:"purchased_at,omitempty"`
}

type StockReceiveResponse struct {
	Lots []StockLot `json:"lots"`
}

// LineItem is one priced line of a Sale or Credit. Price and cost are copied
// at transaction time; later item price changes never touch them.
type LineItem struct {
	ItemID    string  `json:"item_id"`
	ItemName  string  `json:"item_name"`
	ItemSKU   string  `json:"item_sku"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	UnitCost  float64 `json:"unit_cost"`
	LineTotal float64 `json:"line_total"`
	LineCost  float64 `json:"line_cost"`
}

type Sale struct {
	ID           string     `json:"id"`
	Lines        []LineItem `json:"items"`
	TotalRevenue float64    `json:"total_revenue"`
	TotalCost    float64    `json:"total_cost"`
	Profit       float64    `json:"profit"`
	SoldAt       time.Time  `json:"sold_at"`
	CreatedBy    string     `json:"created_by"`
	Notes        string     `json:"notes,omitempty"`
}

type SaleLineRequest struct {
	ItemID   string  `json:"item_id"`
	Quantity float64 `json:"quantity"`
}

type SaleCreateRequest struct {
	Lines []SaleLineRequest `json:"items"`
	Notes string            `json:"notes,omitempty"`
}

type Credit struct {
	ID                   string     `json:"id"`
	CustomerName         string     `json:"customer_name"`
	CustomerContact      string     `json:"customer_contact,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	Lines                []LineItem `json:"items"`
	TotalAmount          float64    `json:"total_amount"`
	TotalCost            float64    `json:"total_cost"`
	Status               string     `json:"status"`
	ConversionInProgress bool       `json:"conversion_in_progress"`
	CreditedAt           time.Time  `json:"credited_at"`
	ConvertedAt          *time.Time `json:"converted_at,omitempty"`
	ConvertedSaleID      string     `json:"converted_sale_id,omitempty"`
	CreatedBy            string     `json:"created_by"`
	ConvertedBy          string     `json:"converted_by,omitempty"`
}

type CreditCreateRequest struct {
	CustomerName    string            `json:"customer_name"`
	CustomerContact string            `json:"customer_contact,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Lines           []SaleLineRequest `json:"items"`
}

type CreditConversionResponse struct {
	CreditID string `json:"credit_id"`
	SaleID   string `json:"sale_id"`
}

type SalesReport struct {
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
	Sales []Sale    `json:"sales"`
}

type ProfitLossReport struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalCost    float64 `json:"total_cost"`
	TotalProfit  float64 `json:"total_profit"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor identifies the authenticated caller for the lifetime of a request.
type Actor struct {
	ID    string
	Email string
	Role  string
}

type UserCreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UserView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is the internal persistence model for auth credentials.
type UserAccount struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
}

type AuditLog struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id,omitempty"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type,omitempty"`
	TargetID   string    `json:"target_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
