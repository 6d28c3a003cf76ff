package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type CustomerRating int

const (
	RatingRegular CustomerRating = iota
	RatingSilver
	RatingGold
	RatingPlatinum
	RatingPreferred
	RatingPremium
	RatingVIP
)

var ratingNames = []string{"Regular", "Silver", "Gold", "Platinum", "Preferred", "Premium", "VIP"}

func (r CustomerRating) String() string {
	if r < 0 || int(r) >= len(ratingNames) {
		return "Unknown"
	}
	return ratingNames[r]
}

// SeesFullInventory reports whether the rating unlocks out-of-stock rows in inventory listings.
func (r CustomerRating) SeesFullInventory() bool {
	return r == RatingVIP || r == RatingPremium
}

type ProductCategory string

const (
	CategoryTwoWheeler  ProductCategory = "TwoWheeler"
	CategoryFourWheeler ProductCategory = "FourWheeler"
)

type Customer struct {
	ID                 string
	CompanyName        string
	CreditLimit        decimal.Decimal
	OutstandingBalance decimal.Decimal
	Rating             CustomerRating
}

type Product struct {
	ID        int64
	Code      string
	Name      string
	UnitPrice decimal.Decimal
	Category  ProductCategory
	Active    bool
}

type Warehouse struct {
	ID     int64
	Name   string
	Active bool
}

type InventoryItem struct {
	ID                    int64
	ProductID             int64
	WarehouseID           int64
	QuantityInStock       int
	ReorderPoint          int
	EconomicOrderQuantity int
	LastUpdated           time.Time
}

// NeedsReorder is true once stock has fallen to the reorder point.
func (i InventoryItem) NeedsReorder() bool {
	return i.ReorderPoint > 0 && i.QuantityInStock <= i.ReorderPoint
}

type Order struct {
	ID             int64
	OrderNumber    string
	ExternalID     string
	CustomerID     string
	WarehouseID    *int64
	Status         OrderStatus
	SubTotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	OrderDate      time.Time
	ConfirmedDate  *time.Time
	ShippedDate    *time.Time
	DeliveredDate  *time.Time
	Items          []OrderItem
}

type OrderItem struct {
	ID              int64
	OrderID         int64
	ProductID       int64
	QuantityOrdered int
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
}

type AllocationStatus string

const (
	AllocationAllocated AllocationStatus = "allocated"
	AllocationReleased  AllocationStatus = "released"
)

// Allocation records how much of one order line was drawn from one inventory record.
type Allocation struct {
	OrderID         int64
	OrderItemID     int64
	ProductID       int64
	InventoryItemID int64
	Quantity        int
	Status          AllocationStatus
}

type Invoice struct {
	ID                int64
	InvoiceNumber     string
	OrderID           int64
	CustomerID        string
	InvoiceDate       time.Time
	DueDate           time.Time
	SubTotal          decimal.Decimal
	DiscountAmount    decimal.Decimal
	TaxPercentage     decimal.Decimal
	TaxAmount         decimal.Decimal
	TotalAmount       decimal.Decimal
	AmountPaid        decimal.Decimal
	OutstandingAmount decimal.Decimal
	Status            InvoiceStatus
}

type MaterialRejection struct {
	ID               int64
	RejectionNumber  string
	ProductID        int64
	CustomerID       string
	OrderID          *int64
	RejectionDate    time.Time
	RejectedQuantity int
	Reason           string
	Description      string
	Status           RejectionStatus
	ResolutionDate   *time.Time
	ResolutionNotes  string
	CostImpact       *decimal.Decimal
}
