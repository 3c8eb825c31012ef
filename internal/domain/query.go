// internal/domain/query.go
package domain

import "time"

type Page struct {
	Page  int64 `form:"page" json:"page"`
	Limit int64 `form:"limit" json:"limit"`
}

// Normalize applies the defaults used by every list endpoint.
func (p Page) Normalize() Page {
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Page < 1 {
		p.Page = 1
	}
	return p
}

func (p Page) Offset() int64 {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

type UserFilter struct {
	Page
	Role   Role   `form:"role"`
	Search string `form:"search"`
}

type MenuFilter struct {
	Page
	Category      string `form:"category"`
	Search        string `form:"search"`
	AvailableOnly bool   `form:"available"`
}

type OrderFilter struct {
	Page
	Status    OrderStatus `form:"status"`
	CashierID int64       `form:"-"`
	From      *time.Time  `form:"-"`
	To        *time.Time  `form:"-"`
}

type ShiftFilter struct {
	Page
	Status    ShiftStatus `form:"status"`
	CashierID int64       `form:"-"`
}

type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int64 `json:"currentPage"`
	PerPage     int64 `json:"perPage"`
	LastPage    int64 `json:"lastPage"`
}

func NewPagination(p Page, total int64) Pagination {
	p = p.Normalize()
	last := total / p.Limit
	if total%p.Limit != 0 {
		last++
	}
	return Pagination{Total: total, CurrentPage: p.Page, PerPage: p.Limit, LastPage: last}
}

type DailySales struct {
	Date   string  `json:"date"`
	Sales  float64 `json:"sales"`
	Orders int64   `json:"orders"`
}

type ProductSales struct {
	MenuItemID int64   `json:"menuItemId"`
	Name       string  `json:"name"`
	Quantity   int64   `json:"quantity"`
	Revenue    float64 `json:"revenue"`
}

type CategorySales struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
}

type PaymentSales struct {
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Orders        int64         `json:"orders"`
	Revenue       float64       `json:"revenue"`
}

// OrderStats aggregates completed orders for one cashier or the whole shop.
type OrderStats struct {
	TodaySales      float64          `json:"todaySales"`
	TodayOrders     int64            `json:"todayOrders"`
	TotalSales      float64          `json:"totalSales"`
	TotalOrders     int64            `json:"totalOrders"`
	AvgOrderValue   float64          `json:"avgOrderValue"`
	ItemsSold       int64            `json:"itemsSold"`
	ByStatus        map[string]int64 `json:"byStatus"`
	SalesByDay      []DailySales     `json:"salesByDay"`
	TopProducts     []ProductSales   `json:"topProducts"`
	SalesByCategory []CategorySales  `json:"salesByCategory"`
	ByPayment       []PaymentSales   `json:"byPayment"`
}

type CashierShiftStats struct {
	CashierID   int64   `json:"cashierId"`
	CashierName string  `json:"cashierName"`
	Shifts      int64   `json:"shifts"`
	Hours       float64 `json:"hours"`
}

type ShiftStats struct {
	ActiveShifts int64               `json:"activeShifts"`
	TodayShifts  int64               `json:"todayShifts"`
	ExpiredCount int64               `json:"expiredShifts"`
	TotalHours   float64             `json:"totalHours"`
	ByCashier    []CashierShiftStats `json:"byCashier"`
}

type Dashboard struct {
	TodaySales    float64    `json:"todaySales"`
	TodayOrders   int64      `json:"todayOrders"`
	LowStock      int64      `json:"lowStock"`
	LowStockItems []MenuItem `json:"lowStockItems"`
	TotalUsers    int64      `json:"totalUsers"`
	ActiveShifts  int64      `json:"activeShifts"`
	RecentOrders  []*Order   `json:"recentOrders"`
}
