// internal/application/report_service.go
package application

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/ports"
)

// maxReportDays bounds the range of a sales report.
const maxReportDays = 366

type ReportService struct {
	orders ports.OrderRepository
	menu   ports.MenuRepository
	users  ports.UserRepository
	shifts ports.ShiftRepository
	clock  clock.Clock
}

func NewReportService(orders ports.OrderRepository, menu ports.MenuRepository, users ports.UserRepository, shifts ports.ShiftRepository, clk clock.Clock) *ReportService {
	if clk == nil {
		clk = clock.WallClock
	}
	return &ReportService{orders: orders, menu: menu, users: users, shifts: shifts, clock: clk}
}

// Dashboard collects the figures of the dashboard home page. Cashiers see
// their own sales and orders.
func (s *ReportService) Dashboard(ctx context.Context, viewer *domain.User) (*domain.Dashboard, error) {
	if viewer == nil {
		return nil, errors.NewUnauthorized(nil, "Not authenticated")
	}
	var cashierID int64
	if !viewer.IsAdmin() {
		cashierID = viewer.ID
	}
	today := startOfDay(s.clock.Now())

	stats, err := s.orders.OrderStats(ctx, cashierID, today)
	if err != nil {
		return nil, errors.Trace(err)
	}
	low, err := s.menu.LowStockItems(ctx, domain.LowStockThreshold)
	if err != nil {
		return nil, errors.Trace(err)
	}
	recent, _, err := s.orders.ListOrders(ctx, domain.OrderFilter{Page: domain.Page{Page: 1, Limit: 5}, CashierID: cashierID})
	if err != nil {
		return nil, errors.Trace(err)
	}

	d := &domain.Dashboard{
		TodaySales:    stats.TodaySales,
		TodayOrders:   stats.TodayOrders,
		LowStock:      int64(len(low)),
		LowStockItems: make([]domain.MenuItem, 0, len(low)),
		RecentOrders:  recent,
	}
	for _, m := range low {
		d.LowStockItems = append(d.LowStockItems, *m)
	}
	if d.RecentOrders == nil {
		d.RecentOrders = []*domain.Order{}
	}
	if viewer.IsAdmin() {
		if d.TotalUsers, err = s.users.CountUsers(ctx, domain.RoleCashier); err != nil {
			return nil, errors.Trace(err)
		}
		shiftStats, err := s.shifts.ShiftStats(ctx, today)
		if err != nil {
			return nil, errors.Trace(err)
		}
		d.ActiveShifts = shiftStats.ActiveShifts
	}
	return d, nil
}

// Sales returns completed sales per day between from and to inclusive.
// Zero bounds default to the last seven days.
func (s *ReportService) Sales(ctx context.Context, from, to time.Time) ([]domain.DailySales, error) {
	today := startOfDay(s.clock.Now())
	if to.IsZero() {
		to = today
	}
	if from.IsZero() {
		from = startOfDay(to).AddDate(0, 0, -6)
	}
	from, to = startOfDay(from), startOfDay(to)
	if to.Before(from) {
		return nil, errors.NewNotValid(nil, "from must not be after to")
	}
	if to.Sub(from) > maxReportDays*24*time.Hour {
		return nil, errors.NewNotValid(nil, "Report range cannot exceed one year")
	}
	sales, err := s.orders.SalesByDay(ctx, 0, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return fillDays(sales, from, to), nil
}

// fillDays returns one entry per day in [from, to], zero for days without sales.
func fillDays(sales []domain.DailySales, from, to time.Time) []domain.DailySales {
	byDate := make(map[string]domain.DailySales, len(sales))
	for _, d := range sales {
		byDate[d.Date] = d
	}
	var out []domain.DailySales
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		if d, ok := byDate[key]; ok {
			out = append(out, d)
			continue
		}
		out = append(out, domain.DailySales{Date: key})
	}
	return out
}
