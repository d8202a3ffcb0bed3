package service

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SalesSummary struct {
	TodaySales   int64           `json:"today_sales"`
	TodayRevenue decimal.Decimal `json:"today_revenue"`
	MonthSales   int64           `json:"month_sales"`
	MonthRevenue decimal.Decimal `json:"month_revenue"`
	TotalSales   int64           `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type PaymentBreakdown struct {
	PaymentMethod string          `json:"payment_method"`
	Count         int64           `json:"count"`
	Total         decimal.Decimal `json:"total"`
}

type MedicineRanking struct {
	MedicineName  string          `json:"medicine_name"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

type DailySales struct {
	Day   string          `json:"day"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type SalesAnalytics struct {
	Period            string             `json:"period"`
	StartDate         time.Time          `json:"start_date"`
	EndDate           time.Time          `json:"end_date"`
	TotalSales        int64              `json:"total_sales"`
	TotalRevenue      decimal.Decimal    `json:"total_revenue"`
	AverageSaleAmount decimal.Decimal    `json:"average_sale_amount"`
	PaymentBreakdown  []PaymentBreakdown `json:"payment_method_breakdown"`
	TopMedicines      []MedicineRanking  `json:"top_selling_medicines"`
	DailySales        []DailySales       `json:"daily_sales"`
}

// StatisticsService aggregates committed sales for dashboards. Read-only;
// everything is computed with grouped queries over sales and sale_items.
type StatisticsService interface {
	GetSalesSummary(ctx context.Context, scope PharmacyScope) (SalesSummary, error)
	GetSalesAnalytics(ctx context.Context, scope PharmacyScope, period string) (SalesAnalytics, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

func (s *statisticsService) scopedSales(ctx context.Context, scope PharmacyScope) *gorm.DB {
	db := s.db.WithContext(ctx).Model(&model.Sale{})
	if !scope.All {
		ids := scope.IDs
		if ids == nil {
			ids = []uuid.UUID{}
		}
		db = db.Where("sales.pharmacy_id IN ?", ids)
	}
	return db
}

func (s *statisticsService) countAndRevenue(ctx context.Context, scope PharmacyScope, since *time.Time) (int64, decimal.Decimal, error) {
	var row struct {
		Count   int64
		Revenue decimal.Decimal
	}
	db := s.scopedSales(ctx, scope).
		Select("COUNT(*) as count, COALESCE(SUM(total_amount), 0) as revenue")
	if since != nil {
		db = db.Where("created_at >= ?", *since)
	}
	if err := db.Scan(&row).Error; err != nil {
		return 0, decimal.Zero, err
	}
	return row.Count, row.Revenue, nil
}

func (s *statisticsService) GetSalesSummary(ctx context.Context, scope PharmacyScope) (SalesSummary, error) {
	var summary SalesSummary

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var err error
	if summary.TodaySales, summary.TodayRevenue, err = s.countAndRevenue(ctx, scope, &today); err != nil {
		return summary, err
	}
	if summary.MonthSales, summary.MonthRevenue, err = s.countAndRevenue(ctx, scope, &monthStart); err != nil {
		return summary, err
	}
	if summary.TotalSales, summary.TotalRevenue, err = s.countAndRevenue(ctx, scope, nil); err != nil {
		return summary, err
	}

	return summary, nil
}

func (s *statisticsService) GetSalesAnalytics(ctx context.Context, scope PharmacyScope, period string) (SalesAnalytics, error) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var start time.Time
	switch period {
	case "day":
		start = today
	case "week":
		start = today.AddDate(0, 0, -7)
	case "year":
		start = today.AddDate(-1, 0, 0)
	default:
		period = "month"
		start = today.AddDate(0, 0, -30)
	}

	analytics := SalesAnalytics{
		Period:    period,
		StartDate: start,
		EndDate:   today,
	}

	count, revenue, err := s.countAndRevenue(ctx, scope, &start)
	if err != nil {
		return analytics, err
	}
	analytics.TotalSales = count
	analytics.TotalRevenue = revenue
	if count > 0 {
		analytics.AverageSaleAmount = revenue.Div(decimal.NewFromInt(count)).Round(2)
	}

	if err := s.scopedSales(ctx, scope).
		Select("payment_method, COUNT(*) as count, COALESCE(SUM(total_amount), 0) as total").
		Where("created_at >= ?", start).
		Group("payment_method").
		Scan(&analytics.PaymentBreakdown).Error; err != nil {
		return analytics, err
	}

	topQuery := s.db.WithContext(ctx).Table("sale_items").
		Select("medicines.name as medicine_name, SUM(sale_items.quantity) as total_quantity, COALESCE(SUM(sale_items.total_price), 0) as total_revenue").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Joins("JOIN inventory_batches ON inventory_batches.id = sale_items.inventory_batch_id").
		Joins("JOIN medicines ON medicines.id = inventory_batches.medicine_id").
		Where("sales.created_at >= ?", start)
	if !scope.All {
		topQuery = topQuery.Where("sales.pharmacy_id IN ?", scope.IDs)
	}
	if err := topQuery.
		Group("medicines.name").
		Order("total_quantity DESC").
		Limit(10).
		Scan(&analytics.TopMedicines).Error; err != nil {
		return analytics, err
	}

	if err := s.scopedSales(ctx, scope).
		Select("DATE(created_at) as day, COUNT(*) as count, COALESCE(SUM(total_amount), 0) as total").
		Where("created_at >= ?", start).
		Group("DATE(created_at)").
		Order("day").
		Scan(&analytics.DailySales).Error; err != nil {
		return analytics, err
	}

	return analytics, nil
}
