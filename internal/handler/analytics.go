package handler

import (
	"net/http"

	"github.com/xenking/storefront-api/internal/domain/analytics"
)

type dailySalesDTO struct {
	Sales  float64 `json:"sales"`
	Orders int     `json:"orders"`
}

type salesReportDTO struct {
	Period            string                   `json:"period"`
	TotalSales        float64                  `json:"totalSales"`
	TotalOrders       int                      `json:"totalOrders"`
	AverageOrderValue float64                  `json:"averageOrderValue"`
	StatusBreakdown   map[string]int           `json:"statusBreakdown"`
	SalesByDate       map[string]dailySalesDTO `json:"salesByDate"`
}

// SalesAnalytics returns the sales rollup for the requested period.
func (h *Handler) SalesAnalytics(w http.ResponseWriter, r *http.Request) {
	period := analytics.ParsePeriod(r.URL.Query().Get("period"))

	report, err := h.analytics.SalesReport(r.Context(), period)
	if err != nil {
		respondInternal(w, err)
		return
	}

	breakdown := make(map[string]int, len(report.StatusBreakdown))
	for status, count := range report.StatusBreakdown {
		breakdown[string(status)] = count
	}

	byDate := make(map[string]dailySalesDTO, len(report.SalesByDate))
	for _, day := range report.SalesByDate {
		byDate[day.Date] = dailySalesDTO{
			Sales:  day.Sales.InexactFloat64(),
			Orders: day.Orders,
		}
	}

	respondData(w, http.StatusOK, salesReportDTO{
		Period:            string(report.Period),
		TotalSales:        report.TotalSales.InexactFloat64(),
		TotalOrders:       report.TotalOrders,
		AverageOrderValue: report.AverageOrderValue.InexactFloat64(),
		StatusBreakdown:   breakdown,
		SalesByDate:       byDate,
	})
}

type dashboardDTO struct {
	TotalOrders     int        `json:"totalOrders"`
	PendingOrders   int        `json:"pendingOrders"`
	DeliveredOrders int        `json:"deliveredOrders"`
	TotalRevenue    float64    `json:"totalRevenue"`
	RecentOrders    []orderDTO `json:"recentOrders"`
}

// DashboardStats returns the admin landing-page summary.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		respondInternal(w, err)
		return
	}

	respondData(w, http.StatusOK, dashboardDTO{
		TotalOrders:     stats.TotalOrders,
		PendingOrders:   stats.PendingOrders,
		DeliveredOrders: stats.DeliveredOrders,
		TotalRevenue:    stats.TotalRevenue.InexactFloat64(),
		RecentOrders:    toOrderDTOs(stats.RecentOrders),
	})
}
