package usecase

import (
	"context"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

type DashboardStats struct {
	Products      int64          `json:"products"`
	Orders        int64          `json:"orders"`
	PendingOrders int64          `json:"pending_orders"`
	LastOrders    []domain.Order `json:"last_orders"`
}

type DashboardUC struct {
	Products domain.ProductRepo
	Orders   domain.OrderRepo
}

// Stats counts pending cash orders and initiated card orders as pending.
func (uc *DashboardUC) Stats(ctx context.Context) (*DashboardStats, error) {
	var s DashboardStats
	var err error
	if s.Products, err = uc.Products.Count(ctx); err != nil {
		return nil, err
	}
	if s.Orders, err = uc.Orders.Count(ctx, ""); err != nil {
		return nil, err
	}
	for _, st := range []domain.PaymentStatus{domain.PaymentPending, domain.PaymentInitiated} {
		n, err := uc.Orders.Count(ctx, st)
		if err != nil {
			return nil, err
		}
		s.PendingOrders += n
	}
	if s.LastOrders, _, err = uc.Orders.List(ctx, domain.OrderFilter{Page: 1, PageSize: 10}); err != nil {
		return nil, err
	}
	return &s, nil
}
