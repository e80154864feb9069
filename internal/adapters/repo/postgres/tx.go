package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

type TxManager struct{ db *gorm.DB }

func NewTxManager(db *gorm.DB) *TxManager { return &TxManager{db: db} }

// WithinTx commits when fn returns nil and rolls back otherwise.
func (m *TxManager) WithinTx(ctx context.Context, fn func(r domain.TxRepos) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(domain.TxRepos{
			Products: NewProductRepo(tx),
			Orders:   NewOrderRepo(tx),
			Shipping: NewShippingMethodRepo(tx),
		})
	})
}
