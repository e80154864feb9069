package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: NewZeroLogger(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price string, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Slug:      domain.Slugify(name),
		Family:    domain.FamilyStandard,
		BasePrice: decimal.RequireFromString(price),
		Stock:     stock,
		Active:    true,
	}
	require.NoError(t, NewProductRepo(db).Save(context.Background(), p))
	return p
}
