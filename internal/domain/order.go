package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentCard           PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCashOnDelivery || m == PaymentCard
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentInitiated PaymentStatus = "initiated"
	PaymentPaid      PaymentStatus = "paid"
)

// CanTransitionTo only allows pending -> paid and initiated -> paid.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if next != PaymentPaid {
		return false
	}
	return s == PaymentPending || s == PaymentInitiated
}

func (s PaymentStatus) IsTerminal() bool { return s == PaymentPaid }

type Order struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	TrackingToken string        `gorm:"size:32;uniqueIndex;not null" json:"tracking_token"`
	Items         []OrderItem   `gorm:"foreignKey:OrderID" json:"items"`
	CustomerID    *uuid.UUID    `gorm:"type:uuid;index" json:"customer_id"`
	Email         string        `gorm:"size:140;not null" json:"email"`
	Name          string        `gorm:"size:140;not null" json:"name"`
	Phone         string        `gorm:"size:50" json:"phone"`
	Address       string        `gorm:"size:255" json:"address"`
	City          string        `gorm:"size:120" json:"city"`
	PostalCode    string        `gorm:"size:20" json:"postal_code"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(30);index;not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);index;not null" json:"payment_status"`
	PaymentRef    string        `gorm:"size:255;index" json:"payment_ref"`

	ShippingMethodID *uuid.UUID      `gorm:"type:uuid" json:"shipping_method_id"`
	ShippingMethod   *ShippingMethod `gorm:"foreignKey:ShippingMethodID" json:"shipping_method"`
	ShippingCost     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"shipping_cost"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"subtotal"`
	Total            decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"total"`
	Notified         bool            `gorm:"not null;default:false" json:"notified"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OrderItem struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID         uuid.UUID        `gorm:"type:uuid;index;not null" json:"order_id"`
	ProductID       uuid.UUID        `gorm:"type:uuid;index" json:"product_id"`
	VariantID       *uuid.UUID       `gorm:"type:uuid;index" json:"variant_id"`
	Title           string           `gorm:"size:180" json:"title"`
	UnitPrice       decimal.Decimal  `gorm:"type:decimal(12,2)" json:"unit_price"`
	Qty             int              `gorm:"not null" json:"qty"`
	Subtotal        decimal.Decimal  `gorm:"type:decimal(12,2)" json:"subtotal"`
	Personalization *Personalization `gorm:"type:jsonb;serializer:json" json:"personalization"`
}

// FillSubtotal sets Subtotal to UnitPrice * Qty when none was supplied.
func (it *OrderItem) FillSubtotal() {
	if it.Subtotal.IsZero() {
		it.Subtotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty)))
	}
}

type ShippingMethod struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string          `gorm:"size:120;not null" json:"name"`
	Slug         string          `gorm:"size:140;uniqueIndex" json:"slug"`
	Cost         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cost"`
	Active       bool            `gorm:"not null;index" json:"active"`
	DisplayOrder int             `gorm:"default:0" json:"display_order"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ShippingCost is zero at or above the free-shipping threshold, otherwise the
// selected method's flat cost, or zero when nothing is selected.
func ShippingCost(subtotal, freeFrom decimal.Decimal, m *ShippingMethod) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(freeFrom) || m == nil {
		return decimal.Zero
	}
	return m.Cost
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
	Method   *ShippingMethod `json:"method,omitempty"`
}

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// CheckoutData is the contact/shipping form kept in the session between
// checkout steps.
type CheckoutData struct {
	Email         string        `json:"email"`
	Name          string        `json:"name"`
	Phone         string        `json:"phone"`
	Address       string        `json:"address"`
	City          string        `json:"city"`
	PostalCode    string        `json:"postal_code"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CustomerID    *uuid.UUID    `json:"customer_id,omitempty"`
}

func (d *CheckoutData) Normalize() {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Name = strings.TrimSpace(d.Name)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Address = strings.TrimSpace(d.Address)
	d.City = strings.TrimSpace(d.City)
	d.PostalCode = strings.TrimSpace(d.PostalCode)
	if d.PaymentMethod == "" {
		d.PaymentMethod = PaymentCashOnDelivery
	}
}

func (d CheckoutData) Validate() error {
	switch {
	case !emailRe.MatchString(d.Email):
		return InvalidInput("email inválido")
	case d.Name == "":
		return InvalidInput("nombre requerido")
	case d.Address == "" || d.City == "" || d.PostalCode == "":
		return InvalidInput("dirección incompleta")
	case !d.PaymentMethod.Valid():
		return InvalidInput("método de pago inválido")
	}
	return nil
}
