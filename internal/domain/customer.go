package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer is created on first Google login and optionally owns orders.
type Customer struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email      string    `gorm:"size:140;uniqueIndex" json:"email"`
	Name       string    `gorm:"size:140" json:"name"`
	Phone      string    `gorm:"size:60" json:"phone"`
	Address    string    `gorm:"size:255" json:"address"`
	City       string    `gorm:"size:120" json:"city"`
	PostalCode string    `gorm:"size:20" json:"postal_code"`
	CreatedAt  time.Time `json:"created_at"`
}

// Prefill copies the stored address book into an empty checkout form.
func (c *Customer) Prefill(d *CheckoutData) {
	if c == nil {
		return
	}
	id := c.ID
	d.CustomerID = &id
	if d.Email == "" {
		d.Email = c.Email
	}
	if d.Name == "" {
		d.Name = c.Name
	}
	if d.Phone == "" {
		d.Phone = c.Phone
	}
	if d.Address == "" {
		d.Address = c.Address
	}
	if d.City == "" {
		d.City = c.City
	}
	if d.PostalCode == "" {
		d.PostalCode = c.PostalCode
	}
}
