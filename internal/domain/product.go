package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Family selects the pricing rules applied to a product.
type Family string

const (
	FamilyStandard Family = "standard"
	FamilyPants    Family = "pants"
)

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Slug      string    `gorm:"size:140;uniqueIndex" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type Brand struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Slug      string    `gorm:"size:140;uniqueIndex" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Slug        string     `gorm:"uniqueIndex;size:140" json:"slug"`
	Name        string     `gorm:"size:180;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	CategoryID  *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	Category    *Category  `gorm:"foreignKey:CategoryID" json:"category"`
	BrandID     *uuid.UUID `gorm:"type:uuid;index" json:"brand_id"`
	Brand       *Brand     `gorm:"foreignKey:BrandID" json:"brand"`
	Family      Family     `gorm:"type:varchar(20);not null;default:'standard'" json:"family"`
	ImageURL    string     `gorm:"size:255" json:"image_url"`

	BasePrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"base_price"`
	Stock     int             `gorm:"type:int;not null;default:0" json:"stock"`
	Active    bool            `gorm:"not null;index" json:"active"`

	AllowsPersonalization bool            `gorm:"default:false" json:"allows_personalization"`
	NameSurcharge         decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"name_surcharge"`
	ColorSurcharge        decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"color_surcharge"`
	TextureSurcharge      decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"texture_surcharge"`

	Variants  []Variant `json:"variants"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Variant struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_variant_product_size_color" json:"product_id"`
	Size      string          `gorm:"size:40;uniqueIndex:idx_variant_product_size_color" json:"size"`
	Color     string          `gorm:"size:60;uniqueIndex:idx_variant_product_size_color" json:"color"`
	Stock     int             `gorm:"type:int;not null;default:0" json:"stock"`
	Surcharge decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"surcharge"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Label is the human readable size/color pair used in error messages.
func (v *Variant) Label() string {
	size, color := v.Size, v.Color
	if size == "" {
		size = "-"
	}
	if color == "" {
		color = "-"
	}
	return size + "/" + color
}

type ProductFilter struct {
	Query        string
	CategorySlug string
	BrandSlug    string
	Sort         string
	Page         int
	PageSize     int
	// IncludeInactive is only honored by the back-office listing.
	IncludeInactive bool
}
