package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/phenrril/tiendavirtual/internal/domain"
)

type ProductUC struct {
	Tx       domain.TxManager
	Products domain.ProductRepo
	Taxonomy domain.TaxonomyRepo
}

func (uc *ProductUC) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	return uc.Products.List(ctx, f)
}

// GetBySlug only returns active products.
func (uc *ProductUC) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if slug == "" {
		return nil, errors.New("slug vacío")
	}
	p, err := uc.Products.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (uc *ProductUC) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return uc.Products.FindByID(ctx, id)
}

func validateProduct(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return domain.InvalidInput("nombre vacío")
	}
	if p.BasePrice.IsNegative() || p.Stock < 0 {
		return domain.InvalidInput("precio o stock negativo")
	}
	for _, s := range []decimal.Decimal{p.NameSurcharge, p.ColorSurcharge, p.TextureSurcharge} {
		if s.IsNegative() {
			return domain.InvalidInput("recargo negativo")
		}
	}
	switch p.Family {
	case "":
		p.Family = domain.FamilyStandard
	case domain.FamilyStandard, domain.FamilyPants:
	default:
		return domain.InvalidInput("familia desconocida")
	}
	return nil
}

// Save creates or updates a product. An empty slug is derived from the name
// and made unique with a numeric suffix. Updates keep the stored stock; use
// SetStock to change it.
func (uc *ProductUC) Save(ctx context.Context, p *domain.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	base := p.Slug
	if strings.TrimSpace(base) == "" {
		base = p.Name
	}
	slug, err := domain.UniqueSlug(ctx, base, p.ID.String()[:8], func(ctx context.Context, s string) (bool, error) {
		return uc.Products.SlugTaken(ctx, s, p.ID)
	})
	if err != nil {
		return err
	}
	p.Slug = slug
	return uc.Tx.WithinTx(ctx, func(r domain.TxRepos) error {
		cur, err := r.Products.LockByID(ctx, p.ID)
		switch {
		case err == nil:
			p.Stock, p.CreatedAt = cur.Stock, cur.CreatedAt
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		return r.Products.Save(ctx, p)
	})
}

func (uc *ProductUC) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	if stock < 0 {
		return domain.InvalidInput("stock negativo")
	}
	return uc.Products.SetStock(ctx, id, stock)
}

func (uc *ProductUC) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errors.New("product id")
	}
	return uc.Products.Delete(ctx, id)
}

// FixSlugs rewrites every slug as unique ASCII and returns how many changed.
func (uc *ProductUC) FixSlugs(ctx context.Context) (int, error) {
	list, err := uc.Products.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	// Slugs that are already clean keep their owner; the rest are renamed
	// around them so the unique index never sees a collision.
	seen := map[string]bool{}
	var dirty []domain.Product
	for _, p := range list {
		if p.Slug != "" && domain.Slugify(p.Slug) == p.Slug && !seen[p.Slug] {
			seen[p.Slug] = true
			continue
		}
		dirty = append(dirty, p)
	}
	changed := 0
	for _, p := range dirty {
		base := p.Slug
		if domain.Slugify(base) == "" {
			base = p.Name
		}
		slug, err := domain.UniqueSlug(ctx, base, p.ID.String()[:8], func(_ context.Context, s string) (bool, error) {
			return seen[s], nil
		})
		if err != nil {
			return changed, err
		}
		seen[slug] = true
		if slug == p.Slug {
			continue
		}
		if err := uc.Products.UpdateSlug(ctx, p.ID, slug); err != nil {
			return changed, err
		}
		log.Info().Str("old", p.Slug).Str("new", slug).Msg("slug corregido")
		changed++
	}
	return changed, nil
}

// --- Variantes ---

func (uc *ProductUC) SaveVariant(ctx context.Context, v *domain.Variant) error {
	if v == nil || v.ProductID == uuid.Nil {
		return domain.InvalidInput("variante sin producto")
	}
	if v.Stock < 0 || v.Surcharge.IsNegative() {
		return domain.InvalidInput("stock o recargo negativo")
	}
	v.Size, v.Color = strings.TrimSpace(v.Size), strings.TrimSpace(v.Color)
	if v.Size == "" && v.Color == "" {
		return domain.InvalidInput("talla o color requerido")
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return uc.Tx.WithinTx(ctx, func(r domain.TxRepos) error {
		cur, err := r.Products.LockVariant(ctx, v.ID)
		switch {
		case err == nil:
			if cur.ProductID != v.ProductID {
				return domain.ErrNotFound
			}
			v.Stock, v.CreatedAt = cur.Stock, cur.CreatedAt
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		return r.Products.SaveVariant(ctx, v)
	})
}

func (uc *ProductUC) SetVariantStock(ctx context.Context, id uuid.UUID, stock int) error {
	if stock < 0 {
		return domain.InvalidInput("stock negativo")
	}
	return uc.Products.SetVariantStock(ctx, id, stock)
}

func (uc *ProductUC) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errors.New("variant id")
	}
	return uc.Products.DeleteVariant(ctx, id)
}

func (uc *ProductUC) ListVariants(ctx context.Context, productID uuid.UUID) ([]domain.Variant, error) {
	if productID == uuid.Nil {
		return nil, errors.New("product id")
	}
	return uc.Products.ListVariants(ctx, productID)
}

// --- Categorías y marcas ---

func (uc *ProductUC) Categories(ctx context.Context) ([]domain.Category, error) {
	return uc.Taxonomy.ListCategories(ctx)
}

func (uc *ProductUC) SaveCategory(ctx context.Context, c *domain.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return domain.InvalidInput("nombre vacío")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	slug, err := domain.UniqueSlug(ctx, c.Name, "", func(ctx context.Context, s string) (bool, error) {
		return uc.Taxonomy.CategorySlugTaken(ctx, s, c.ID)
	})
	if err != nil {
		return err
	}
	c.Slug = slug
	return uc.Taxonomy.SaveCategory(ctx, c)
}

func (uc *ProductUC) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return uc.Taxonomy.DeleteCategory(ctx, id)
}

func (uc *ProductUC) Brands(ctx context.Context) ([]domain.Brand, error) {
	return uc.Taxonomy.ListBrands(ctx)
}

func (uc *ProductUC) SaveBrand(ctx context.Context, b *domain.Brand) error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return domain.InvalidInput("nombre vacío")
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	slug, err := domain.UniqueSlug(ctx, b.Name, "", func(ctx context.Context, s string) (bool, error) {
		return uc.Taxonomy.BrandSlugTaken(ctx, s, b.ID)
	})
	if err != nil {
		return err
	}
	b.Slug = slug
	return uc.Taxonomy.SaveBrand(ctx, b)
}

func (uc *ProductUC) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	return uc.Taxonomy.DeleteBrand(ctx, id)
}

type StockUpdate struct {
	Slug  string
	Size  string
	Color string
	Stock int
}

type StockImportReport struct {
	Products int      `json:"products"`
	Variants int      `json:"variants"`
	Missing  []string `json:"missing"`
}

// ImportStock overwrites stock levels in one transaction. Rows without size
// or color target the product itself; the rest target the matching variant.
func (uc *ProductUC) ImportStock(ctx context.Context, rows []StockUpdate) (StockImportReport, error) {
	rep := StockImportReport{Missing: []string{}}
	for _, row := range rows {
		if row.Stock < 0 {
			return rep, domain.InvalidInput("stock negativo para " + row.Slug)
		}
	}
	err := uc.Tx.WithinTx(ctx, func(r domain.TxRepos) error {
		for _, row := range rows {
			p, err := r.Products.FindBySlug(ctx, row.Slug)
			if errors.Is(err, domain.ErrNotFound) {
				rep.Missing = append(rep.Missing, row.Slug)
				continue
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(row.Size) == "" && strings.TrimSpace(row.Color) == "" {
				if err := r.Products.SetStock(ctx, p.ID, row.Stock); err != nil {
					return err
				}
				rep.Products++
				continue
			}
			v, err := r.Products.FindVariantByAttrs(ctx, p.ID, row.Size, row.Color)
			if errors.Is(err, domain.ErrNotFound) {
				rep.Missing = append(rep.Missing, row.Slug+" "+row.Size+"/"+row.Color)
				continue
			}
			if err != nil {
				return err
			}
			if err := r.Products.SetVariantStock(ctx, v.ID, row.Stock); err != nil {
				return err
			}
			rep.Variants++
		}
		return nil
	})
	if err != nil {
		return StockImportReport{Missing: []string{}}, err
	}
	log.Info().Int("products", rep.Products).Int("variants", rep.Variants).Int("missing", len(rep.Missing)).Msg("stock importado")
	return rep, nil
}
