package products

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rzpatryk/BuggyVege/internal/domain/money"
)

var (
	ErrProductNameEmpty         = errors.New("product name is empty")
	ErrProductPriceInvalid      = errors.New("product price is invalid")
	ErrProductOfferPriceInvalid = errors.New("product offer price is invalid")
)

type Product struct {
	ID           uuid.UUID
	Name         string
	Category     string
	Descriptions []string
	Price        decimal.Decimal
	OfferPrice   decimal.NullDecimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewProduct(name, category string, descriptions []string, price decimal.Decimal, offer decimal.NullDecimal) (*Product, error) {
	now := time.Now().UTC()

	p := &Product{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Category:     strings.TrimSpace(category),
		Descriptions: descriptions,
		Price:        price,
		OfferPrice:   offer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if p.Descriptions == nil {
		p.Descriptions = []string{}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Product) Validate() error {
	if p.Name == "" {
		return ErrProductNameEmpty
	}

	if err := money.ValidatePositive(p.Price); err != nil {
		return fmt.Errorf("%w: %w", ErrProductPriceInvalid, err)
	}

	if p.OfferPrice.Valid {
		if err := money.ValidatePositive(p.OfferPrice.Decimal); err != nil {
			return fmt.Errorf("%w: %w", ErrProductOfferPriceInvalid, err)
		}
	}

	return nil
}

// UnitPrice is the price charged for one unit: the offer price when it is
// set and lower than the regular price, the regular price otherwise.
func (p *Product) UnitPrice() decimal.Decimal {
	if p.OfferPrice.Valid && p.OfferPrice.Decimal.IsPositive() {
		return decimal.Min(p.Price, p.OfferPrice.Decimal)
	}

	return p.Price
}

// Patch holds optional product changes; nil fields are left untouched.
type Patch struct {
	Name         *string
	Category     *string
	Descriptions []string
	Price        *decimal.Decimal
	OfferPrice   *decimal.NullDecimal
}

// Apply updates p with the fields set in patch and revalidates it.
func (p *Product) Apply(patch Patch, at time.Time) error {
	updated := *p

	if patch.Name != nil {
		updated.Name = strings.TrimSpace(*patch.Name)
	}

	if patch.Category != nil {
		updated.Category = strings.TrimSpace(*patch.Category)
	}

	if patch.Descriptions != nil {
		updated.Descriptions = patch.Descriptions
	}

	if patch.Price != nil {
		updated.Price = *patch.Price
	}

	if patch.OfferPrice != nil {
		updated.OfferPrice = *patch.OfferPrice
	}

	if err := updated.Validate(); err != nil {
		return err
	}

	updated.UpdatedAt = at
	*p = updated

	return nil
}
