package settlement

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rzpatryk/BuggyVege/internal/domain/accounts"
	"github.com/rzpatryk/BuggyVege/internal/domain/ledger"
	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
)

type DepositRequest struct {
	Amount        decimal.Decimal
	PaymentMethod string
	Description   string
}

type DepositResult struct {
	Entry      *ledger.Entry
	NewBalance decimal.Decimal
}

type PurchaseItem struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

type PurchaseRequest struct {
	Items           []PurchaseItem         `json:"items" validate:"required,min=1,dive"`
	ShippingAddress orders.ShippingAddress `json:"shippingAddress"`
}

type PurchaseResult struct {
	Order      *orders.Order
	Entry      *ledger.Entry
	NewBalance decimal.Decimal
}

type RefundResult struct {
	Order        *orders.Order
	Entry        *ledger.Entry
	RefundAmount decimal.Decimal
	NewBalance   decimal.Decimal
}

type CancelResult struct {
	Order *orders.Order
	// Entry is nil when nothing had been paid from the wallet.
	Entry      *ledger.Entry
	NewBalance decimal.Decimal
}

type Balance struct {
	Balance  decimal.Decimal
	Currency string
}

func balanceOf(acc *accounts.Account) Balance {
	return Balance{Balance: acc.Balance(), Currency: acc.Currency()}
}

type HistoryQuery struct {
	Page  int
	Limit int
	Kind  string
}

type History struct {
	Entries []*ledger.Entry
	Total   int
	Page    int
	Limit   int
}

type OrderHistoryQuery struct {
	Page  int
	Limit int
}

type OrderHistory struct {
	Orders []*orders.Order
	Total  int
	Page   int
	Limit  int
}

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// NormalizePage applies the listing defaults to a zero page or limit and
// rejects values out of range.
func NormalizePage(page, limit int) (int, int, error) {
	if page == 0 {
		page = defaultPage
	}

	if limit == 0 {
		limit = defaultLimit
	}

	if page < 1 {
		return 0, 0, validationError("page", "must be at least 1")
	}

	if limit < 1 || limit > maxLimit {
		return 0, 0, validationError("limit", "must be between 1 and 100")
	}

	return page, limit, nil
}

func newValidator() *validator.Validate {
	v := validator.New()

	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// toValidationError converts the first failed field of a validator error
// into a ValidationError named by its JSON path, e.g. "shippingAddress.city".
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return validationError("request", err.Error())
	}

	fe := verrs[0]

	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	return validationError(field, "failed on '"+fe.Tag()+"'")
}
