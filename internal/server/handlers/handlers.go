package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"

	"github.com/rzpatryk/BuggyVege/internal/auth"
	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
	"github.com/rzpatryk/BuggyVege/internal/domain/users"
	"github.com/rzpatryk/BuggyVege/internal/errmsg"
	"github.com/rzpatryk/BuggyVege/internal/logger"
	"github.com/rzpatryk/BuggyVege/internal/server/models"
	"github.com/rzpatryk/BuggyVege/internal/settlement"
	"github.com/rzpatryk/BuggyVege/internal/storage"
)

// Engine is the settlement engine as seen by the HTTP layer.
type Engine interface {
	Deposit(ctx context.Context, userID uuid.UUID, req settlement.DepositRequest) (*settlement.DepositResult, error)
	Purchase(ctx context.Context, userID uuid.UUID, req settlement.PurchaseRequest) (*settlement.PurchaseResult, error)
	Refund(ctx context.Context, userID, orderID uuid.UUID, reason string) (*settlement.RefundResult, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID, reason string) (*settlement.CancelResult, error)
	AdvanceOrder(ctx context.Context, orderID uuid.UUID, next orders.OrderStatus) (*orders.Order, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (settlement.Balance, error)
	GetHistory(ctx context.Context, userID uuid.UUID, q settlement.HistoryQuery) (*settlement.History, error)
	GetOrderHistory(ctx context.Context, userID uuid.UUID, q settlement.OrderHistoryQuery) (*settlement.OrderHistory, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*orders.Order, error)
}

type Handlers struct {
	storage storage.Storage
	engine  Engine
	log     *slog.Logger
	auth    *auth.JWTAuth
}

// NewHandlers returns a new Handlers instance.
func NewHandlers(store storage.Storage, engine Engine, opts ...Option) *Handlers {
	handlers := &Handlers{
		storage: store,
		engine:  engine,
		log:     logger.Nop(),
		auth:    auth.NewJWTAuth([]byte("")),
	}

	for _, opt := range opts {
		opt(handlers)
	}

	return handlers
}

// Option is a functional option for Handlers.
type Option func(h *Handlers)

// WithLogger is a option for Handlers that sets logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		h.log = logger
	}
}

func WithAuth(auth *auth.JWTAuth) Option {
	return func(h *Handlers) {
		h.auth = auth
	}
}

type JSONResponse struct {
	Message any `json:"message,omitempty"`
	Error   any `json:"error,omitempty"`
	Details any `json:"details,omitempty"`
}

func handleJSONResponse(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func handleError(w http.ResponseWriter, err errmsg.HTTPError) {
	handleErrorDetails(w, err, nil)
}

func handleErrorDetails(w http.ResponseWriter, err errmsg.HTTPError, details any) {
	handleJSONResponse(w, err.Code, &JSONResponse{
		Error:   err.Error(),
		Details: details,
	})
}

// handleServiceError translates settlement and storage errors into responses.
func (h *Handlers) handleServiceError(w http.ResponseWriter, op string, err error) {
	var (
		valErr   *settlement.ValidationError
		fundsErr *settlement.InsufficientFundsError
	)

	switch {
	case errors.As(err, &valErr):
		handleErrorDetails(w, errmsg.NewHTTPError(http.StatusBadRequest, valErr), map[string]string{
			"field":  valErr.Field,
			"reason": valErr.Reason,
		})

	case errors.As(err, &fundsErr):
		handleErrorDetails(w, errmsg.NewHTTPError(http.StatusPaymentRequired, fundsErr), map[string]string{
			"required":  fundsErr.Required.StringFixed(2),
			"available": fundsErr.Available.StringFixed(2),
		})

	case errors.Is(err, settlement.ErrInvalidAmount):
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, stripCallSites(err)))

	case errors.Is(err, settlement.ErrAccountNotFound):
		handleError(w, errmsg.ErrAccountNotFound)

	case errors.Is(err, settlement.ErrProductNotFound):
		handleError(w, errmsg.ErrProductNotFound)

	case errors.Is(err, settlement.ErrOrderNotFound):
		handleError(w, errmsg.ErrOrderNotFound)

	case errors.Is(err, settlement.ErrAlreadyRefunded):
		handleError(w, errmsg.ErrOrderAlreadyRefunded)

	case errors.Is(err, settlement.ErrInvalidRefundState),
		errors.Is(err, settlement.ErrInvalidCancelState),
		errors.Is(err, settlement.ErrInvalidTransition):
		handleError(w, errmsg.NewHTTPError(http.StatusConflict, stripCallSites(err)))

	default:
		h.log.Error(op, slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, errors.New("internal server error")))
	}
}

// stripCallSites drops the "pkg.Func: " prefixes an error picked up on its
// way out of the engine.
func stripCallSites(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil || !strings.HasSuffix(err.Error(), ": "+next.Error()) {
			return err
		}

		err = next
	}
}

// decodeJSON reads the request body into dst. It writes the error response
// itself and reports false when the body cannot be used.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return true
			}

			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return false
		}

		h.log.Debug("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return false
	}

	return true
}

// userFromContext returns the user id from the JWT sub claim.
func userFromContext(ctx context.Context) (uuid.UUID, string, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("jwtauth.FromContext: %w", err)
	}

	userID, err := uuid.Parse(token.Subject())
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("uuid.Parse: %w", err)
	}

	role, _ := claims[auth.RoleClaim].(string)

	return userID, role, nil
}

// currentUser resolves the caller; on failure it has already responded.
func (h *Handlers) currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, _, err := userFromContext(r.Context())
	if err != nil {
		h.log.Error("userFromContext()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusUnauthorized, errors.New("token is invalid")))

		return uuid.Nil, false
	}

	return userID, true
}

// RequireRole rejects callers whose token does not carry role.
func RequireRole(role users.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, got, err := userFromContext(r.Context())
			if err != nil || got != string(role) {
				handleError(w, errmsg.ErrForbidden)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func urlID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		return uuid.Nil, fmt.Errorf("uuid.Parse: %w", err)
	}

	return id, nil
}

// queryInt returns 0 when the parameter is absent.
func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return n, nil
}

func (h *Handlers) pageQuery(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	page, err := queryInt(r, "page")
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return 0, 0, false
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return 0, 0, false
	}

	return page, limit, true
}

// listingPage reads page and limit and normalizes them for a storage listing.
func (h *Handlers) listingPage(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	page, limit, ok := h.pageQuery(w, r)
	if !ok {
		return 0, 0, false
	}

	page, limit, err := settlement.NormalizePage(page, limit)
	if err != nil {
		h.handleServiceError(w, "settlement.NormalizePage", err)

		return 0, 0, false
	}

	return page, limit, true
}

func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		h.log.Error("storage.Ping", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) UserRegister(w http.ResponseWriter, r *http.Request) {
	var payload models.UserRegisterRequest

	if !h.decodeJSON(w, r, &payload, false) {
		return
	}

	user, err := users.CreateUser(payload.Email, payload.Name, payload.Password)
	if err != nil {
		if errors.Is(err, users.ErrUserEmailInvalid) ||
			errors.Is(err, users.ErrUserNameEmpty) ||
			errors.Is(err, users.ErrUserPasswdTooShort) {
			handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

			return
		}

		h.log.Error("users.CreateUser()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if err := h.storage.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			handleError(w, errmsg.ErrUserAlreadyExists)

			return
		}

		h.log.Error("storage.CreateUser()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	h.respondToken(w, user, http.StatusCreated)
}

func (h *Handlers) UserLogin(w http.ResponseWriter, r *http.Request) {
	var payload models.UserLoginRequest

	if !h.decodeJSON(w, r, &payload, false) {
		return
	}

	user, err := h.storage.GetUserByEmail(r.Context(), payload.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			handleError(w, errmsg.ErrUserCredentialsInvalid)

			return
		}

		h.log.Error("storage.GetUserByEmail()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if err := user.CheckPassword(payload.Password); err != nil {
		if errors.Is(err, users.ErrUserCredentialsInvalid) {
			handleError(w, errmsg.ErrUserCredentialsInvalid)

			return
		}

		h.log.Error("user.CheckPassword()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	h.respondToken(w, user, http.StatusOK)
}

func (h *Handlers) respondToken(w http.ResponseWriter, user *users.User, status int) {
	token, err := h.auth.CreateJWTString(user.ID.String(), string(user.Role))
	if err != nil {
		h.log.Error("auth.CreateJWTString()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	handleJSONResponse(w, status, models.TokenResponse{Token: token})
}
