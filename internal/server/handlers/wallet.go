package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rzpatryk/BuggyVege/internal/domain/money"
	"github.com/rzpatryk/BuggyVege/internal/errmsg"
	"github.com/rzpatryk/BuggyVege/internal/server/models"
	"github.com/rzpatryk/BuggyVege/internal/settlement"
)

func (h *Handlers) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	balance, err := h.engine.GetBalance(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, "engine.GetBalance()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.BalanceResponse{
		Balance:  money.String(balance.Balance),
		Currency: balance.Currency,
	})
}

func (h *Handlers) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var payload models.DepositRequest

	if !h.decodeJSON(w, r, &payload, false) {
		return
	}

	res, err := h.engine.Deposit(r.Context(), userID, settlement.DepositRequest{
		Amount:        payload.Amount,
		PaymentMethod: payload.PaymentMethod,
		Description:   payload.Description,
	})
	if err != nil {
		h.handleServiceError(w, "engine.Deposit()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.DepositResponse{
		Transaction: models.NewTransactionResponse(res.Entry),
		NewBalance:  money.String(res.NewBalance),
	})
}

func (h *Handlers) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	page, limit, ok := h.pageQuery(w, r)
	if !ok {
		return
	}

	hist, err := h.engine.GetHistory(r.Context(), userID, settlement.HistoryQuery{
		Page:  page,
		Limit: limit,
		Kind:  r.URL.Query().Get("type"),
	})
	if err != nil {
		h.handleServiceError(w, "engine.GetHistory()", err)

		return
	}

	resp := models.TransactionListResponse{
		Transactions: make([]models.TransactionResponse, 0, len(hist.Entries)),
		Pagination:   models.NewPagination(hist.Page, hist.Limit, hist.Total),
	}

	for _, e := range hist.Entries {
		resp.Transactions = append(resp.Transactions, models.NewTransactionResponse(e))
	}

	handleJSONResponse(w, http.StatusOK, resp)
}

func (h *Handlers) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var payload settlement.PurchaseRequest

	if !h.decodeJSON(w, r, &payload, false) {
		return
	}

	res, err := h.engine.Purchase(r.Context(), userID, payload)
	if err != nil {
		h.handleServiceError(w, "engine.Purchase()", err)

		return
	}

	handleJSONResponse(w, http.StatusCreated, models.PurchaseResponse{
		Order:       models.NewOrderResponse(res.Order),
		Transaction: models.NewTransactionResponse(res.Entry),
		NewBalance:  money.String(res.NewBalance),
	})
}

func (h *Handlers) Refund(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var payload models.RefundRequest

	if !h.decodeJSON(w, r, &payload, false) {
		return
	}

	if payload.OrderID == uuid.Nil {
		handleError(w, errmsg.ErrRequestIDInvalid)

		return
	}

	res, err := h.engine.Refund(r.Context(), userID, payload.OrderID, payload.Reason)
	if err != nil {
		h.handleServiceError(w, "engine.Refund()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.RefundResponse{
		Order:        models.NewOrderResponse(res.Order),
		Transaction:  models.NewTransactionResponse(res.Entry),
		RefundAmount: money.String(res.RefundAmount),
		NewBalance:   money.String(res.NewBalance),
	})
}
