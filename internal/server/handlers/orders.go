package handlers

import (
	"net/http"

	"github.com/rzpatryk/BuggyVege/internal/domain/money"
	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
	"github.com/rzpatryk/BuggyVege/internal/errmsg"
	"github.com/rzpatryk/BuggyVege/internal/server/models"
	"github.com/rzpatryk/BuggyVege/internal/settlement"
)

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	page, limit, ok := h.pageQuery(w, r)
	if !ok {
		return
	}

	hist, err := h.engine.GetOrderHistory(r.Context(), userID, settlement.OrderHistoryQuery{Page: page, Limit: limit})
	if err != nil {
		h.handleServiceError(w, "engine.GetOrderHistory()", err)

		return
	}

	resp := models.OrderListResponse{
		Orders:     make([]models.OrderResponse, 0, len(hist.Orders)),
		Pagination: models.NewPagination(hist.Page, hist.Limit, hist.Total),
	}

	for _, o := range hist.Orders {
		resp.Orders = append(resp.Orders, models.NewOrderResponse(o))
	}

	handleJSONResponse(w, http.StatusOK, resp)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	orderID, err := urlID(r, "orderID")
	if err != nil {
		handleError(w, errmsg.ErrRequestIDInvalid)

		return
	}

	order, err := h.engine.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		h.handleServiceError(w, "engine.GetOrder()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.NewOrderResponse(order))
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	orderID, err := urlID(r, "orderID")
	if err != nil {
		handleError(w, errmsg.ErrRequestIDInvalid)

		return
	}

	var payload models.CancelRequest

	if !h.decodeJSON(w, r, &payload, true) {
		return
	}

	res, err := h.engine.Cancel(r.Context(), userID, orderID, payload.Reason)
	if err != nil {
		h.handleServiceError(w, "engine.Cancel()", err)

		return
	}

	resp := models.CancelResponse{
		Order:      models.NewOrderResponse(res.Order),
		NewBalance: money.String(res.NewBalance),
	}

	if res.Entry != nil {
		tx := models.NewTransactionResponse(res.Entry)
		resp.Transaction = &tx
	}

	handleJSONResponse(w, http.StatusOK, resp)
}

// UpdateOrderStatus lets an admin move an order along its fulfillment path.
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := urlID(r, "orderID")
	if err != nil {
		handleError(w, errmsg.ErrRequestIDInvalid)

		return
	}

	var payload models.OrderStatusRequest

	if !h.decodeJSON(w, r, &payload, false) {
		return
	}

	next, err := orders.ParseOrderStatus(payload.Status)
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	order, err := h.engine.AdvanceOrder(r.Context(), orderID, next)
	if err != nil {
		h.handleServiceError(w, "engine.AdvanceOrder()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.NewOrderResponse(order))
}
