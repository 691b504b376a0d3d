package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rzpatryk/BuggyVege/internal/domain/money"
	"github.com/rzpatryk/BuggyVege/internal/domain/orders"
	"github.com/rzpatryk/BuggyVege/internal/domain/reviews"
	"github.com/rzpatryk/BuggyVege/internal/errmsg"
	"github.com/rzpatryk/BuggyVege/internal/server/models"
	"github.com/rzpatryk/BuggyVege/internal/storage"
)

func isReviewInvalid(err error) bool {
	return errors.Is(err, reviews.ErrRatingInvalid) ||
		errors.Is(err, reviews.ErrTitleInvalid) ||
		errors.Is(err, reviews.ErrCommentInvalid) ||
		errors.Is(err, reviews.ErrPointInvalid) ||
		errors.Is(err, reviews.ErrStatusInvalid)
}

func (h *Handlers) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := urlID(r, "productID")
	if err != nil {
		handleError(w, errmsg.ErrRequestIDInvalid)

		return
	}

	page, limit, ok := h.listingPage(w, r)
	if !ok {
		return
	}

	if _, err := h.storage.GetProduct(r.Context(), productID); err != nil {
		h.handleStorageError(w, "storage.GetProduct()", err)

		return
	}

	list, total, err := h.storage.ListProductReviews(r.Context(), productID, reviews.StatusApproved,
		storage.Page{Number: page, Size: limit})
	if err != nil {
		h.handleStorageError(w, "storage.ListProductReviews()", err)

		return
	}

	counts, err := h.storage.RatingCounts(r.Context(), productID)
	if err != nil {
		h.handleStorageError(w, "storage.RatingCounts()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.ProductReviewsResponse{
		Reviews:    models.NewReviewResponses(list),
		Stats:      models.NewReviewStatsResponse(reviews.NewStats(counts)),
		Pagination: models.NewPagination(page, limit, total),
	})
}

func (h *Handlers) CreateReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var payload models.ReviewRequest

	if !h.decodeJSON(w, r, &payload, false) {
		return
	}

	if payload.ProductID == uuid.Nil || payload.OrderID == uuid.Nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, errors.New("productId and orderId are required")))

		return
	}

	review, err := reviews.NewReview(userID, payload.ProductID, payload.OrderID, payload.Rating,
		payload.Title, payload.Comment, payload.Pros, payload.Cons, time.Now().UTC())
	if err != nil {
		if isReviewInvalid(err) {
			handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

			return
		}

		h.log.Error("reviews.NewReview()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if _, err := h.storage.GetProduct(r.Context(), payload.ProductID); err != nil {
		h.handleStorageError(w, "storage.GetProduct()", err)

		return
	}

	order, err := h.storage.GetOrder(r.Context(), payload.OrderID)
	if err != nil {
		h.handleStorageError(w, "storage.GetOrder()", err)

		return
	}

	if order.UserID != userID {
		handleError(w, errmsg.ErrOrderNotFound)

		return
	}

	if err := reviews.CheckPurchase(order, userID, payload.ProductID); err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusForbidden, err))

		return
	}

	if err := h.storage.CreateReview(r.Context(), review); err != nil {
		h.handleStorageError(w, "storage.CreateReview()", err)

		return
	}

	h.log.Info("Review created",
		slog.String("review_id", review.ID.String()),
		slog.String("product_id", review.ProductID.String()),
	)

	handleJSONResponse(w, http.StatusCreated, models.NewReviewResponse(review))
}

func (h *Handlers) ListMyReviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	page, limit, ok := h.listingPage(w, r)
	if !ok {
		return
	}

	list, total, err := h.storage.ListUserReviews(r.Context(), userID, storage.Page{Number: page, Size: limit})
	if err != nil {
		h.handleStorageError(w, "storage.ListUserReviews()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.ReviewListResponse{
		Reviews:    models.NewReviewResponses(list),
		Pagination: models.NewPagination(page, limit, total),
	})
}

// ProductsToReview lists products from delivered orders the user has not
// reviewed yet, each once, from the newest order that contains it.
func (h *Handlers) ProductsToReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	delivered, err := h.storage.GetUserOrdersByStatus(r.Context(), userID, orders.OrderStatusDelivered)
	if err != nil {
		h.handleStorageError(w, "storage.GetUserOrdersByStatus()", err)

		return
	}

	reviewed, err := h.storage.ReviewedProductIDs(r.Context(), userID)
	if err != nil {
		h.handleStorageError(w, "storage.ReviewedProductIDs()", err)

		return
	}

	seen := make(map[uuid.UUID]bool, len(reviewed))
	for _, id := range reviewed {
		seen[id] = true
	}

	resp := models.ProductsToReviewResponse{Products: make([]models.ProductToReviewResponse, 0)}

	for _, ord := range delivered {
		for _, item := range ord.Items {
			if seen[item.ProductID] {
				continue
			}

			seen[item.ProductID] = true

			product, err := h.storage.GetProduct(r.Context(), item.ProductID)
			if errors.Is(err, storage.ErrProductNotFound) {
				continue
			}

			if err != nil {
				h.handleStorageError(w, "storage.GetProduct()", err)

				return
			}

			resp.Products = append(resp.Products, models.ProductToReviewResponse{
				OrderID:     ord.ID.String(),
				OrderNumber: ord.Number,
				OrderDate:   ord.CreatedAt.Format(time.RFC3339),
				ProductID:   item.ProductID.String(),
				ProductName: product.Name,
				Quantity:    item.Quantity,
				UnitPrice:   money.String(item.UnitPrice),
			})
		}
	}

	handleJSONResponse(w, http.StatusOK, resp)
}

func (h *Handlers) UpdateReview(w http.ResponseWriter, r *http.Request) {
	review, ok := h.ownReview(w, r)
	if !ok {
		return
	}

	var payload models.ReviewPatchRequest

	if !h.decodeJSON(w, r, &payload, false) {
		return
	}

	if err := review.Apply(payload.Patch(), time.Now().UTC()); err != nil {
		if isReviewInvalid(err) {
			handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

			return
		}

		h.log.Error("review.Apply()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if err := h.storage.UpdateReview(r.Context(), review); err != nil {
		h.handleStorageError(w, "storage.UpdateReview()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.NewReviewResponse(review))
}

func (h *Handlers) DeleteReview(w http.ResponseWriter, r *http.Request) {
	review, ok := h.ownReview(w, r)
	if !ok {
		return
	}

	if err := h.storage.DeleteReview(r.Context(), review.ID); err != nil {
		h.handleStorageError(w, "storage.DeleteReview()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "review deleted"})
}

func (h *Handlers) MarkReviewHelpful(w http.ResponseWriter, r *http.Request) {
	reviewID, err := urlID(r, "reviewID")
	if err != nil {
		handleError(w, errmsg.ErrRequestIDInvalid)

		return
	}

	review, err := h.storage.AddHelpfulVote(r.Context(), reviewID)
	if err != nil {
		h.handleStorageError(w, "storage.AddHelpfulVote()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.NewReviewResponse(review))
}

func (h *Handlers) ListPendingReviews(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := h.listingPage(w, r)
	if !ok {
		return
	}

	list, total, err := h.storage.ListReviewsByStatus(r.Context(), reviews.StatusPending,
		storage.Page{Number: page, Size: limit})
	if err != nil {
		h.handleStorageError(w, "storage.ListReviewsByStatus()", err)

		return
	}

	handleJSONResponse(w, http.StatusOK, models.ReviewListResponse{
		Reviews:    models.NewReviewResponses(list),
		Pagination: models.NewPagination(page, limit, total),
	})
}

func (h *Handlers) ModerateReview(w http.ResponseWriter, r *http.Request) {
	reviewID, err := urlID(r, "reviewID")
	if err != nil {
		handleError(w, errmsg.ErrRequestIDInvalid)

		return
	}

	var payload models.ModerationRequest

	if !h.decodeJSON(w, r, &payload, false) {
		return
	}

	review, err := h.storage.GetReview(r.Context(), reviewID)
	if err != nil {
		h.handleStorageError(w, "storage.GetReview()", err)

		return
	}

	if err := review.Moderate(reviews.Status(payload.Status), payload.ModeratorNote, time.Now().UTC()); err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.storage.UpdateReview(r.Context(), review); err != nil {
		h.handleStorageError(w, "storage.UpdateReview()", err)

		return
	}

	h.log.Info("Review moderated",
		slog.String("review_id", review.ID.String()),
		slog.String("status", review.Status.String()),
	)

	handleJSONResponse(w, http.StatusOK, models.NewReviewResponse(review))
}

// ownReview loads the review named in the URL and checks the caller wrote it.
func (h *Handlers) ownReview(w http.ResponseWriter, r *http.Request) (*reviews.Review, bool) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return nil, false
	}

	reviewID, err := urlID(r, "reviewID")
	if err != nil {
		handleError(w, errmsg.ErrRequestIDInvalid)

		return nil, false
	}

	review, err := h.storage.GetReview(r.Context(), reviewID)
	if err != nil {
		h.handleStorageError(w, "storage.GetReview()", err)

		return nil, false
	}

	if review.UserID != userID {
		handleError(w, errmsg.ErrReviewNotOwned)

		return nil, false
	}

	return review, true
}

// handleStorageError maps storage sentinels of the catalog and review
// stores to responses.
func (h *Handlers) handleStorageError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrProductNotFound):
		handleError(w, errmsg.ErrProductNotFound)

	case errors.Is(err, storage.ErrOrderNotFound):
		handleError(w, errmsg.ErrOrderNotFound)

	case errors.Is(err, storage.ErrReviewNotFound):
		handleError(w, errmsg.ErrReviewNotFound)

	case errors.Is(err, storage.ErrReviewExists):
		handleError(w, errmsg.ErrReviewAlreadyExists)

	default:
		h.log.Error(op, slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
	}
}
