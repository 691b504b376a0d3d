package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rzpatryk/BuggyVege/internal/domain/products"
	"github.com/rzpatryk/BuggyVege/internal/errmsg"
	"github.com/rzpatryk/BuggyVege/internal/server/models"
	"github.com/rzpatryk/BuggyVege/internal/storage"
)

func isProductInvalid(err error) bool {
	return errors.Is(err, products.ErrProductNameEmpty) ||
		errors.Is(err, products.ErrProductPriceInvalid) ||
		errors.Is(err, products.ErrProductOfferPriceInvalid)
}

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := h.listingPage(w, r)
	if !ok {
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("category"))

	prods, total, err := h.storage.ListProducts(r.Context(), category, storage.Page{Number: page, Size: limit})
	if err != nil {
		h.log.Error("storage.ListProducts()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	resp := models.ProductListResponse{
		Products:   make([]models.ProductResponse, 0, len(prods)),
		Pagination: models.NewPagination(page, limit, total),
	}

	for _, p := range prods {
		resp.Products = append(resp.Products, models.NewProductResponse(p))
	}

	handleJSONResponse(w, http.StatusOK, resp)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := urlID(r, "productID")
	if err != nil {
		handleError(w, errmsg.ErrRequestIDInvalid)

		return
	}

	product, err := h.storage.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			handleError(w, errmsg.ErrProductNotFound)

			return
		}

		h.log.Error("storage.GetProduct()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, models.NewProductResponse(product))
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var payload models.ProductRequest

	if !h.decodeJSON(w, r, &payload, false) {
		return
	}

	product, err := products.NewProduct(
		payload.Name, payload.Category, payload.Descriptions, payload.Price, payload.OfferPrice,
	)
	if err != nil {
		if isProductInvalid(err) {
			handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

			return
		}

		h.log.Error("products.NewProduct()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if err := h.storage.CreateProduct(r.Context(), product); err != nil {
		h.log.Error("storage.CreateProduct()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	h.log.Info("Product created", slog.String("product_id", product.ID.String()))

	handleJSONResponse(w, http.StatusCreated, models.NewProductResponse(product))
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := urlID(r, "productID")
	if err != nil {
		handleError(w, errmsg.ErrRequestIDInvalid)

		return
	}

	var payload models.ProductPatchRequest

	if !h.decodeJSON(w, r, &payload, false) {
		return
	}

	patch, err := payload.Patch()
	if err != nil {
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	product, err := h.storage.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			handleError(w, errmsg.ErrProductNotFound)

			return
		}

		h.log.Error("storage.GetProduct()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if err := product.Apply(patch, time.Now().UTC()); err != nil {
		if isProductInvalid(err) {
			handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

			return
		}

		h.log.Error("product.Apply()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if err := h.storage.UpdateProduct(r.Context(), product); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			handleError(w, errmsg.ErrProductNotFound)

			return
		}

		h.log.Error("storage.UpdateProduct()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, models.NewProductResponse(product))
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := urlID(r, "productID")
	if err != nil {
		handleError(w, errmsg.ErrRequestIDInvalid)

		return
	}

	if err := h.storage.DeleteProduct(r.Context(), productID); err != nil {
		h.handleStorageError(w, "storage.DeleteProduct()", err)

		return
	}

	h.log.Info("Product deleted", slog.String("product_id", productID.String()))

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "product deleted"})
}
