package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CartStore is the cart surface the handlers drive.
type CartStore interface {
	Add(p domain.Product)
	Increase(productID int64)
	Decrease(productID int64)
	Remove(productID int64)
	Clear()
	Snapshot() domain.Cart
}

type CartHandler struct {
	cart    CartStore
	catalog *catalog.Catalog
}

func NewCartHandler(cart CartStore, cat *catalog.Catalog) *CartHandler {
	return &CartHandler{
		cart:    cart,
		catalog: cat,
	}
}

type AddItemRequestDTO struct {
	ProductID int64            `json:"product_id"`
	Name      string           `json:"name,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cart.Snapshot())
}

// AddItem adds a product by id. Name and price come from the catalog when
// the product is known there; otherwise from the request body.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}

	product := domain.Product{ID: req.ProductID, Name: req.Name, Price: req.Price}
	if h.catalog != nil {
		if p, ok := h.catalog.Get(req.ProductID); ok {
			product = p
		}
	}
	if product.Name == "" {
		respondError(w, http.StatusBadRequest, "invalid_name", "name is required for products outside the catalog")
		return
	}

	h.cart.Add(product)
	respondJSON(w, http.StatusCreated, h.cart.Snapshot())
}

func (h *CartHandler) IncreaseQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	h.cart.Increase(productID)
	respondJSON(w, http.StatusOK, h.cart.Snapshot())
}

func (h *CartHandler) DecreaseQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	h.cart.Decrease(productID)
	respondJSON(w, http.StatusOK, h.cart.Snapshot())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	h.cart.Remove(productID)
	respondJSON(w, http.StatusOK, h.cart.Snapshot())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear()
	respondJSON(w, http.StatusOK, h.cart.Snapshot())
}

type ProductPageDTO struct {
	Page    int              `json:"page"`
	Items   []domain.Product `json:"items"`
	HasMore bool             `json:"has_more"`
}

func (h *CartHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := 1
	if s := r.URL.Query().Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
			return
		}
		page = n
	}

	items, more := h.catalog.Page(page, catalog.DefaultPageSize)
	respondJSON(w, http.StatusOK, ProductPageDTO{Page: page, Items: items, HasMore: more})
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}
