package transport

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"shop/pkg/catalog/domain/model"
	"shop/pkg/catalog/domain/service"
	"shop/pkg/common/httpx"
)

type Handler struct {
	products service.ProductService
}

func NewHandler(products service.ProductService) *Handler {
	return &Handler{products: products}
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	r.HandleFunc("/products", h.createProduct).Methods(http.MethodPost)
	r.HandleFunc("/products/bulk", h.bulkCreate).Methods(http.MethodPost)
	r.HandleFunc("/products/{id:[0-9]+}", h.getProduct).Methods(http.MethodGet)
	r.HandleFunc("/products/{id:[0-9]+}", h.updateProduct).Methods(http.MethodPut)
	r.HandleFunc("/products/{id:[0-9]+}/stock", h.setStock).Methods(http.MethodPatch)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "product-catalogue",
	})
}

// productResponse is the wire form of a product; discounted_price is derived
// on every read, never stored.
type productResponse struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Price              float64   `json:"price"`
	DiscountedPrice    float64   `json:"discounted_price"`
	DiscountPercentage float64   `json:"discount_percentage"`
	StockQuantity      int       `json:"stock_quantity"`
	Category           string    `json:"category"`
	ImageURL           *string   `json:"image_url"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func newProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		Price:              p.Price,
		DiscountedPrice:    p.DiscountedPrice(),
		DiscountPercentage: p.DiscountPercentage,
		StockQuantity:      p.StockQuantity,
		Category:           p.Category,
		ImageURL:           p.ImageURL,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filter := model.ListFilter{
		Category:  r.URL.Query().Get("category"),
		Search:    r.URL.Query().Get("search"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}

	products, err := h.products.ListProducts(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}

	result := make([]productResponse, 0, len(products))
	for i := range products {
		result = append(result, newProductResponse(&products[i]))
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"products": result,
		"pagination": map[string]int{
			"page":     1,
			"per_page": len(result),
			"total":    len(result),
			"pages":    pages(len(result)),
		},
	})
}

func pages(total int) int {
	if total > 0 {
		return 1
	}
	return 0
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	product, err := h.products.GetProduct(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, newProductResponse(product))
}

type productRequest struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Price              *float64 `json:"price"`
	StockQuantity      *int     `json:"stock_quantity"`
	Category           string   `json:"category"`
	ImageURL           *string  `json:"image_url"`
	DiscountPercentage *float64 `json:"discount_percentage"`
}

func (req *productRequest) params() service.ProductParams {
	return service.ProductParams{
		Name:               req.Name,
		Description:        req.Description,
		Price:              req.Price,
		StockQuantity:      req.StockQuantity,
		Category:           req.Category,
		ImageURL:           req.ImageURL,
		DiscountPercentage: req.DiscountPercentage,
	}
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.products.CreateProduct(r.Context(), req.params())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusCreated, newProductResponse(product))
}

type updateProductRequest struct {
	Name               *string  `json:"name"`
	Description        *string  `json:"description"`
	Price              *float64 `json:"price"`
	StockQuantity      *int     `json:"stock_quantity"`
	Category           *string  `json:"category"`
	ImageURL           *string  `json:"image_url"`
	DiscountPercentage *float64 `json:"discount_percentage"`
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	product, err := h.products.UpdateProduct(r.Context(), id, service.UpdateProductParams{
		Name:               req.Name,
		Description:        req.Description,
		Price:              req.Price,
		StockQuantity:      req.StockQuantity,
		Category:           req.Category,
		ImageURL:           req.ImageURL,
		DiscountPercentage: req.DiscountPercentage,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, newProductResponse(product))
}

type stockRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	product, err := h.products.SetStock(r.Context(), id, req.Quantity)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, newProductResponse(product))
}

type bulkRequest struct {
	Products []productRequest `json:"products"`
}

func (h *Handler) bulkCreate(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params := make([]service.ProductParams, 0, len(req.Products))
	for i := range req.Products {
		params = append(params, req.Products[i].params())
	}

	result, err := h.products.BulkCreate(r.Context(), params)
	if err != nil {
		h.respondError(w, err)
		return
	}

	created := make([]productResponse, 0, len(result.Created))
	for i := range result.Created {
		created = append(created, newProductResponse(&result.Created[i]))
	}
	httpx.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"created":  len(created),
		"products": created,
		"errors":   result.Errors,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.RespondError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, model.ErrProductNotFound):
		httpx.RespondError(w, http.StatusNotFound, "Product not found")
	default:
		log.WithError(err).Error("product request failed")
		httpx.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// pathID parses the {id} route variable. The route constraint keeps it
// numeric, but a value past int64 still has to be rejected here.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
