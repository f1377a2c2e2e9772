package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"shop/pkg/common/authmw"
	"shop/pkg/common/httpx"
	"shop/pkg/orders/domain/model"
	"shop/pkg/orders/domain/service"
)

type Handler struct {
	orders   service.OrderService
	verifier authmw.Verifier
}

func NewHandler(orders service.OrderService, verifier authmw.Verifier) *Handler {
	return &Handler{orders: orders, verifier: verifier}
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	protected := r.NewRoute().Subrouter()
	protected.Use(authmw.Authenticate(h.verifier))
	protected.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost)
	protected.Handle("/orders",
		authmw.RequireRole(authmw.RoleAdmin)(http.HandlerFunc(h.listOrders))).Methods(http.MethodGet)
	protected.HandleFunc("/orders/user/{id:[0-9]+}", h.listUserOrders).Methods(http.MethodGet)
	protected.HandleFunc("/orders/{id:[0-9]+}", h.getOrder).Methods(http.MethodGet)
	protected.Handle("/orders/{id:[0-9]+}/status",
		authmw.RequireRole(authmw.RoleAdmin)(http.HandlerFunc(h.updateStatus))).Methods(http.MethodPatch)
	protected.HandleFunc("/orders/{id:[0-9]+}/payment", h.updatePayment).Methods(http.MethodPatch)

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "order-processing",
	})
}

type createOrderRequest struct {
	Items []struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	} `json:"items"`
	ShippingAddress string `json:"shipping_address"`
	Notes           string `json:"notes"`
	PaymentStatus   string `json:"payment_status"`
}

// createOrder always charges the order to the authenticated buyer; any
// caller-supplied user id is ignored.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())

	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := service.CreateOrderInput{
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		PaymentStatus:   req.PaymentStatus,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, service.ItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.orders.CreateOrder(r.Context(), claims.UserID, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusCreated, order)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !claims.CanAccess(order.UserID) {
		httpx.RespondError(w, http.StatusForbidden, "Access denied")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, order)
}

func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	userID, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if !claims.CanAccess(userID) {
		httpx.RespondError(w, http.StatusForbidden, "Access denied")
		return
	}

	orders, err := h.orders.ListUserOrders(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, orders)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, model.OrderStatus(req.Status))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, order)
}

type updatePaymentRequest struct {
	PaymentStatus string `json:"payment_status"`
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !claims.CanAccess(order.UserID) {
		httpx.RespondError(w, http.StatusForbidden, "Access denied")
		return
	}

	var req updatePaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.orders.UpdatePaymentStatus(r.Context(), order.ID, model.PaymentStatus(req.PaymentStatus))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, updated)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var notFound *service.ProductNotFoundError
	var insufficient *service.InsufficientStockError
	var stockUpdate *service.StockUpdateError

	switch {
	case errors.Is(err, service.ErrEmptyOrder):
		httpx.RespondError(w, http.StatusBadRequest, "Order must contain at least one item")
	case errors.Is(err, service.ErrMissingProductID):
		httpx.RespondError(w, http.StatusBadRequest, "product_id is required for each item")
	case errors.Is(err, service.ErrInvalidQuantity):
		httpx.RespondError(w, http.StatusBadRequest, "Quantity must be greater than 0")
	case errors.Is(err, service.ErrInvalidStatus):
		httpx.RespondError(w, http.StatusBadRequest, "Invalid status")
	case errors.Is(err, service.ErrInvalidPaymentStatus):
		httpx.RespondError(w, http.StatusBadRequest, "Invalid payment status")
	case errors.As(err, &notFound):
		httpx.RespondError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &insufficient):
		httpx.RespondError(w, http.StatusBadRequest, insufficient.Error())
	case errors.As(err, &stockUpdate):
		httpx.RespondError(w, http.StatusInternalServerError, stockUpdate.Error())
	case errors.Is(err, model.ErrOrderNotFound):
		httpx.RespondError(w, http.StatusNotFound, "Order not found")
	default:
		log.WithError(err).Error("order request failed")
		httpx.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// pathID parses the {id} route variable. The route constraint keeps it
// numeric, but a value past int64 still has to be rejected here.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
