package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	appcheckout "github.com/whatseat/fulfillment/internal/application/checkout"
	apporder "github.com/whatseat/fulfillment/internal/application/order"
	domcatalog "github.com/whatseat/fulfillment/internal/domain/catalog"
	dominv "github.com/whatseat/fulfillment/internal/domain/inventory"
	domorder "github.com/whatseat/fulfillment/internal/domain/order"
	domshipping "github.com/whatseat/fulfillment/internal/domain/shipping"
	"github.com/whatseat/fulfillment/internal/observability"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	// The identity service in front of this core injects the authenticated
	// customer; the header is trusted, not verified here.
	headerCustomerID = "X-Customer-ID"
)

type Handler struct {
	checkoutService *appcheckout.Service
	orderService    *apporder.Service
	fees            domshipping.FeeResolver
	log             observability.Logger
	tel             observability.Observability
}

func NewHandler(
	checkoutSvc *appcheckout.Service,
	orderSvc *apporder.Service,
	fees domshipping.FeeResolver,
	logger observability.Logger,
	tel observability.Observability,
) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handler{
		checkoutService: checkoutSvc,
		orderService:    orderSvc,
		fees:            fees,
		log:             logger.With(observability.F("component", componentHTTPHandler)),
		tel:             tel,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(ObservabilityMiddleware(h.log, h.tel))

	r.Post("/checkout", h.handleCheckout)
	r.Get("/orders/{id}", h.handleGetOrder)
	r.Get("/orders/{id}/history", h.handleOrderHistory)
	r.Put("/orders/{id}/cancel", h.handleCancelOrder)
	r.Get("/shipping-fee", h.handleShippingFee)
	r.Get("/health", h.handleHealth)

	return r
}

type lineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type checkoutRequest struct {
	Lines             []lineRequest `json:"lines"`
	ShippingProfileID string        `json:"shipping_profile_id"`
	PaymentMethodID   string        `json:"payment_method_id"`
	ServiceID         int           `json:"service_id"`
}

type orderLineResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type orderResponse struct {
	OrderID           string              `json:"order_id"`
	CustomerID        string              `json:"customer_id"`
	VendorID          string              `json:"vendor_id"`
	ShippingProfileID string              `json:"shipping_profile_id"`
	PaymentMethodID   string              `json:"payment_method_id"`
	ShippingFee       int64               `json:"shipping_fee"`
	Total             int64               `json:"total"`
	Lines             []orderLineResponse `json:"lines"`
	Status            string              `json:"status,omitempty"`
	StatusMessage     string              `json:"status_message,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

type statusRecordResponse struct {
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type cancelRequest struct {
	Message string `json:"message"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	customerID := r.Header.Get(headerCustomerID)
	if customerID == "" {
		writeError(w, http.StatusUnauthorized, "customer_required", "missing "+headerCustomerID, nil)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return
	}

	lines := make([]appcheckout.LineRequest, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, appcheckout.LineRequest{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	orders, err := h.checkoutService.Checkout(r.Context(), appcheckout.DecomposeInput{
		CustomerID:        customerID,
		Lines:             lines,
		ShippingProfileID: req.ShippingProfileID,
		PaymentMethodID:   req.PaymentMethodID,
		ServiceID:         req.ServiceID,
	})
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp := mapOrder(o)
		resp.Status = string(domorder.StatusWaiting)
		out = append(out, resp)
	}
	writeJSON(w, http.StatusCreated, out)
}

// writeCheckoutError maps the first blocking cause to a structured body with
// enough detail to identify the offending product or vendor.
func (h *Handler) writeCheckoutError(w http.ResponseWriter, err error) {
	var notFound *domcatalog.ProductNotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusBadRequest, "product_not_found", notFound.Error(), map[string]any{
			"product_id": notFound.ProductID,
		})
		return
	}

	var insufficient *dominv.InsufficientStockError
	if errors.As(err, &insufficient) {
		writeError(w, http.StatusConflict, "insufficient_stock", insufficient.Error(), map[string]any{
			"product_id": insufficient.ProductID,
			"requested":  insufficient.Requested,
			"available":  insufficient.Available,
		})
		return
	}

	var feeErr *domshipping.FeeUnavailableError
	if errors.As(err, &feeErr) {
		writeError(w, http.StatusBadRequest, "shipping_fee_unavailable", "cannot calculate shipping fee", map[string]any{
			"vendor_id": feeErr.VendorID,
		})
		return
	}

	switch {
	case errors.Is(err, appcheckout.ErrProfileNotFound):
		writeError(w, http.StatusBadRequest, "shipping_profile_not_found", err.Error(), nil)
	case errors.Is(err, appcheckout.ErrPersistence):
		writeError(w, http.StatusInternalServerError, "persistence_failure", "checkout could not be committed", nil)
	case errors.Is(err, domorder.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "invalid_quantity", err.Error(), nil)
	case errors.Is(err, appcheckout.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
	default:
		// Anything unclassified is an infrastructure failure, not a bad
		// request; a catalog or profile outage must not surface as a 4xx.
		writeError(w, http.StatusInternalServerError, "checkout_failed", "checkout could not be completed", nil)
	}
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	customerID := r.Header.Get(headerCustomerID)
	orderID := chi.URLParam(r, "id")

	view, err := h.orderService.Get(r.Context(), customerID, orderID)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapView(view))
}

func (h *Handler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	customerID := r.Header.Get(headerCustomerID)
	orderID := chi.URLParam(r, "id")

	history, err := h.orderService.History(r.Context(), customerID, orderID)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	out := make([]statusRecordResponse, 0, len(history))
	for _, rec := range history {
		out = append(out, statusRecordResponse{
			Status:     string(rec.Status),
			Message:    rec.Message,
			OccurredAt: rec.OccurredAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	customerID := r.Header.Get(headerCustomerID)
	orderID := chi.URLParam(r, "id")

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return
	}

	view, err := h.orderService.Cancel(r.Context(), customerID, orderID, req.Message)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapView(view))
}

func (h *Handler) writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domorder.ErrNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", err.Error(), nil)
	case errors.Is(err, domorder.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not_authorized", err.Error(), nil)
	case errors.Is(err, domorder.ErrMessageRequired):
		writeError(w, http.StatusBadRequest, "message_required", err.Error(), nil)
	case errors.Is(err, apporder.ErrNotCancelable):
		writeError(w, http.StatusConflict, "not_cancelable", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	}
}

func (h *Handler) handleShippingFee(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	serviceID, _ := strconv.Atoi(q.Get("service_id"))

	fee, err := h.fees.Quote(r.Context(), q.Get("origin"), q.Get("dest"), serviceID)
	if err != nil || fee < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message":      "calculate shipping fee failed",
			"shipping_fee": -1,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "success",
		"shipping_fee": fee,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func mapOrder(o *domorder.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orderLineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return orderResponse{
		OrderID:           o.ID,
		CustomerID:        o.CustomerID,
		VendorID:          o.VendorID,
		ShippingProfileID: o.ShippingProfileID,
		PaymentMethodID:   o.PaymentMethodID,
		ShippingFee:       o.ShippingFee,
		Total:             o.Total(),
		Lines:             lines,
		CreatedAt:         o.CreatedAt,
	}
}

func mapView(v *apporder.View) orderResponse {
	resp := mapOrder(v.Order)
	resp.Status = string(v.Current.Status)
	resp.StatusMessage = v.Current.Message
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	body := map[string]any{"error": code}
	if message != "" {
		body["message"] = message
	}
	for k, v := range details {
		body[k] = v
	}
	writeJSON(w, status, body)
}
