package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	appcheckout "github.com/whatseat/fulfillment/internal/application/checkout"
	apporder "github.com/whatseat/fulfillment/internal/application/order"
	domcatalog "github.com/whatseat/fulfillment/internal/domain/catalog"
	"github.com/whatseat/fulfillment/internal/infrastructure/id"
	"github.com/whatseat/fulfillment/internal/infrastructure/memory"
)

type fixedFees struct{ fee int64 }

func (f fixedFees) Quote(context.Context, string, string, int) (int64, error) {
	return f.fee, nil
}

func newTestRouter(t *testing.T) (http.Handler, *memory.CatalogStore, *memory.OrderRepository) {
	t.Helper()

	store := memory.NewCatalogStore()
	store.Put(&domcatalog.Product{ProductID: "p-1", VendorID: "v-1", UnitPrice: 100, InStock: 5, OriginCode: "100"})
	store.Put(&domcatalog.Product{ProductID: "p-2", VendorID: "v-2", UnitPrice: 50, InStock: 2, OriginCode: "200"})

	repo := memory.NewOrderRepository()
	profiles := memory.NewProfileDirectory()
	profiles.Put("sp-1", "1442")

	fees := fixedFees{fee: 30}
	decomposer := appcheckout.NewDecomposer(store, profiles, fees, 0, nil)
	coordinator := appcheckout.NewCoordinator(store, repo, id.UUIDGenerator{}, nil)
	checkoutSvc := appcheckout.NewService(decomposer, coordinator, nil, nil)
	orderSvc := apporder.NewService(repo, nil, nil, nil)

	h := NewHandler(checkoutSvc, orderSvc, fees, nil, nil)
	return h.Router(), store, repo
}

func doJSON(t *testing.T, router http.Handler, method, path, customerID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if customerID != "" {
		req.Header.Set(headerCustomerID, customerID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func checkoutBody(lines ...map[string]any) map[string]any {
	return map[string]any{
		"lines":               lines,
		"shipping_profile_id": "sp-1",
		"payment_method_id":   "pm-1",
		"service_id":          2,
	}
}

func TestCheckoutEndpoint_CreatesOrderPerVendor(t *testing.T) {
	t.Parallel()

	router, store, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/checkout", "c-1", checkoutBody(
		map[string]any{"product_id": "p-1", "quantity": 2},
		map[string]any{"product_id": "p-2", "quantity": 1},
	))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	orders := decodeBody[[]map[string]any](t, rec)
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0]["vendor_id"] != "v-1" || orders[1]["vendor_id"] != "v-2" {
		t.Fatalf("vendor order wrong: %v", orders)
	}
	if orders[0]["status"] != "waiting" {
		t.Fatalf("expected waiting status, got %v", orders[0]["status"])
	}
	// 2x100 + fee 30
	if total := orders[0]["total"].(float64); total != 230 {
		t.Fatalf("expected total 230, got %v", total)
	}

	p1, _ := store.GetProduct(context.Background(), "p-1")
	if p1.InStock != 3 {
		t.Fatalf("expected stock 3, got %d", p1.InStock)
	}
}

func TestCheckoutEndpoint_RequiresCustomerHeader(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/checkout", "", checkoutBody(
		map[string]any{"product_id": "p-1", "quantity": 1},
	))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

type outageProfiles struct{}

func (outageProfiles) DestinationCode(context.Context, string) (string, error) {
	return "", errors.New("directory unavailable")
}

func TestCheckoutEndpoint_ProfileDirectoryOutageIsServerError(t *testing.T) {
	t.Parallel()

	store := memory.NewCatalogStore()
	store.Put(&domcatalog.Product{ProductID: "p-1", VendorID: "v-1", UnitPrice: 100, InStock: 5, OriginCode: "100"})
	repo := memory.NewOrderRepository()

	decomposer := appcheckout.NewDecomposer(store, outageProfiles{}, fixedFees{fee: 30}, 0, nil)
	coordinator := appcheckout.NewCoordinator(store, repo, id.UUIDGenerator{}, nil)
	checkoutSvc := appcheckout.NewService(decomposer, coordinator, nil, nil)
	orderSvc := apporder.NewService(repo, nil, nil, nil)
	router := NewHandler(checkoutSvc, orderSvc, fixedFees{fee: 30}, nil, nil).Router()

	rec := doJSON(t, router, http.MethodPost, "/checkout", "c-1", checkoutBody(
		map[string]any{"product_id": "p-1", "quantity": 1},
	))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[map[string]any](t, rec)
	if body["error"] != "checkout_failed" {
		t.Fatalf("expected checkout_failed, got %v", body["error"])
	}
}

func TestCheckoutEndpoint_InsufficientStock(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/checkout", "c-1", checkoutBody(
		map[string]any{"product_id": "p-2", "quantity": 3}, // stock is 2
	))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody[map[string]any](t, rec)
	if body["error"] != "insufficient_stock" || body["product_id"] != "p-2" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["requested"].(float64) != 3 || body["available"].(float64) != 2 {
		t.Fatalf("unexpected detail: %v", body)
	}
}

func TestCheckoutEndpoint_UnknownProduct(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/checkout", "c-1", checkoutBody(
		map[string]any{"product_id": "ghost", "quantity": 1},
	))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	if body["error"] != "product_not_found" || body["product_id"] != "ghost" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func createOrder(t *testing.T, router http.Handler) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/checkout", "c-1", checkoutBody(
		map[string]any{"product_id": "p-1", "quantity": 1},
	))
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout failed: %d %s", rec.Code, rec.Body.String())
	}
	orders := decodeBody[[]map[string]any](t, rec)
	return orders[0]["order_id"].(string)
}

func TestGetOrderEndpoint(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestRouter(t)
	orderID := createOrder(t, router)

	rec := doJSON(t, router, http.MethodGet, "/orders/"+orderID, "c-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[map[string]any](t, rec)
	if body["order_id"] != orderID || body["status"] != "waiting" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestGetOrderEndpoint_OtherCustomerForbidden(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestRouter(t)
	orderID := createOrder(t, router)

	rec := doJSON(t, router, http.MethodGet, "/orders/"+orderID, "c-2", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestGetOrderEndpoint_NotFound(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/orders/ghost", "c-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCancelEndpoint(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestRouter(t)
	orderID := createOrder(t, router)

	rec := doJSON(t, router, http.MethodPut, "/orders/"+orderID+"/cancel", "c-1",
		map[string]any{"message": "ordered by mistake"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[map[string]any](t, rec)
	if body["status"] != "cancelled" || body["status_message"] != "ordered by mistake" {
		t.Fatalf("unexpected body: %v", body)
	}

	histRec := doJSON(t, router, http.MethodGet, "/orders/"+orderID+"/history", "c-1", nil)
	if histRec.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", histRec.Code)
	}
	history := decodeBody[[]map[string]any](t, histRec)
	if len(history) != 2 || history[0]["status"] != "waiting" || history[1]["status"] != "cancelled" {
		t.Fatalf("unexpected history: %v", history)
	}
}

func TestCancelEndpoint_MessageRequired(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestRouter(t)
	orderID := createOrder(t, router)

	rec := doJSON(t, router, http.MethodPut, "/orders/"+orderID+"/cancel", "c-1",
		map[string]any{"message": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestShippingFeeEndpoint(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/shipping-fee?origin=100&dest=1442&service_id=2", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	if body["shipping_fee"].(float64) != 30 {
		t.Fatalf("expected fee 30, got %v", body["shipping_fee"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	router, _, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
