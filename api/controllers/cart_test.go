package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aakanshaa0/vestra/api/middleware"
	cartsvc "github.com/aakanshaa0/vestra/internal/cart"
	"github.com/aakanshaa0/vestra/pkg/logger"
)

type stubCartService struct {
	snapshot cartsvc.Snapshot
	added    []string
}

func (s *stubCartService) Add(_ context.Context, _ uuid.UUID, productID, variant string) (cartsvc.Snapshot, error) {
	s.added = append(s.added, productID+"/"+variant)
	return s.snapshot, nil
}

func (s *stubCartService) SetQuantity(context.Context, uuid.UUID, string, string, int) (cartsvc.Snapshot, error) {
	return s.snapshot, nil
}

func (s *stubCartService) Get(context.Context, uuid.UUID) (cartsvc.Snapshot, error) {
	return s.snapshot, nil
}

func (s *stubCartService) Clear(context.Context, uuid.UUID) error {
	s.snapshot = cartsvc.Snapshot{}
	return nil
}

func (s *stubCartService) Replace(_ context.Context, _ uuid.UUID, snapshot cartsvc.Snapshot) (cartsvc.Snapshot, error) {
	s.snapshot = snapshot
	return s.snapshot, nil
}

func (s *stubCartService) Count(context.Context, uuid.UUID) (int, error) {
	total := 0
	for _, variants := range s.snapshot {
		for _, qty := range variants {
			total += qty
		}
	}
	return total, nil
}

func (s *stubCartService) Amount(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return decimal.RequireFromString("50.00"), nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestCartFetchRequiresIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()

	CartFetch(&stubCartService{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestCartAddItem(t *testing.T) {
	productID := uuid.New()
	stub := &stubCartService{snapshot: cartsvc.Snapshot{
		productID.String(): {"M": 1},
	}}

	body := `{"product_id":"` + productID.String() + `","variant":"M"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()

	CartAddItem(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(stub.added) != 1 || stub.added[0] != productID.String()+"/M" {
		t.Fatalf("unexpected add calls %v", stub.added)
	}

	var payload struct {
		Data struct {
			Items map[string]map[string]int `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.Items[productID.String()]["M"] != 1 {
		t.Fatalf("unexpected snapshot %v", payload.Data.Items)
	}
}

func TestCartAddItemRejectsMissingProduct(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"variant":"M"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()

	CartAddItem(&stubCartService{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing product id, got %d", rec.Code)
	}
}

func TestCartSyncReplacesSnapshot(t *testing.T) {
	stub := &stubCartService{snapshot: cartsvc.Snapshot{"old": {"S": 9}}}

	body := `{"items":{"sku-a":{"M":2}}}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()

	CartSync(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.snapshot["sku-a"]["M"] != 2 {
		t.Fatalf("expected snapshot replaced, got %v", stub.snapshot)
	}
	if _, ok := stub.snapshot["old"]; ok {
		t.Fatalf("expected old snapshot dropped")
	}
}

func TestCartAmountFormatsMajorUnits(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/amount", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()

	CartAmount(&stubCartService{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data["amount"] != "50.00" {
		t.Fatalf("unexpected amount %q", payload.Data["amount"])
	}
}
