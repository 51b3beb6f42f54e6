package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/loyaltytiers/internal/domain/errors"
	"github.com/polkiloo/loyaltytiers/internal/domain/membership"
	"github.com/polkiloo/loyaltytiers/internal/domain/model"
	"github.com/polkiloo/loyaltytiers/internal/server/http/middleware"
	testhelpers "github.com/polkiloo/loyaltytiers/internal/test"
)

func asUser(id int64) func(*gin.Context) {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDContextKey, id)
	}
}

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

func TestMembershipHandlerStatus(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var gotUser int64
	facade := testhelpers.MembershipFacadeStub{StatusFn: func(_ context.Context, userID int64) (*model.MembershipStatus, error) {
		gotUser = userID
		engine := membership.NewEngine(nil)
		rec := engine.RecordPurchase(engine.NewRecord(userID), decimal.RequireFromString("300.00"), start)
		status := engine.Project(rec)
		return &status, nil
	}}

	resp := performRequest(t, http.MethodGet, "/membership", NewMembershipHandler(facade).Status, asUser(7), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if gotUser != 7 {
		t.Fatalf("expected user 7 to be passed through, got %d", gotUser)
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	want := map[string]any{
		"current_level":      float64(1),
		"current_tier_name":  "Member Level 1",
		"cashback_rate":      "0.01",
		"window_start":       "2024-03-01T12:00:00Z",
		"window_end":         "2024-03-31T11:59:59Z",
		"window_total":       "300",
		"next_level":         float64(2),
		"next_tier_name":     "Member Level 2",
		"next_cashback_rate": "0.03",
		"amount_to_next":     "200",
	}
	for key, value := range want {
		if body[key] != value {
			t.Fatalf("field %s: expected %v, got %v", key, value, body[key])
		}
	}
}

func TestMembershipHandlerStatusAtTopTier(t *testing.T) {
	facade := testhelpers.MembershipFacadeStub{StatusFn: func(_ context.Context, userID int64) (*model.MembershipStatus, error) {
		engine := membership.NewEngine(nil)
		rec := engine.NewRecord(userID)
		rec.TierLevel = 5
		status := engine.Project(rec)
		return &status, nil
	}}

	resp := performRequest(t, http.MethodGet, "/membership", NewMembershipHandler(facade).Status, asUser(1), nil, nil)
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, key := range []string{"next_level", "next_tier_name", "next_cashback_rate", "window_start", "window_end"} {
		value, present := body[key]
		if !present || value != nil {
			t.Fatalf("expected %s to be null, got %v (present=%v)", key, value, present)
		}
	}
	if body["amount_to_next"] != "0" {
		t.Fatalf("expected zero amount_to_next, got %v", body["amount_to_next"])
	}
}

func TestMembershipHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		retryAfter string
	}{
		{name: "invalid input", err: domainErrors.ErrInvalidInput, status: http.StatusUnprocessableEntity},
		{name: "not found", err: fmt.Errorf("load: %w", domainErrors.ErrNotFound), status: http.StatusNotFound},
		{name: "conflict", err: fmt.Errorf("status: %w", domainErrors.ErrConflict), status: http.StatusServiceUnavailable, retryAfter: "1"},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facade := testhelpers.MembershipFacadeStub{StatusFn: func(context.Context, int64) (*model.MembershipStatus, error) {
				return nil, tt.err
			}}
			resp := performRequest(t, http.MethodGet, "/membership", NewMembershipHandler(facade).Status, asUser(1), nil, nil)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
			if got := resp.Header().Get("Retry-After"); got != tt.retryAfter {
				t.Fatalf("expected Retry-After %q, got %q", tt.retryAfter, got)
			}
		})
	}
}

func TestMembershipHandlerRecordPurchase(t *testing.T) {
	var got model.PurchaseInput
	facade := testhelpers.MembershipFacadeStub{PurchaseFn: func(_ context.Context, userID int64, in model.PurchaseInput) (*model.Purchase, error) {
		got = in
		return &model.Purchase{
			ID:          9,
			UserID:      userID,
			OrderNumber: in.OrderNumber,
			Amount:      *in.Amount,
			OccurredAt:  *in.OccurredAt,
			RecordedAt:  in.OccurredAt.Add(time.Minute),
		}, nil
	}}

	body := []byte(`{"amount":"300.00","occurred_at":"2024-03-01T12:00:00Z","order":"79927398713"}`)
	resp := performRequest(t, http.MethodPost, "/purchases", NewMembershipHandler(facade).RecordPurchase, asUser(3), body, jsonHeaders)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	if got.Amount == nil || !got.Amount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected amount %v", got.Amount)
	}
	if got.OccurredAt == nil || !got.OccurredAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected occurred_at %v", got.OccurredAt)
	}
	if got.OrderNumber != "79927398713" {
		t.Fatalf("unexpected order %q", got.OrderNumber)
	}

	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if out["id"] != float64(9) || out["amount"] != "300" || out["order"] != "79927398713" {
		t.Fatalf("unexpected response %v", out)
	}
}

func TestMembershipHandlerRecordPurchaseDefaults(t *testing.T) {
	for name, body := range map[string][]byte{"empty body": nil, "empty object": []byte(`{}`), "numeric amount": []byte(`{"amount":12.5}`)} {
		t.Run(name, func(t *testing.T) {
			var got model.PurchaseInput
			facade := testhelpers.MembershipFacadeStub{PurchaseFn: func(_ context.Context, userID int64, in model.PurchaseInput) (*model.Purchase, error) {
				got = in
				return &model.Purchase{ID: 1, UserID: userID}, nil
			}}
			resp := performRequest(t, http.MethodPost, "/purchases", NewMembershipHandler(facade).RecordPurchase, asUser(1), body, jsonHeaders)
			if resp.Code != http.StatusCreated {
				t.Fatalf("expected status 201, got %d", resp.Code)
			}
			if got.OccurredAt != nil {
				t.Fatalf("expected occurred_at to be left to the use case, got %v", got.OccurredAt)
			}
			if name == "numeric amount" {
				if got.Amount == nil || !got.Amount.Equal(decimal.RequireFromString("12.5")) {
					t.Fatalf("unexpected amount %v", got.Amount)
				}
			} else if got.Amount != nil {
				t.Fatalf("expected nil amount, got %v", got.Amount)
			}
		})
	}
}

func TestMembershipHandlerRecordPurchaseFailures(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		err    error
		status int
	}{
		{name: "bad json", body: []byte(`{"amount":`), status: http.StatusBadRequest},
		{name: "bad amount", body: []byte(`{"amount":"ten"}`), status: http.StatusBadRequest},
		{name: "bad time", body: []byte(`{"occurred_at":"yesterday"}`), status: http.StatusBadRequest},
		{name: "bad order", body: []byte(`{"order":"12345"}`), err: domainErrors.ErrInvalidOrderNumber, status: http.StatusUnprocessableEntity},
		{name: "duplicate order", body: []byte(`{"order":"79927398713"}`), err: domainErrors.ErrAlreadyExists, status: http.StatusConflict},
		{name: "no record", body: []byte(`{}`), err: domainErrors.ErrNotFound, status: http.StatusNotFound},
		{name: "contended", body: []byte(`{}`), err: domainErrors.ErrConflict, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			facade := testhelpers.MembershipFacadeStub{PurchaseFn: func(context.Context, int64, model.PurchaseInput) (*model.Purchase, error) {
				called = true
				return nil, tt.err
			}}
			resp := performRequest(t, http.MethodPost, "/purchases", NewMembershipHandler(facade).RecordPurchase, asUser(1), tt.body, jsonHeaders)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
			if tt.err == nil && called {
				t.Fatal("facade must not be called for malformed requests")
			}
		})
	}
}

func TestMembershipHandlerPurchases(t *testing.T) {
	at := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	facade := testhelpers.MembershipFacadeStub{PurchasesFn: func(context.Context, int64) ([]model.Purchase, error) {
		return []model.Purchase{
			{ID: 2, Amount: decimal.RequireFromString("10.50"), OccurredAt: at, RecordedAt: at},
			{ID: 1, OrderNumber: "18", Amount: decimal.NewFromInt(5), OccurredAt: at.Add(-time.Hour), RecordedAt: at},
		}, nil
	}}
	resp := performRequest(t, http.MethodGet, "/purchases", NewMembershipHandler(facade).Purchases, asUser(1), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var out []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(out) != 2 || out[0]["amount"] != "10.5" || out[1]["order"] != "18" {
		t.Fatalf("unexpected list %v", out)
	}
	if _, present := out[0]["order"]; present {
		t.Fatalf("expected empty order to be omitted, got %v", out[0])
	}
}

func TestMembershipHandlerPurchasesEmptyAndError(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/purchases", NewMembershipHandler(testhelpers.MembershipFacadeStub{}).Purchases, asUser(1), nil, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}

	facade := testhelpers.MembershipFacadeStub{PurchasesFn: func(context.Context, int64) ([]model.Purchase, error) {
		return nil, errors.New("boom")
	}}
	resp = performRequest(t, http.MethodGet, "/purchases", NewMembershipHandler(facade).Purchases, asUser(1), nil, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
}

func TestMembershipHandlerTiers(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/tiers", NewMembershipHandler(testhelpers.MembershipFacadeStub{}).Tiers, nil, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var out []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("expected five tiers, got %d", len(out))
	}
	if out[4]["level"] != float64(5) || out[4]["threshold"] != "10000" || out[4]["cashback_rate"] != "0.12" || out[4]["name"] != "Member Level 5" {
		t.Fatalf("unexpected top tier %v", out[4])
	}
}

func TestHealthHandler(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/health", NewHealthHandler(testhelpers.LoyaltyFacadeStub{}).Check, nil, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	facade := testhelpers.LoyaltyFacadeStub{HealthFn: func(context.Context) error { return errors.New("db down") }}
	resp = performRequest(t, http.MethodGet, "/health", NewHealthHandler(facade).Check, nil, nil, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", resp.Code)
	}
}
