package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/pkg/status"
	"kilnbazaar/service"
)

const (
	manufacturerToken = "manufacturer-token"
	providerToken     = "provider-token"
	manufacturerID    = int64(1)
	providerUserID    = int64(2)
)

type stubAuth struct {
	service.AuthService
}

func (stubAuth) ParseToken(token string) (*service.Claims, error) {
	switch token {
	case manufacturerToken:
		return &service.Claims{UserID: manufacturerID, Role: models.RoleManufacturer}, nil
	case providerToken:
		return &service.Claims{UserID: providerUserID, Role: models.RoleProvider}, nil
	}
	return nil, service.ErrUnauthorized
}

func (stubAuth) RequestOTP(_ context.Context, phone string) error {
	_, err := service.NormalizePhone(phone)
	return err
}

type stubDashboard struct {
	service.DashboardService
	snap       *service.Snapshot
	fetchErr   error
	fetches    int
	deleteMany [][]int64
	deleted    int64
}

func (d *stubDashboard) FetchAll(_ context.Context, _ models.ProviderKind, id int64) (*service.Snapshot, error) {
	d.fetches++
	if d.fetchErr != nil {
		return nil, d.fetchErr
	}
	return d.snap, nil
}

func (d *stubDashboard) DeleteMany(_ context.Context, _ models.ProviderKind, _ models.ListName, _ int64, ids []int64) (int64, error) {
	d.deleteMany = append(d.deleteMany, ids)
	return d.deleted, nil
}

func (d *stubDashboard) Delete(_ context.Context, _ models.ProviderKind, _ models.ListName, _ int64, id int64) error {
	if id == 404 {
		return service.ErrNotFound
	}
	return nil
}

type stubRequests struct {
	service.RequestService
	ratingOrders []*models.Order
}

func (r *stubRequests) SubmitRating(_ context.Context, _ models.ProviderKind, _ int64, d service.RatingDraft, orders []*models.Order) (*models.Rating, error) {
	r.ratingOrders = orders
	if _, err := service.ResolveOrder(orders, d.ProviderID, d.OrderNumber); err != nil {
		return nil, err
	}
	return &models.Rating{ID: 9, Rating: d.Rating}, nil
}

func (r *stubRequests) SubmitQuotation(_ context.Context, _ models.ProviderKind, _ int64, d service.PurchaseDraft) (*models.Quotation, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &models.Quotation{ID: 5, ItemType: d.ItemType}, nil
}

func (r *stubRequests) SubmitOrder(context.Context, models.ProviderKind, int64, service.PurchaseDraft) (*models.Order, error) {
	return nil, errors.New("connection reset by peer")
}

type stubServices struct {
	dashboard *stubDashboard
	requests  *stubRequests
}

func (s *stubServices) Auth() service.AuthService           { return stubAuth{} }
func (s *stubServices) Provider() service.ProviderService   { return nil }
func (s *stubServices) Request() service.RequestService     { return s.requests }
func (s *stubServices) Dashboard() service.DashboardService { return s.dashboard }

func newTestServer() (*stubServices, http.Handler) {
	pending := "pending"
	inquiry := &models.Inquiry{ID: 11, Message: "rates?", Status: &pending}
	order := &models.Order{ID: 21, OrderNumber: "ORD-00000001", ProviderID: 5}
	svc := &stubServices{
		dashboard: &stubDashboard{
			deleted: 2,
			snap: &service.Snapshot{
				Inquiries: []service.InquiryRow{{Inquiry: inquiry, View: inquiry.DerivedStatus()}},
				Orders:    []service.OrderRow{{Order: order, View: order.DerivedStatus(), Payment: order.DerivedPaymentStatus()}},
			},
		},
		requests: &stubRequests{},
	}
	return svc, New(Options{Services: svc, Log: logger.Nop()})
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndRequestID(t *testing.T) {
	_, h := newTestServer()

	w := do(h, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestAccessControl(t *testing.T) {
	_, h := newTestServer()
	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"no token", "/api/manufacturer/coal/requests", "", http.StatusUnauthorized},
		{"bad token", "/api/manufacturer/coal/requests", "nope", http.StatusUnauthorized},
		{"wrong role", "/api/manufacturer/coal/requests", providerToken, http.StatusForbidden},
		{"unknown kind", "/api/manufacturer/bricks/requests", manufacturerToken, http.StatusNotFound},
		{"ok", "/api/manufacturer/transport/requests", manufacturerToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodGet, tt.path, tt.token, "")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestManufacturerRequestsCarryDerivedStatus(t *testing.T) {
	_, h := newTestServer()
	w := do(h, http.MethodGet, "/api/manufacturer/coal/requests", manufacturerToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Inquiries []struct {
			ID            int64  `json:"id"`
			DerivedStatus string `json:"derived_status"`
			StatusBucket  string `json:"status_bucket"`
		} `json:"inquiries"`
		Orders []struct {
			OrderNumber string      `json:"order_number"`
			Payment     status.View `json:"payment"`
		} `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Inquiries, 1)
	assert.Equal(t, int64(11), body.Inquiries[0].ID)
	assert.Equal(t, "pending", body.Inquiries[0].DerivedStatus)
	assert.Equal(t, string(status.BucketOf(status.Pending)), body.Inquiries[0].StatusBucket)
	require.Len(t, body.Orders, 1)
	assert.Equal(t, status.Pending, body.Orders[0].Payment.Label)
}

func TestBulkDelete(t *testing.T) {
	svc, h := newTestServer()

	w := do(h, http.MethodPost, "/api/manufacturer/coal/requests/inquiries/bulk-delete", manufacturerToken, `{"ids":[3,4]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][]int64{{3, 4}}, svc.dashboard.deleteMany)
	assert.Equal(t, 1, svc.dashboard.fetches)

	// Only rows that actually went are reported.
	svc.dashboard.deleted = 1
	w = do(h, http.MethodPost, "/api/manufacturer/coal/requests/inquiries/bulk-delete", manufacturerToken, `{"ids":[3,99]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Deleted)
	assert.Equal(t, 2, svc.dashboard.fetches)

	svc.dashboard.deleted = 0
	w = do(h, http.MethodPost, "/api/manufacturer/coal/requests/inquiries/bulk-delete", manufacturerToken, `{"ids":[3]}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 2, svc.dashboard.fetches)

	w = do(h, http.MethodPost, "/api/manufacturer/coal/requests/bricks/bulk-delete", manufacturerToken, `{"ids":[3]}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteOne(t *testing.T) {
	_, h := newTestServer()
	w := do(h, http.MethodDelete, "/api/manufacturer/coal/requests/orders/7", manufacturerToken, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(h, http.MethodDelete, "/api/manufacturer/coal/requests/orders/404", manufacturerToken, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(h, http.MethodDelete, "/api/manufacturer/coal/requests/orders/abc", manufacturerToken, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitErrors(t *testing.T) {
	svc, h := newTestServer()

	t.Run("rating without orders for provider", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/manufacturer/coal/requests/ratings", manufacturerToken,
			`{"provider_id":99,"order_number":"ORD-00000001","rating":5,"comment":"good"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), service.ErrNoOrdersToRate.Error())
	})

	t.Run("rating resolves against fetched orders", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/manufacturer/coal/requests/ratings", manufacturerToken,
			`{"provider_id":5,"order_number":"ORD-00000001","rating":5,"comment":"good"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, svc.requests.ratingOrders, 1)
	})

	t.Run("validation", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/manufacturer/coal/requests/quotations", manufacturerToken,
			`{"provider_id":5,"item_type":"","quantity":1,"delivery_location":"x"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "item_type", resp.Field)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/manufacturer/coal/requests/quotations", manufacturerToken, `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("store failure is not leaked", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/manufacturer/coal/requests/orders", manufacturerToken,
			`{"provider_id":5,"item_type":"coal","quantity":1,"delivery_location":"x"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})
}

func TestFetchFailure(t *testing.T) {
	svc, h := newTestServer()
	svc.dashboard.fetchErr = errors.New("timeout")
	w := do(h, http.MethodGet, "/api/manufacturer/coal/requests", manufacturerToken, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestExport(t *testing.T) {
	_, h := newTestServer()
	w := do(h, http.MethodGet, "/api/manufacturer/labour/requests/export", manufacturerToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "labour-requests-")
	assert.NotZero(t, w.Body.Len())
}

func TestRequestOTPValidation(t *testing.T) {
	_, h := newTestServer()
	w := do(h, http.MethodPost, "/api/auth/otp", "", `{"phone":"12"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(h, http.MethodPost, "/api/auth/otp", "", `{"phone":"9876543210"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusOf(service.ErrBusy))
	assert.Equal(t, http.StatusNotFound, statusOf(service.ErrNotFound))
	assert.Equal(t, http.StatusForbidden, statusOf(service.ErrForbidden))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("boom")))
}
