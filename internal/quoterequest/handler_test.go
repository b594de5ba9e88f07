package quoterequest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (chi.Router, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

	r := chi.NewRouter()
	handler.MountPublicRoutes(r)
	handler.MountAdminRoutes(r)
	return r, repo
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-Id", "admin-1")
		req.Header.Set("X-Admin-Email", "ops@quotedesk.example")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestCreateEndpointReturnsTokenOnce(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/vendor-quote-requests", createRequest(), true)
	require.Equal(t, http.StatusCreated, rec.Code)

	payload := decodeBody(t, rec)
	token, ok := payload["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	// The embedded request document never serialises its token.
	request := payload["request"].(map[string]any)
	_, leaked := request["token"]
	require.False(t, leaked)
	require.Equal(t, "pending", request["status"])

	// Listing the requests leaks no token either.
	rec = doJSON(t, router, http.MethodGet, "/vendor-quote-requests", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), token)
}

func TestCreateEndpointRejectsEmptyItems(t *testing.T) {
	router, _ := newTestRouter(t)

	req := createRequest()
	req.Items = nil
	rec := doJSON(t, router, http.MethodPost, "/vendor-quote-requests", req, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminEndpointsRequireIdentity(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/vendor-quote-requests", createRequest(), false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/vendor-quote-requests", nil, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVendorViewByToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/vendor-quote-requests", createRequest(), true)
	require.Equal(t, http.StatusCreated, rec.Code)
	token := decodeBody(t, rec)["token"].(string)

	rec = doJSON(t, router, http.MethodGet, "/quote-request/"+token, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	request := decodeBody(t, rec)["request"].(map[string]any)
	require.Equal(t, "ORD-1", request["orderId"])

	rec = doJSON(t, router, http.MethodGet, "/quote-request/unknown", nil, false)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitEndpointLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/vendor-quote-requests", createRequest(), true)
	token := decodeBody(t, rec)["token"].(string)

	rec = doJSON(t, router, http.MethodPost, "/quote-request/"+token+"/submit", submitAll(), false)
	require.Equal(t, http.StatusOK, rec.Code)
	request := decodeBody(t, rec)["request"].(map[string]any)
	require.Equal(t, "submitted", request["status"])

	// Second submission: 410 with the submitted discriminator.
	rec = doJSON(t, router, http.MethodPost, "/quote-request/"+token+"/submit", submitAll(), false)
	require.Equal(t, http.StatusGone, rec.Code)
	require.Equal(t, "submitted", decodeBody(t, rec)["state"])

	// The vendor view reports the same condition.
	rec = doJSON(t, router, http.MethodGet, "/quote-request/"+token, nil, false)
	require.Equal(t, http.StatusGone, rec.Code)
	require.Equal(t, "submitted", decodeBody(t, rec)["state"])
}

func TestSubmitEndpointExpiredState(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)

	q, err := svc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	// Serve with a clock past the token expiry to observe the 410.
	lateSvc := NewService(repo, nil, time.Hour).WithClock(fixedClock(testNow.Add(8 * 24 * time.Hour)))
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), lateSvc)
	router := chi.NewRouter()
	handler.MountPublicRoutes(router)

	rec := doJSON(t, router, http.MethodGet, "/quote-request/"+q.Token, nil, false)
	require.Equal(t, http.StatusGone, rec.Code)
	require.Equal(t, "expired", decodeBody(t, rec)["state"])

	rec = doJSON(t, router, http.MethodPost, "/quote-request/"+q.Token+"/submit", submitAll(), false)
	require.Equal(t, http.StatusGone, rec.Code)
	require.Equal(t, "expired", decodeBody(t, rec)["state"])
}

func TestSubmitEndpointRejectsMalformedBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/vendor-quote-requests", createRequest(), true)
	token := decodeBody(t, rec)["token"].(string)

	req := httptest.NewRequest(http.MethodPost, "/quote-request/"+token+"/submit", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/vendor-quote-requests", createRequest(), true)
	request := decodeBody(t, rec)["request"].(map[string]any)
	id := request["id"].(string)

	path := fmt.Sprintf("/vendor-quote-requests/%s/status", id)
	rec = doJSON(t, router, http.MethodPatch, path, UpdateStatusRequest{Status: StatusApproved}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody(t, rec)["request"].(map[string]any)
	require.Equal(t, "approved", updated["status"])

	rec = doJSON(t, router, http.MethodPatch, path, UpdateStatusRequest{Status: Status("bogus")}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/vendor-quote-requests/not-a-uuid/status", UpdateStatusRequest{Status: StatusApproved}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEndpointFiltersAndPages(t *testing.T) {
	router, _ := newTestRouter(t)

	for i := 0; i < 3; i++ {
		req := createRequest()
		if i == 2 {
			req.OrderID = "ORD-2"
		}
		rec := doJSON(t, router, http.MethodPost, "/vendor-quote-requests", req, true)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/vendor-quote-requests?orderId=ORD-2", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeBody(t, rec)
	requests := payload["requests"].([]any)
	require.Len(t, requests, 1)

	pagination := payload["pagination"].(map[string]any)
	require.Equal(t, float64(1), pagination["total"])

	rec = doJSON(t, router, http.MethodGet, "/vendor-quote-requests?status=approved", nil, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
