package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/bookswap/internal/apperr"
	"github.com/safar/bookswap/internal/catalog"
	"github.com/safar/bookswap/internal/database"
	"github.com/safar/bookswap/internal/geo"
	"github.com/safar/bookswap/internal/httpapi"
	"github.com/safar/bookswap/internal/identity"
	"github.com/safar/bookswap/internal/models"
	"github.com/safar/bookswap/internal/search"
	"github.com/safar/bookswap/internal/storage"
	"github.com/safar/bookswap/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, token string) (string, error) {
	if user, ok := strings.CutPrefix(token, "good-"); ok {
		return user, nil
	}
	return "", apperr.ErrUnauthorized
}

type fakeCatalog struct {
	created   catalog.NewListing
	owner     string
	criteria  search.Criteria
	ref       *geo.Point
	createErr error
	getErr    error
	searchErr error
}

func (f *fakeCatalog) Create(_ context.Context, ownerID string, in catalog.NewListing) (*models.Listing, error) {
	f.owner, f.created = ownerID, in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Listing{ID: "l1", OwnerID: ownerID, Title: in.Title, ImageURLs: []string{}}, nil
}

func (f *fakeCatalog) Search(_ context.Context, c search.Criteria) (*catalog.Page, error) {
	f.criteria = c
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	d := 0.0
	return &catalog.Page{Page: c.Page, Size: c.Size, Results: []search.Ranked{
		{Listing: models.Listing{ID: "near"}, DistanceKm: &d},
		{Listing: models.Listing{ID: "unknown"}},
	}}, nil
}

func (f *fakeCatalog) Get(_ context.Context, id string, ref *geo.Point) (*search.Ranked, error) {
	f.ref = ref
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &search.Ranked{Listing: models.Listing{ID: id}}, nil
}

type fakePurchases struct {
	err   error
	calls []string
}

func (f *fakePurchases) record(op, id, user string) (*models.PurchaseRequest, error) {
	f.calls = append(f.calls, op+" "+id+" "+user)
	if f.err != nil {
		return nil, f.err
	}
	return &models.PurchaseRequest{ID: "r1", ListingID: id, BuyerID: user, Status: models.PurchasePending}, nil
}

func (f *fakePurchases) Request(_ context.Context, listingID, buyerID string) (*models.PurchaseRequest, error) {
	return f.record("request", listingID, buyerID)
}

func (f *fakePurchases) Confirm(_ context.Context, id, actor string) (*models.PurchaseRequest, error) {
	return f.record("confirm", id, actor)
}

func (f *fakePurchases) Cancel(_ context.Context, id, actor string) (*models.PurchaseRequest, error) {
	return f.record("cancel", id, actor)
}

func (f *fakePurchases) ListForUser(_ context.Context, userID string) ([]models.PurchaseRequest, error) {
	f.calls = append(f.calls, "list "+userID)
	return []models.PurchaseRequest{}, f.err
}

type fakeInbox struct {
	user, cursor string
	limit        int
}

func (f *fakeInbox) ListForUser(_ context.Context, userID, cursor string, limit int) (*store.CursorPage, error) {
	f.user, f.cursor, f.limit = userID, cursor, limit
	return &store.CursorPage{Items: []models.Notification{}}, nil
}

type fakeProfiles struct {
	updated identity.ProfileInput
}

func (f *fakeProfiles) Profile(_ context.Context, userID string) (*models.User, error) {
	if userID == "ghost" {
		return nil, database.ErrUserNotFound
	}
	return &models.User{ID: userID, Username: "ann"}, nil
}

func (f *fakeProfiles) Update(_ context.Context, userID string, in identity.ProfileInput) (*models.User, error) {
	f.updated = in
	return &models.User{ID: userID, Username: in.Username}, nil
}

type fakeImages struct{}

func (fakeImages) Open(_ context.Context, id string) (*storage.Object, error) {
	switch id {
	case "ok":
		return &storage.Object{Data: []byte("png"), ContentType: "image/png"}, nil
	case "down":
		return nil, apperr.Dependency("open image", errors.New("connection refused"))
	default:
		return nil, storage.ErrObjectNotFound
	}
}

type harness struct {
	router    http.Handler
	catalog   *fakeCatalog
	purchases *fakePurchases
	inbox     *fakeInbox
	profiles  *fakeProfiles
}

func newHarness() *harness {
	h := &harness{
		catalog:   &fakeCatalog{},
		purchases: &fakePurchases{},
		inbox:     &fakeInbox{},
		profiles:  &fakeProfiles{},
	}
	h.router = httpapi.NewRouter(httpapi.Deps{
		Catalog:       h.catalog,
		Purchases:     h.purchases,
		Notifications: h.inbox,
		Profiles:      h.profiles,
		Images:        fakeImages{},
		Verifier:      tokenVerifier{},
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		MaxFileSize:   16,
	})
	return h
}

func (h *harness) do(t *testing.T, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ok"])
}

func TestSearchBooks(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodGet, "/books?q=dune&lat=40&lng=-75&radiusKm=1&page=2&size=500&type=bogus", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "dune", h.catalog.criteria.Q)
	require.NotNil(t, h.catalog.criteria.Near)
	assert.Equal(t, 40.0, h.catalog.criteria.Near.Lat)
	assert.Equal(t, search.MaxSize, h.catalog.criteria.Size)
	assert.Empty(t, h.catalog.criteria.Type)

	body := decode(t, rec)
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(100), body["size"])
	results := body["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, float64(0), results[0].(map[string]any)["distance_km"])
	_, hasDistance := results[1].(map[string]any)["distance_km"]
	assert.False(t, hasDistance)
}

func TestSearchFailureIsGeneric(t *testing.T) {
	h := newHarness()
	h.catalog.searchErr = fmt.Errorf("search listings: %w", errors.New("pq: password authentication failed"))

	rec := h.do(t, http.MethodGet, "/books", "", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestSearchTimeoutIsBadGateway(t *testing.T) {
	h := newHarness()
	h.catalog.searchErr = fmt.Errorf("search listings: %w", context.DeadlineExceeded)

	rec := h.do(t, http.MethodGet, "/books", "", nil, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetBook(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodGet, "/books/abc?lat=1&lng=2", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, h.catalog.ref)
	assert.Equal(t, geo.Point{Lat: 1, Lon: 2}, *h.catalog.ref)

	rec = h.do(t, http.MethodGet, "/books/abc?lat=1", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, h.catalog.ref)

	h.catalog.getErr = database.ErrListingNotFound
	rec = h.do(t, http.MethodGet, "/books/missing", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "listing not found", decode(t, rec)["error"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness()

	routes := []struct{ method, path string }{
		{http.MethodPost, "/books/protected"},
		{http.MethodPost, "/books/l1/buy"},
		{http.MethodGet, "/purchases"},
		{http.MethodPost, "/purchases/r1/confirm"},
		{http.MethodPost, "/purchases/r1/cancel"},
		{http.MethodGet, "/notifications"},
		{http.MethodGet, "/me"},
		{http.MethodPut, "/me"},
	}

	for _, route := range routes {
		rec := h.do(t, route.method, route.path, "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s without token", route.method, route.path)

		rec = h.do(t, route.method, route.path, "forged", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s with bad token", route.method, route.path)
	}
	assert.Empty(t, h.purchases.calls)
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, data := range files {
		part, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestCreateBook(t *testing.T) {
	h := newHarness()

	body, contentType := multipartBody(t,
		map[string]string{"title": "Dune", "author": "Herbert", "city": "Paris", "price": "9.50", "type": "sell"},
		map[string][]byte{"cover.jpg": []byte("small"), "huge.jpg": bytes.Repeat([]byte("x"), 64), "empty.jpg": {}},
	)

	rec := h.do(t, http.MethodPost, "/books/protected", "good-owner-1", body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, "owner-1", h.catalog.owner)
	assert.Equal(t, "Dune", h.catalog.created.Title)
	assert.Equal(t, "9.50", h.catalog.created.Price)
	require.Len(t, h.catalog.created.Images, 1)
	assert.Equal(t, "cover.jpg", h.catalog.created.Images[0].Filename)
	assert.Equal(t, []byte("small"), h.catalog.created.Images[0].Data)
}

func TestCreateBookValidationError(t *testing.T) {
	h := newHarness()
	h.catalog.createErr = apperr.Validation("title and author are required")

	body, contentType := multipartBody(t, map[string]string{"city": "Paris"}, nil)

	rec := h.do(t, http.MethodPost, "/books/protected", "good-owner-1", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "title and author are required")
}

func TestPurchaseRoutes(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodPost, "/books/l1/buy", "good-buyer", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PENDING", decode(t, rec)["status"])

	rec = h.do(t, http.MethodPost, "/purchases/r1/confirm", "good-seller", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/purchases/r1/cancel", "good-buyer", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/purchases", "good-buyer", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	assert.Equal(t, []string{
		"request l1 buyer",
		"confirm r1 seller",
		"cancel r1 buyer",
		"list buyer",
	}, h.purchases.calls)
}

func TestPurchaseErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("request purchase: %w", apperr.ErrSelfPurchaseForbidden), http.StatusBadRequest},
		{fmt.Errorf("request purchase: %w", apperr.ErrListingUnavailable), http.StatusBadRequest},
		{fmt.Errorf("confirm purchase: %w", apperr.ErrInvalidTransition), http.StatusBadRequest},
		{fmt.Errorf("confirm purchase: %w", apperr.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("confirm purchase: %w", database.ErrPurchaseNotFound), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := newHarness()
			h.purchases.err = tt.err

			rec := h.do(t, http.MethodPost, "/purchases/r1/confirm", "good-seller", nil, "")
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestNotifications(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodGet, "/notifications?cursor=abc&limit=5", "good-user-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", h.inbox.user)
	assert.Equal(t, "abc", h.inbox.cursor)
	assert.Equal(t, 5, h.inbox.limit)
	assert.Equal(t, false, decode(t, rec)["has_more"])
}

func TestProfile(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodGet, "/me", "good-user-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ann", decode(t, rec)["username"])

	rec = h.do(t, http.MethodGet, "/me", "good-ghost", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPut, "/me", "good-user-1", strings.NewReader(`{"username":"bob","city":"Lyon"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lyon", h.profiles.updated.City)

	rec = h.do(t, http.MethodPut, "/me", "good-user-1", strings.NewReader(`{`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImages(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodGet, "/images/ok", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png", rec.Body.String())

	rec = h.do(t, http.MethodGet, "/images/missing", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/images/down", "", nil, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream service unavailable", decode(t, rec)["error"])
}
