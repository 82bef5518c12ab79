package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"tiffsrv/internal/core/domain"
	"tiffsrv/internal/core/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockConverter struct{ mock.Mock }

func (m *MockConverter) Convert(ctx context.Context, name string, params domain.ConversionParams) *domain.ConversionResult {
	args := m.Called(ctx, name, params)
	return args.Get(0).(*domain.ConversionResult)
}

func (m *MockConverter) Exists(name string) bool {
	args := m.Called(name)
	return args.Bool(0)
}

type MockDeleter struct{ mock.Mock }

func (m *MockDeleter) Delete(ctx context.Context, name string) *domain.DeletionResult {
	args := m.Called(ctx, name)
	return args.Get(0).(*domain.DeletionResult)
}

var testDefaults = domain.Defaults{
	Compression: domain.CompressionWebP,
	Quality:     50,
	TileSize:    256,
}

func newTestRouter(c *MockConverter, d *MockDeleter, token string) http.Handler {
	h := NewHTTP(c, d, service.NewTokenAuthorizer(token), testDefaults, 2)
	return h.Routes(nil)
}

func serve(router http.Handler, method, target, body, auth string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func converted(name string) *domain.ConversionResult {
	return &domain.ConversionResult{
		Image:       name,
		Width:       10,
		Height:      20,
		Bytes:       300,
		Compression: domain.CompressionWebP,
		Quality:     50,
		Time:        0.5,
		Success:     true,
		Outcome:     domain.OutcomeOK,
	}
}

func TestAuthGate(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		auth       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{name: "missing header on convert", token: "secret", method: http.MethodPut, target: "/a.jpg",
			wantStatus: http.StatusUnauthorized},
		{name: "wrong token on convert", token: "secret", auth: "Bearer nope", method: http.MethodPut,
			target: "/a.jpg", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme on delete", token: "secret", auth: "Basic secret", method: http.MethodDelete,
			target: "/a.jpg", wantStatus: http.StatusUnauthorized},
		{name: "missing header on delete", token: "secret", method: http.MethodDelete, target: "/a.jpg",
			wantStatus: http.StatusUnauthorized},
		{name: "missing header on batch convert", token: "secret", method: http.MethodPut, target: "/",
			body: `["a.jpg","b.jpg"]`, wantStatus: http.StatusUnauthorized},
		{name: "wrong token on batch convert", token: "secret", auth: "Bearer nope", method: http.MethodPut,
			target: "/", body: `["a.jpg"]`, wantStatus: http.StatusUnauthorized},
		{name: "missing header on batch delete", token: "secret", method: http.MethodDelete, target: "/",
			body: `["a.jpg","b.jpg"]`, wantStatus: http.StatusUnauthorized},
		{name: "wrong token on batch delete", token: "secret", auth: "Bearer nope", method: http.MethodDelete,
			target: "/", body: `["a.jpg"]`, wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := new(MockConverter)
			d := new(MockDeleter)

			rec := serve(newTestRouter(c, d, tc.token), tc.method, tc.target, tc.body, tc.auth)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
			c.AssertNotCalled(t, "Convert", mock.Anything, mock.Anything, mock.Anything)
			d.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthGateAcceptsValidToken(t *testing.T) {
	c := new(MockConverter)
	c.On("Convert", mock.Anything, "a.jpg", mock.Anything).Return(converted("a.jpg"))

	rec := serve(newTestRouter(c, new(MockDeleter), "secret"), http.MethodPut, "/a.jpg", "", "Bearer secret")

	assert.Equal(t, http.StatusOK, rec.Code)
	c.AssertExpectations(t)
}

func TestAuthGateDisabledWithoutToken(t *testing.T) {
	d := new(MockDeleter)
	d.On("Delete", mock.Anything, "a.jpg").Return(&domain.DeletionResult{
		Image: "a.jpg.tif", Action: domain.ActionDelete, Success: true, Outcome: domain.OutcomeOK,
	})

	rec := serve(newTestRouter(new(MockConverter), d, ""), http.MethodDelete, "/a.jpg", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"image":"a.jpg.tif","action":"delete","success":true}`, rec.Body.String())
	d.AssertExpectations(t)
}

func TestConvertParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   domain.ConversionParams
	}{
		{
			name:   "defaults",
			target: "/dir/a.jpg",
			want:   domain.ConversionParams{Compression: domain.CompressionWebP, Quality: 50, TileSize: 256},
		},
		{
			name:   "overrides",
			target: "/dir/a.jpg?compression=jpeg&quality=80&tilesize=512",
			want:   domain.ConversionParams{Compression: domain.CompressionJPEG, Quality: 80, TileSize: 512},
		},
		{
			name:   "quality out of range",
			target: "/dir/a.jpg?quality=500",
			want:   domain.ConversionParams{Compression: domain.CompressionWebP, Quality: 50, TileSize: 256},
		},
		{
			name:   "invalid values fall back",
			target: "/dir/a.jpg?compression=gif&quality=high&tilesize=-1",
			want:   domain.ConversionParams{Compression: domain.CompressionWebP, Quality: 50, TileSize: 256},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := new(MockConverter)
			c.On("Convert", mock.Anything, "dir/a.jpg", tc.want).Return(converted("dir/a.jpg"))

			rec := serve(newTestRouter(c, new(MockDeleter), ""), http.MethodPut, tc.target, "", "")

			assert.Equal(t, http.StatusOK, rec.Code)
			c.AssertExpectations(t)
		})
	}
}

func TestConvertStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		outcome    domain.Outcome
		wantStatus int
	}{
		{name: "ok", outcome: domain.OutcomeOK, wantStatus: http.StatusOK},
		{name: "invalid", outcome: domain.OutcomeInvalid, wantStatus: http.StatusBadRequest},
		{name: "not found", outcome: domain.OutcomeNotFound, wantStatus: http.StatusNotFound},
		{name: "failed", outcome: domain.OutcomeFailed, wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := new(MockConverter)
			c.On("Convert", mock.Anything, "a.jpg", mock.Anything).Return(&domain.ConversionResult{
				Image:   "a.jpg",
				Success: tc.outcome == domain.OutcomeOK,
				Outcome: tc.outcome,
			})

			rec := serve(newTestRouter(c, new(MockDeleter), ""), http.MethodPut, "/a.jpg", "", "")

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestConvertBatch(t *testing.T) {
	tests := []struct {
		name        string
		failing     string
		wantStatus  int
		wantSuccess []bool
	}{
		{
			name:        "all succeed",
			wantStatus:  http.StatusOK,
			wantSuccess: []bool{true, true, true},
		},
		{
			name:        "one item fails",
			failing:     "b.jpg",
			wantStatus:  http.StatusInternalServerError,
			wantSuccess: []bool{true, false, true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := new(MockConverter)
			for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
				result := converted(name)
				if name == tc.failing {
					result = &domain.ConversionResult{
						Image: name, Action: domain.ActionConvert, Error: "not found", Outcome: domain.OutcomeNotFound,
					}
				}
				c.On("Convert", mock.Anything, name, testDefaults.Resolve("", "", "")).Return(result)
			}

			rec := serve(newTestRouter(c, new(MockDeleter), ""), http.MethodPut, "/",
				`["a.jpg","b.jpg","c.jpg"]`, "")

			assert.Equal(t, tc.wantStatus, rec.Code)

			var results []domain.ConversionResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
			require.Len(t, results, 3)
			for i, r := range results {
				assert.Equal(t, tc.wantSuccess[i], r.Success)
			}
			assert.Equal(t, "b.jpg", results[1].Image)
			c.AssertExpectations(t)
		})
	}
}

func TestDeleteBatch(t *testing.T) {
	d := new(MockDeleter)
	d.On("Delete", mock.Anything, "a.jpg").Return(&domain.DeletionResult{
		Image: "a.jpg.tif", Action: domain.ActionDelete, Success: true, Outcome: domain.OutcomeOK,
	})
	d.On("Delete", mock.Anything, "b.jpg").Return(&domain.DeletionResult{
		Image: "b.jpg", Action: domain.ActionDelete, Error: "not found", Outcome: domain.OutcomeNotFound,
	})

	rec := serve(newTestRouter(new(MockConverter), d, ""), http.MethodDelete, "/", `["a.jpg","b.jpg"]`, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `[
		{"image":"a.jpg.tif","action":"delete","success":true},
		{"image":"b.jpg","action":"delete","success":false,"error":"not found"}
	]`, rec.Body.String())
}

func TestBatchRejectsMalformedBody(t *testing.T) {
	for _, body := range []string{`{"a":1}`, `not json`, `null`} {
		t.Run(body, func(t *testing.T) {
			c := new(MockConverter)
			rec := serve(newTestRouter(c, new(MockDeleter), ""), http.MethodPut, "/", body, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			c.AssertNotCalled(t, "Convert", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestExists(t *testing.T) {
	c := new(MockConverter)
	c.On("Exists", "present.jpg").Return(true)
	c.On("Exists", "absent.jpg").Return(false)
	router := newTestRouter(c, new(MockDeleter), "secret")

	assert.Equal(t, http.StatusOK, serve(router, http.MethodHead, "/present.jpg", "", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodHead, "/absent.jpg", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodHead, "/a/../b.jpg", "", "").Code)
	c.AssertNumberOfCalls(t, "Exists", 2)
}

func TestIndexAndHealth(t *testing.T) {
	router := newTestRouter(new(MockConverter), new(MockDeleter), "secret")

	rec := serve(router, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pyramid TIFF conversion end-point")

	rec = serve(router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	})
	h := NewHTTP(new(MockConverter), new(MockDeleter), service.NewTokenAuthorizer(""), testDefaults, 1)

	rec := serve(h.Routes(metrics), http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metrics", rec.Body.String())

	rec = serve(h.Routes(nil), http.MethodGet, "/metrics", "", "")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestPanicReturnsJSON(t *testing.T) {
	c := new(MockConverter)
	c.On("Convert", mock.Anything, "a.jpg", mock.Anything).Run(func(mock.Arguments) {
		panic("encoder exploded")
	})

	rec := serve(newTestRouter(c, new(MockDeleter), ""), http.MethodPut, "/a.jpg", "", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}
