package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"tiffsrv/internal/core/domain"
	"tiffsrv/internal/core/port"
	"tiffsrv/internal/core/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

// HTTP exposes conversion and deletion over a small REST surface.
type HTTP struct {
	converter  port.Converter
	deleter    port.Deleter
	authorizer port.Authorizer
	defaults   domain.Defaults
	batchLimit int
}

func NewHTTP(converter port.Converter, deleter port.Deleter, authorizer port.Authorizer, defaults domain.Defaults,
	batchLimit int) *HTTP {
	return &HTTP{
		converter:  converter,
		deleter:    deleter,
		authorizer: authorizer,
		defaults:   defaults,
		batchLimit: batchLimit,
	}
}

// Routes builds the router. metrics is mounted on /metrics when not nil.
func (h *HTTP) Routes(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares()...)

	r.Get("/", h.Index)
	r.Get("/healthz", h.Health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Head("/*", h.Exists)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Put("/", h.ConvertAll)
		r.Delete("/", h.DeleteAll)
		r.Put("/*", h.Convert)
		r.Delete("/*", h.Delete)
	})

	return r
}

const landingPage = `<!DOCTYPE html><html><head><title>tiffsrv</title><style>` +
	`body{margin:0;height:100vh;display:grid;place-items:center;font-family:sans-serif}` +
	`h1{background-color:#7f0000;color:white;padding:1.5em 2em;border-radius:0.4em}` +
	`</style></head><body><h1>Pyramid TIFF conversion end-point</h1></body></html>`

func (h *HTTP) Index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(landingPage))
}

func (h *HTTP) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTP) Exists(w http.ResponseWriter, r *http.Request) {
	name, err := imageName(r)
	if err != nil || domain.ValidateName(name) != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if h.converter.Exists(name) {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func (h *HTTP) Convert(w http.ResponseWriter, r *http.Request) {
	name, err := imageName(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result := h.converter.Convert(r.Context(), name, h.params(r))
	writeJSON(w, statusFor(result.Outcome), result)
}

func (h *HTTP) ConvertAll(w http.ResponseWriter, r *http.Request) {
	names, err := decodeNames(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	params := h.params(r)
	results, status := service.ApplyBatch(r.Context(), names, h.batchLimit,
		func(ctx context.Context, name string) *domain.ConversionResult {
			return h.converter.Convert(ctx, name, params)
		})

	writeJSON(w, statusFor(status), results)
}

func (h *HTTP) Delete(w http.ResponseWriter, r *http.Request) {
	name, err := imageName(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result := h.deleter.Delete(r.Context(), name)
	writeJSON(w, statusFor(result.Outcome), result)
}

func (h *HTTP) DeleteAll(w http.ResponseWriter, r *http.Request) {
	names, err := decodeNames(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	results, status := service.ApplyBatch(r.Context(), names, h.batchLimit, h.deleter.Delete)

	writeJSON(w, statusFor(status), results)
}

func (h *HTTP) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.authorizer.IsAuthorized(r.Header.Get("Authorization")) {
			hlog.FromRequest(r).Warn().Str("path", r.URL.Path).Msg("rejected unauthorized request")
			writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *HTTP) params(r *http.Request) domain.ConversionParams {
	q := r.URL.Query()
	return h.defaults.Resolve(q.Get("compression"), q.Get("quality"), q.Get("tilesize"))
}

// imageName extracts the identifier from the wildcard segment of the request path.
func imageName(r *http.Request) (string, error) {
	name := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return name, nil
	}

	unescaped, err := url.PathUnescape(name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidName, err)
	}

	return unescaped, nil
}

func decodeNames(r *http.Request) ([]string, error) {
	var names []string
	if err := json.NewDecoder(r.Body).Decode(&names); err != nil {
		return nil, fmt.Errorf("request body must be a JSON array of image names: %w", err)
	}

	if names == nil {
		return nil, errors.New("request body must be a JSON array of image names")
	}

	return names, nil
}

func statusFor(outcome domain.Outcome) int {
	switch outcome {
	case domain.OutcomeOK:
		return http.StatusOK
	case domain.OutcomeInvalid:
		return http.StatusBadRequest
	case domain.OutcomeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
