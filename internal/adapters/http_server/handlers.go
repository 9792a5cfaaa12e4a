package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"market_intel/internal/app"
	"market_intel/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	A *app.MarketAnalyzer
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/restaurants", h.searchRestaurants)
	s.mux.Get("/v1/market", h.analyzeMarket)
	s.mux.Get("/v1/providers/failures", h.listFailures)
}

// ---- query binding ----

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report query parameter names instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})
	return v
}

type searchParams struct {
	Lat       *float64 `query:"lat" validate:"required,gte=-90,lte=90"`
	Lon       *float64 `query:"lon" validate:"required,gte=-180,lte=180"`
	Radius    int      `query:"radius" validate:"omitempty,min=1,max=40000"`
	Cuisine   string   `query:"cuisine" validate:"omitempty,max=64"`
	Price     string   `query:"price" validate:"omitempty,oneof=$ $$ $$$ $$$$"`
	MinRating float64  `query:"min_rating" validate:"gte=0,lte=5"`
	Limit     int      `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int      `query:"offset" validate:"gte=0,lte=1000"`
}

type marketParams struct {
	Lat    *float64 `query:"lat" validate:"required,gte=-90,lte=90"`
	Lon    *float64 `query:"lon" validate:"required,gte=-180,lte=180"`
	Radius int      `query:"radius" validate:"omitempty,min=1,max=40000"`
}

type failuresParams struct {
	Provider string `query:"provider" validate:"omitempty,oneof=yelp foursquare google"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

// queryReader collects the first parse error so binding reads linearly.
type queryReader struct {
	q   url.Values
	err error
}

func (r *queryReader) float(key string) *float64 {
	s := strings.TrimSpace(r.q.Get(key))
	if s == "" || r.err != nil {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.err = fmt.Errorf("%s must be a number", key)
		return nil
	}
	return &f
}

func (r *queryReader) int(key string) int {
	s := strings.TrimSpace(r.q.Get(key))
	if s == "" || r.err != nil {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.err = fmt.Errorf("%s must be an integer", key)
		return 0
	}
	return n
}

func (r *queryReader) str(key string) string { return strings.TrimSpace(r.q.Get(key)) }

// bind validates p and writes a 400 problem on failure.
func bind(w http.ResponseWriter, qr *queryReader, p any) bool {
	if qr.err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid query", qr.err.Error())
		return false
	}
	if err := validate.Struct(p); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid query", describe(err))
		return false
	}
	return true
}

func describe(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err.Error()
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(parts, "; ")
}

// ---- responses ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps use-case errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	var ex *domain.AggregateExhaustedError
	switch {
	case errors.As(err, &ex):
		writeProblem(w, http.StatusServiceUnavailable, "Providers unavailable", ex.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Timeout", "providers did not answer in time")
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads this
		writeProblem(w, 499, "Client Closed Request", "")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal error", "encode response")
		return
	}
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

// ---- handlers ----

func (h *Handlers) searchRestaurants(w http.ResponseWriter, r *http.Request) {
	qr := &queryReader{q: r.URL.Query()}
	p := searchParams{
		Lat:     qr.float("lat"),
		Lon:     qr.float("lon"),
		Radius:  qr.int("radius"),
		Cuisine: qr.str("cuisine"),
		Price:   qr.str("price"),
		Limit:   qr.int("limit"),
		Offset:  qr.int("offset"),
	}
	if mr := qr.float("min_rating"); mr != nil {
		p.MinRating = *mr
	}
	if !bind(w, qr, &p) {
		return
	}

	res, err := h.Q.Search(r.Context(), domain.SearchQuery{
		Center:    domain.Coords{Lat: *p.Lat, Lon: *p.Lon},
		Radius:    p.Radius,
		Cuisine:   p.Cuisine,
		Price:     domain.PriceRange(p.Price),
		MinRating: p.MinRating,
		Limit:     p.Limit,
		Offset:    p.Offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Restaurants == nil {
		res.Restaurants = []domain.Restaurant{}
	}
	writeJSON(w, r, res)
}

func (h *Handlers) analyzeMarket(w http.ResponseWriter, r *http.Request) {
	qr := &queryReader{q: r.URL.Query()}
	p := marketParams{
		Lat:    qr.float("lat"),
		Lon:    qr.float("lon"),
		Radius: qr.int("radius"),
	}
	if !bind(w, qr, &p) {
		return
	}

	a, err := h.A.Analyze(r.Context(), *p.Lat, *p.Lon, p.Radius)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, a)
}

func (h *Handlers) listFailures(w http.ResponseWriter, r *http.Request) {
	qr := &queryReader{q: r.URL.Query()}
	p := failuresParams{
		Provider: qr.str("provider"),
		Limit:    qr.int("limit"),
	}
	if !bind(w, qr, &p) {
		return
	}

	q := domain.FailuresQuery{Limit: p.Limit}
	if p.Provider != "" {
		src := domain.Source(p.Provider)
		q.Provider = &src
	}
	rows, err := h.Q.RecentFailures(r.Context(), q)
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "failure log is not configured")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.ProviderFailure{}
	}
	writeJSON(w, r, map[string]any{"failures": rows})
}
