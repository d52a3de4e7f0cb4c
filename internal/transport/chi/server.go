package chi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kailas-cloud/unisearch/internal/domain/entity"
	"github.com/kailas-cloud/unisearch/internal/domain/search/query"
	"github.com/kailas-cloud/unisearch/internal/domain/search/result"
	"github.com/kailas-cloud/unisearch/internal/usecase/capability"
	healthuc "github.com/kailas-cloud/unisearch/internal/usecase/health"
	"github.com/kailas-cloud/unisearch/internal/usecase/provision"
)

// DefaultUserHeader carries the caller's user id, set by the upstream gateway.
const DefaultUserHeader = "X-User-ID"

// Server holds the HTTP handlers.
type Server struct {
	search     Searcher
	caps       CapabilityChecker
	provision  Provisioner
	health     HealthChecker
	limits     query.Limits
	userHeader string
	metrics    http.Handler
}

// Options configure a Server.
type Options struct {
	Limits     query.Limits
	UserHeader string
	// Metrics serves GET /metrics; nil uses the default prometheus handler.
	Metrics http.Handler
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	caps CapabilityChecker,
	prov Provisioner,
	health HealthChecker,
	opts Options,
) *Server {
	header := opts.UserHeader
	if header == "" {
		header = DefaultUserHeader
	}
	metricsHandler := opts.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	return &Server{
		search:     search,
		caps:       caps,
		provision:  prov,
		health:     health,
		limits:     opts.Limits,
		userHeader: header,
		metrics:    metricsHandler,
	}
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/search", s.Search)
	r.Get("/search/suggestions", s.Suggestions)
	r.Get("/search/recent", s.Recent)
	r.Get("/search/popular", s.Popular)
	r.Delete("/search/history", s.ClearHistory)
	r.Get("/admin/indexes", s.ListIndexes)
	r.Post("/admin/indexes", s.ProvisionIndexes)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles GET /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	q, err := query.New(query.Params{
		Text:    deref(params.Q),
		Type:    deref(params.Type),
		Filters: params.Filters,
		Page:    deref(params.Page),
		Limit:   deref(params.Limit),
		Cursor:  deref(params.Cursor),
		SortBy:  deref(params.SortBy),
		UserID:  s.userID(r),
	}, s.limits)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	global, err := s.search.GlobalSearch(r.Context(), q)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, global)
}

// Suggestions handles GET /search/suggestions.
func (s *Server) Suggestions(w http.ResponseWriter, r *http.Request) {
	partial, err := bindQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	list, err := s.search.Suggestions(r.Context(), partial)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []result.Suggestion{}
	}
	writeJSON(w, http.StatusOK, list)
}

// RecentQuery is one entry of GET /search/recent.
type RecentQuery struct {
	Query    string `json:"query"`
	Count    int    `json:"count"`
	LastUsed int64  `json:"lastUsed"`
}

// PopularQuery is one entry of GET /search/popular.
type PopularQuery struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// QueriesResponse wraps history listings returned with detail=true.
type QueriesResponse[T any] struct {
	Queries []T `json:"queries"`
}

// Recent handles GET /search/recent. The body is the user's query strings,
// most recent first; detail=true adds count and lastUsed per query.
func (s *Server) Recent(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	detail, err := bindFlag(r.URL.Query(), "detail")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	entries, err := s.search.Recent(r.Context(), uid)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if !detail {
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.Query
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	out := make([]RecentQuery, len(entries))
	for i, e := range entries {
		out[i] = RecentQuery{Query: e.Query, Count: e.Count, LastUsed: e.LastUsed.UnixMilli()}
	}
	writeJSON(w, http.StatusOK, QueriesResponse[RecentQuery]{Queries: out})
}

// Popular handles GET /search/popular. The body is the most searched query
// strings across users; detail=true adds the total count per query.
func (s *Server) Popular(w http.ResponseWriter, r *http.Request) {
	detail, err := bindFlag(r.URL.Query(), "detail")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	popular, err := s.search.Popular(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if !detail {
		out := make([]string, len(popular))
		for i, p := range popular {
			out[i] = p.Query
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	out := make([]PopularQuery, len(popular))
	for i, p := range popular {
		out[i] = PopularQuery{Query: p.Query, Count: p.Count}
	}
	writeJSON(w, http.StatusOK, QueriesResponse[PopularQuery]{Queries: out})
}

// ClearHistory handles DELETE /search/history.
func (s *Server) ClearHistory(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := s.search.ClearHistory(r.Context(), uid); err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListIndexes handles GET /admin/indexes.
func (s *Server) ListIndexes(w http.ResponseWriter, r *http.Request) {
	descriptors := entity.Searchable()
	reports := make([]capability.Report, len(descriptors))
	for i, d := range descriptors {
		reports[i] = s.caps.Check(r.Context(), d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": reports})
}

// ProvisionIndexes handles POST /admin/indexes. With managed=true the managed
// search indexes are created as well. Conflicts are reported, not failed.
func (s *Server) ProvisionIndexes(w http.ResponseWriter, r *http.Request) {
	managed, err := bindFlag(r.URL.Query(), "managed")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	results := s.provision.EnsureAll(r.Context(), entity.All())
	if managed {
		for _, d := range entity.Searchable() {
			results = append(results, s.provision.EnsureManaged(r.Context(), d))
		}
	}

	var conflicts []provision.IndexError
	for _, res := range results {
		conflicts = append(conflicts, res.Conflicts()...)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":   results,
		"conflicts": len(conflicts),
	})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health. Only a failing store makes the service unavailable.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Checks[healthuc.ComponentStore] == healthuc.CheckError {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.ServeHTTP(w, r)
}

func (s *Server) userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(s.userHeader))
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := s.userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing "+s.userHeader+" header")
		return "", false
	}
	return uid, true
}
