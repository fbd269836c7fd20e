package http

import (
	"net/http"
	"strings"
	"sync"

	"fintrack/internal/analytics"
	applog "fintrack/internal/log"
)

// handleDashboard serves the analytics dashboard for ?periodType=&date=.
// Results are cached per owner, period type and anchor until the owner
// writes a transaction or category.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r)
	q := analytics.Query{
		PeriodType: r.URL.Query().Get("periodType"),
		Date:       r.URL.Query().Get("date"),
	}

	req, err := s.analytics.Resolve(q)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	key := dashboardKey(owner, req, q.Date)
	gen := s.dashboardGens.current(owner)
	if s.dashboards != nil {
		if d, ok := s.dashboards.Get(key); ok {
			s.appMetrics.hit()
			s.logger.DebugContext(r.Context(), "Dashboard served from cache",
				applog.FieldUserID, owner,
				applog.FieldPeriodType, req.Period,
				applog.FieldCacheHit, true)
			writeJSON(w, http.StatusOK, d)
			return
		}
		s.appMetrics.miss()
	}

	d, err := s.analytics.Dashboard(r.Context(), owner, q)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	s.logger.WithComponent(applog.ComponentAnalytics).DebugContext(r.Context(), "Dashboard computed",
		applog.NewFields().
			WithPeriod(string(req.Period), req.Anchor.UTC().Format("2006-01-02")).
			ToSlice()...)

	if s.dashboards != nil {
		s.dashboardGens.storeIfCurrent(owner, gen, func() { s.dashboards.Set(key, d) })
	}
	writeJSON(w, http.StatusOK, d)
}

// dashboardKey starts with the owner so an owner's entries can be dropped by
// prefix. Requests without a date share one entry per UTC day.
func dashboardKey(owner string, req analytics.Request, date string) string {
	anchor := date
	if anchor == "" {
		anchor = "day:" + req.Anchor.UTC().Format("2006-01-02")
	}
	return strings.Join([]string{owner, string(req.Period), anchor}, "|")
}

// dashboardGenerations counts invalidations per owner. A dashboard computed
// before an invalidation must not be cached after it.
type dashboardGenerations struct {
	mu   sync.Mutex
	gens map[string]uint64
}

func (g *dashboardGenerations) current(owner string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gens[owner]
}

// storeIfCurrent runs store only while owner is still at generation gen.
func (g *dashboardGenerations) storeIfCurrent(owner string, gen uint64, store func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gens[owner] != gen {
		return false
	}
	store()
	return true
}

// bump advances owner's generation and runs drop under the same lock.
func (g *dashboardGenerations) bump(owner string, drop func() int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gens == nil {
		g.gens = make(map[string]uint64)
	}
	g.gens[owner]++
	return drop()
}

func (s *Server) invalidateDashboards(r *http.Request, owner string) {
	if s.dashboards == nil || owner == "" {
		return
	}
	n := s.dashboardGens.bump(owner, func() int { return s.dashboards.DeletePrefix(owner + "|") })
	if n > 0 {
		s.logger.WithComponent(applog.ComponentCache).DebugContext(r.Context(), "Dashboard cache invalidated",
			applog.FieldUserID, owner,
			"entries", n)
	}
}
