// Package api exposes the local control surface of a running galley
// daemon: command execution, session inspection, allowlist management,
// and the audit read side. The server answers on loopback TCP and on a
// flock-guarded unix socket (named pipe on Windows), so CLI subcommands
// can reach the daemon without knowing its port.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BakeLens/galley/internal/allowlist"
	"github.com/BakeLens/galley/internal/audit"
	"github.com/BakeLens/galley/internal/logger"
	"github.com/BakeLens/galley/internal/stream"
	"github.com/BakeLens/galley/internal/tools"
)

var log = logger.New("api")

// Server handles HTTP requests against the terminal facade and its
// supporting stores.
type Server struct {
	terminal  *tools.Terminal
	allowlist *allowlist.List
	stream    *stream.Handler
	audit     *audit.Store
	version   string
	startedAt time.Time
	router    *gin.Engine
}

// Deps carries the server dependencies. Terminal and Allowlist are
// required; Stream and Audit routes degrade gracefully when absent.
type Deps struct {
	Terminal  *tools.Terminal
	Allowlist *allowlist.List
	Stream    *stream.Handler
	Audit     *audit.Store
	Version   string
}

// NewServer creates the control API server with its middleware chain.
func NewServer(d Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply middleware in order
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())
	router.Use(LoopbackOnlyMiddleware())
	router.Use(BodySizeLimitMiddleware(MaxBodySize))

	s := &Server{
		terminal:  d.Terminal,
		allowlist: d.Allowlist,
		stream:    d.Stream,
		audit:     d.Audit,
		version:   d.Version,
		startedAt: time.Now(),
		router:    router,
	}

	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	apiGroup := s.router.Group("/api/galley")
	{
		apiGroup.GET("/status", s.handleStatus)
		apiGroup.POST("/execute", s.handleExecute)
		apiGroup.POST("/check", s.handleCheck)

		sessions := apiGroup.Group("/sessions")
		{
			sessions.GET("", s.handleListSessions)
			sessions.GET("/:id", s.handleSessionStatus)
			sessions.DELETE("/:id", s.handleKillSession)
			sessions.GET("/:id/stream", s.handleSessionStream)
		}

		allowGroup := apiGroup.Group("/allowlist")
		{
			allowGroup.GET("", s.handleAllowlist)
			allowGroup.POST("/reload", s.handleAllowlistReload)
		}

		auditGroup := apiGroup.Group("/audit")
		{
			auditGroup.GET("/recent", s.handleAuditRecent)
			auditGroup.GET("/stats", s.handleAuditStats)
		}

		apiGroup.GET("/metrics", s.handleMetrics)
	}
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// handleStatus handles GET /api/galley/status. It is the one-call
// summary the `galley status` subcommand renders.
func (s *Server) handleStatus(c *gin.Context) {
	list := s.terminal.List(tools.ListRequest{})

	Success(c, gin.H{
		"version":         s.version,
		"uptime_seconds":  int64(time.Since(s.startedAt).Seconds()),
		"workspace_root":  s.terminal.Workspace().Root(),
		"active_sessions": list.ActiveCount,
		"total_sessions":  len(list.Sessions),
		"max_concurrency": list.MaxConcurrency,
		"allowlist_size":  s.allowlist.Len(),
		"audit_enabled":   s.audit != nil,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

// handleExecute handles POST /api/galley/execute. Denials come back as
// 200 with status "denied": they are evaluation results, not transport
// failures.
func (s *Server) handleExecute(c *gin.Context) {
	var req tools.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	Success(c, s.terminal.Execute(req))
}

// handleCheck handles POST /api/galley/check, the dry-run verdict.
func (s *Server) handleCheck(c *gin.Context) {
	var req tools.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	Success(c, s.terminal.Check(req))
}

// ListQuery represents query parameters for the sessions endpoint
type ListQuery struct {
	Active bool `form:"active"`
}

// handleListSessions handles GET /api/galley/sessions
func (s *Server) handleListSessions(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}
	Success(c, s.terminal.List(tools.ListRequest{ActiveOnly: query.Active}))
}

// handleSessionStatus handles GET /api/galley/sessions/:id
func (s *Server) handleSessionStatus(c *gin.Context) {
	id := c.Param("id")
	res := s.terminal.Status(tools.StatusRequest{
		SessionID:     id,
		IncludeOutput: c.Query("output") == "true",
	})
	if !res.Exists {
		NotFound(c, "Session not found")
		return
	}
	Success(c, res)
}

// handleKillSession handles DELETE /api/galley/sessions/:id
func (s *Server) handleKillSession(c *gin.Context) {
	id := c.Param("id")
	res := s.terminal.Kill(tools.KillRequest{SessionID: id, Reason: c.Query("reason")})
	if !res.Killed && res.Message == "session not found" {
		NotFound(c, "Session not found")
		return
	}
	Success(c, res)
}

// handleAllowlist handles GET /api/galley/allowlist. The optional
// ?source= filter narrows to builtin/user/config entries.
func (s *Server) handleAllowlist(c *gin.Context) {
	entries := s.allowlist.Entries()
	if src := c.Query("source"); src != "" {
		filtered := make([]allowlist.Entry, 0, len(entries))
		for _, e := range entries {
			if e.Source == src {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	Success(c, gin.H{"entries": entries, "count": len(entries)})
}

// handleAllowlistReload handles POST /api/galley/allowlist/reload
func (s *Server) handleAllowlistReload(c *gin.Context) {
	if err := s.allowlist.ReloadUser(); err != nil {
		log.Warn("Allowlist reload via API failed: %v", err)
		Error(c, http.StatusInternalServerError, "Failed to reload allowlist")
		return
	}
	Success(c, gin.H{"message": "allowlist reloaded", "count": s.allowlist.Len()})
}

// RecentQuery represents query parameters for the audit recent endpoint
type RecentQuery struct {
	Minutes int `form:"minutes" binding:"omitempty,min=1,max=10080"` // max 7 days
	Limit   int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// handleAuditRecent handles GET /api/galley/audit/recent
func (s *Server) handleAuditRecent(c *gin.Context) {
	if s.audit == nil {
		Error(c, http.StatusServiceUnavailable, "Audit is disabled")
		return
	}

	var query RecentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		Error(c, http.StatusBadRequest, err.Error())
		return
	}

	// Set defaults
	if query.Minutes == 0 {
		query.Minutes = 60
	}
	if query.Limit == 0 {
		query.Limit = 100
	}

	rows, err := s.audit.Recent(query.Minutes, query.Limit)
	if err != nil {
		log.Warn("Audit query failed: %v", err)
		Error(c, http.StatusInternalServerError, "Failed to get executions")
		return
	}
	if rows == nil {
		rows = []audit.Execution{}
	}
	Success(c, rows)
}

// handleAuditStats handles GET /api/galley/audit/stats
func (s *Server) handleAuditStats(c *gin.Context) {
	if s.audit == nil {
		Error(c, http.StatusServiceUnavailable, "Audit is disabled")
		return
	}
	stats, err := s.audit.GetStats()
	if err != nil {
		log.Warn("Audit stats failed: %v", err)
		Error(c, http.StatusInternalServerError, "Failed to get stats")
		return
	}
	Success(c, stats)
}

// handleMetrics handles GET /api/galley/metrics
// Returns in-memory counters for the current daemon session (not DB totals).
func (s *Server) handleMetrics(c *gin.Context) {
	if s.audit == nil {
		Error(c, http.StatusServiceUnavailable, "Audit is disabled")
		return
	}
	m := s.audit.Metrics()
	Success(c, gin.H{
		"counters":    m.Snapshot(),
		"denial_rate": m.DenialRate(),
	})
}
