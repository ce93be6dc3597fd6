// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/angelamos/scribe/internal/core"
)

type SessionRevoker interface {
	LogoutAll(ctx context.Context, userID string) error
}

type Counter func(ctx context.Context) (int, error)

type Handler struct {
	users       Counter
	generations Counter
	quotaUsed   Counter
	active      Counter
	dbStats     func() sql.DBStats
	redisStats  func() *redis.PoolStats
	sessions    SessionRevoker
}

type HandlerConfig struct {
	Users       Counter
	Generations Counter
	QuotaUsed   Counter
	Active      Counter
	DBStats     func() sql.DBStats
	RedisStats  func() *redis.PoolStats
	Sessions    SessionRevoker
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		users:       cfg.Users,
		generations: cfg.Generations,
		quotaUsed:   cfg.QuotaUsed,
		active:      cfg.Active,
		dbStats:     cfg.DBStats,
		redisStats:  cfg.RedisStats,
		sessions:    cfg.Sessions,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/stats", h.GetStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)
		r.Delete("/sessions/{userID}", h.RevokeUserSessions)
	})
}

// GetStats reports domain totals and pool health. Totals are collected
// concurrently; any failure fails the request.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	var resp StatsResponse

	g, ctx := errgroup.WithContext(r.Context())
	collect := func(c Counter, dst *int) {
		if c == nil {
			return
		}
		g.Go(func() error {
			n, err := c(ctx)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	collect(h.users, &resp.Users)
	collect(h.generations, &resp.Generations)
	collect(h.quotaUsed, &resp.QuotaUsed)
	collect(h.active, &resp.ActiveSessions)

	if err := g.Wait(); err != nil {
		core.InternalServerError(w, err)
		return
	}

	resp.Database = h.getDBStats()
	resp.Redis = h.getRedisStats()

	core.OK(w, resp)
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	core.OK(w, RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	})
}

func (h *Handler) RevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		core.NotFound(w, "session store")
		return
	}

	if err := h.sessions.LogoutAll(r.Context(), chi.URLParam(r, "userID")); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}

type StatsResponse struct {
	Users          int             `json:"users"`
	Generations    int             `json:"generations"`
	QuotaUsed      int             `json:"quota_used"`
	ActiveSessions int             `json:"active_sessions"`
	Database       *DBPoolStats    `json:"database,omitempty"`
	Redis          *RedisPoolStats `json:"redis,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
