// Package metrics exposes Prometheus metrics and a health endpoint for the
// alert evaluation engine.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the alert engine.
type Metrics struct {
	PassesTotal     prometheus.Counter
	PassDuration    prometheus.Histogram
	AlertsChecked   prometheus.Counter
	AlertsTriggered prometheus.Counter
	AlertsSkipped   *prometheus.CounterVec // labels: reason

	FetchAttempts      prometheus.Counter
	FetchRetries       prometheus.Counter
	FetchDuration      prometheus.Histogram
	SyntheticFallbacks prometheus.Counter
	CacheHits          prometheus.Counter

	NotificationsTotal *prometheus.CounterVec // labels: channel, status

	ActiveAlerts prometheus.Gauge
	MarketState  prometheus.Gauge // 0=closed, 1=open
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		PassesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_passes_total",
			Help: "Total evaluation passes completed",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertengine_pass_duration_seconds",
			Help:    "Wall time of one full evaluation pass",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		AlertsChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_alerts_checked_total",
			Help: "Total (alert, symbol) units evaluated",
		}),
		AlertsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_alerts_triggered_total",
			Help: "Total alerts that fired and were deactivated",
		}),
		AlertsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_alerts_skipped_total",
			Help: "Evaluation units skipped (by reason)",
		}, []string{"reason"}),

		FetchAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_fetch_attempts_total",
			Help: "Candle fetch attempts against the broker API",
		}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_fetch_retries_total",
			Help: "Fetch attempts beyond the first for a request",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertengine_fetch_duration_seconds",
			Help:    "Broker candle fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		SyntheticFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_synthetic_fallbacks_total",
			Help: "Fetches that exhausted retries and fell back to synthetic data",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_series_cache_hits_total",
			Help: "Candle series served from the Redis cache",
		}),

		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_notifications_total",
			Help: "Notification delivery attempts (by channel and status)",
		}, []string{"channel", "status"}),

		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_active_alerts",
			Help: "Active alerts seen in the latest pass",
		}),
		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_market_state",
			Help: "Market session state (0=closed, 1=open)",
		}),
	}

	prometheus.MustRegister(
		m.PassesTotal,
		m.PassDuration,
		m.AlertsChecked,
		m.AlertsTriggered,
		m.AlertsSkipped,
		m.FetchAttempts,
		m.FetchRetries,
		m.FetchDuration,
		m.SyntheticFallbacks,
		m.CacheHits,
		m.NotificationsTotal,
		m.ActiveAlerts,
		m.MarketState,
	)

	return m
}

// RecordNotification records one delivery attempt outcome.
func (m *Metrics) RecordNotification(channel string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.NotificationsTotal.WithLabelValues(channel, status).Inc()
}

// HealthStatus represents the engine's health.
type HealthStatus struct {
	mu sync.RWMutex

	BrokerSessionOK bool      `json:"broker_session_ok"`
	RedisConnected  bool      `json:"redis_connected"`
	SQLiteOK        bool      `json:"sqlite_ok"`
	LastPassAt      time.Time `json:"last_pass_at"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetBrokerSessionOK(v bool) {
	h.mu.Lock()
	h.BrokerSessionOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastPassAt(t time.Time) {
	h.mu.Lock()
	h.LastPassAt = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the alert database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// SQLite is the one hard dependency; Redis down only degrades caching.
	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.SQLiteOK {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	} else if !h.RedisConnected || !h.BrokerSessionOK {
		overallStatus = "degraded"
	}

	lastPass := ""
	if !h.LastPassAt.IsZero() {
		lastPass = h.LastPassAt.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		BrokerSessionOK bool    `json:"broker_session_ok"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastPassAt      string  `json:"last_pass_at"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		BrokerSessionOK: h.BrokerSessionOK,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastPassAt:      lastPass,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		health.mu.RLock()
		ready := health.SQLiteOK
		health.mu.RUnlock()
		if !ready {
			http.Error(w, "alert store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok\n"))
	})

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
