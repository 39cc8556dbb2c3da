package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

type MetricsConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ScrapeInterval time.Duration `yaml:"scrape_interval"`
}

// Metrics holds every series the service exports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	draws       *CounterVec
	drawLatency *HistogramVec
	relayed     *CounterVec
	wsConnected *Gauge
	wsEvicted   *Counter
	dbStats     *GaugeVec
	redisUp     *Gauge
	redisPing   *Gauge
	scrapeEvery time.Duration
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	every := cfg.ScrapeInterval
	if every <= 0 {
		every = 15 * time.Second
	}
	return &Metrics{
		apiRequests: NewCounterVec("santa_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"santa_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]string{"method", "route"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("santa_api_inflight_requests", "In-flight API requests."),
		draws:       NewCounterVec("santa_draws_total", "Draw attempts by phase and outcome.", []string{"phase", "outcome"}),
		drawLatency: NewHistogramVec(
			"santa_draw_duration_seconds",
			"Time spent in the assignment engine.",
			[]string{"phase"},
			[]float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		),
		relayed:     NewCounterVec("santa_relay_messages_total", "Relay frames by outcome.", []string{"outcome"}),
		wsConnected: NewGauge("santa_ws_connections", "Open relay websocket connections."),
		wsEvicted:   NewCounter("santa_ws_evicted_total", "Relay connections dropped for falling behind."),
		dbStats:     NewGaugeVec("santa_db_pool", "database/sql pool stats.", []string{"stat"}),
		redisUp:     NewGauge("santa_redis_up", "1 when the last redis ping succeeded."),
		redisPing:   NewGauge("santa_redis_ping_seconds", "Latency of the last redis ping."),
		scrapeEvery: every,
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.draws, m.drawLatency,
		m.relayed, m.wsConnected, m.wsEvicted,
		m.dbStats, m.redisUp, m.redisPing,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveDraw records one engine run. phase is empty when the run failed
// before producing a result.
func (m *Metrics) ObserveDraw(phase, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	if phase == "" {
		phase = "none"
	}
	m.draws.Inc(phase, outcome)
	m.drawLatency.Observe(dur.Seconds(), phase)
}

func (m *Metrics) DrawCount(phase, outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.draws.Value(phase, outcome)
}

func (m *Metrics) IncRelayed(outcome string) {
	if m == nil {
		return
	}
	m.relayed.Inc(outcome)
}

func (m *Metrics) RelayedCount(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.relayed.Value(outcome)
}

func (m *Metrics) WSConnected() {
	if m == nil {
		return
	}
	m.wsConnected.Inc()
}

func (m *Metrics) WSDisconnected() {
	if m == nil {
		return
	}
	m.wsConnected.Dec()
}

func (m *Metrics) WSConnections() float64 {
	if m == nil {
		return 0
	}
	return m.wsConnected.Value()
}

func (m *Metrics) IncWSEvicted() {
	if m == nil {
		return
	}
	m.wsEvicted.Inc()
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

// StartRedisCollector pings rdb on the scrape interval. The client is owned
// by the caller.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil && !strings.Contains(err.Error(), "context canceled") {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
