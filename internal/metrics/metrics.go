package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/keshon/searchpanel/internal/provider/cache"
	"github.com/keshon/searchpanel/internal/search"
)

// Collector holds the search subsystem metrics.
type Collector struct {
	registry *prometheus.Registry

	sessionsOpened    prometheus.Counter
	sessionsDestroyed *prometheus.CounterVec
	sessionLifetime   prometheus.Histogram
	sessionsOpen      prometheus.Gauge
	conflicts         prometheus.Counter
	bypasses          *prometheus.CounterVec
	lookups           *prometheus.CounterVec
	lookupDuration    *prometheus.HistogramVec
	cacheLookups      *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "searchpanel_sessions_opened_total",
			Help: "Search sessions created",
		}),
		sessionsDestroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "searchpanel_sessions_destroyed_total",
			Help: "Search sessions destroyed, by reason",
		}, []string{"reason"}),
		sessionLifetime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "searchpanel_session_lifetime_seconds",
			Help:    "Time from session creation to destruction",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		sessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "searchpanel_sessions_open",
			Help: "Search sessions currently registered",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "searchpanel_session_conflicts_total",
			Help: "Searches rejected because the user already had an open panel",
		}),
		bypasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "searchpanel_url_bypass_total",
			Help: "Queries enqueued directly because they were URLs",
		}, []string{"provider"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "searchpanel_lookups_total",
			Help: "Provider lookups, by outcome",
		}, []string{"provider", "outcome"}),
		lookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "searchpanel_lookup_duration_seconds",
			Help:    "Provider lookup latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "searchpanel_cache_lookups_total",
			Help: "Result cache lookups, by hit or miss",
		}, []string{"provider", "result"}),
	}

	c.registry.MustRegister(
		c.sessionsOpened,
		c.sessionsDestroyed,
		c.sessionLifetime,
		c.sessionsOpen,
		c.conflicts,
		c.bypasses,
		c.lookups,
		c.lookupDuration,
		c.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Hooks wires the collector into a search.Registry and search.Controller.
func (c *Collector) Hooks() search.Hooks {
	return search.Hooks{
		OnAcquire: func(search.Key) {
			c.sessionsOpened.Inc()
			c.sessionsOpen.Inc()
		},
		OnConflict: func(search.Key) {
			c.conflicts.Inc()
		},
		OnDestroy: func(_ search.Key, reason search.DestroyReason, lifetime time.Duration) {
			c.sessionsDestroyed.WithLabelValues(string(reason)).Inc()
			c.sessionLifetime.Observe(lifetime.Seconds())
			c.sessionsOpen.Dec()
		},
		OnBypass: func(provider string) {
			c.bypasses.WithLabelValues(provider).Inc()
		},
		OnLookup: func(provider string, took time.Duration, err error) {
			outcome := "ok"
			if err != nil {
				outcome = "error"
				if errors.Is(err, context.DeadlineExceeded) {
					outcome = "timeout"
				}
			}
			c.lookups.WithLabelValues(provider, outcome).Inc()
			c.lookupDuration.WithLabelValues(provider).Observe(took.Seconds())
		},
	}
}

func (c *Collector) CacheHooks() cache.Hooks {
	return cache.Hooks{
		OnHit:  func(provider string) { c.cacheLookups.WithLabelValues(provider, "hit").Inc() },
		OnMiss: func(provider string) { c.cacheLookups.WithLabelValues(provider, "miss").Inc() },
	}
}

// Router serves /metrics and /healthz.
func (c *Collector) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	handler := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	r.GET("/metrics", func(ctx *gin.Context) {
		handler.ServeHTTP(ctx.Writer, ctx.Request)
	})
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "ok")
	})
	return r
}

// Serve blocks until ctx is cancelled or the listener fails; run it in a
// goroutine.
func (c *Collector) Serve(ctx context.Context, addr string, log logrus.FieldLogger) {
	srv := &http.Server{Addr: addr, Handler: c.Router(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		log.Info("shutting down metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("metrics server exited")
	}
}
