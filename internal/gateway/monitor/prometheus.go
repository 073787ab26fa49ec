package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	// UpstreamRequests 上游调用相关
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of upstream info requests issued.",
		},
		[]string{"type", "outcome"},
	)
	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Time taken by a single upstream info request.",
			Buckets: []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"type"},
	)
	RateLimiterWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rate_limiter_wait_duration_seconds",
			Help:    "Time spent waiting for upstream weight tokens.",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 60.0},
		},
	)

	// CacheRequests 缓存相关
	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups partitioned by cache name and hit/miss.",
		},
		[]string{"cache", "result"},
	)
	CacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of live entries per cache.",
		},
		[]string{"cache"},
	)

	// LeaderboardBuildDuration 排行榜相关
	LeaderboardBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leaderboard_build_duration_seconds",
			Help:    "Time taken to compute a full leaderboard.",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
	)
	LeaderboardUsersSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leaderboard_users_skipped_total",
			Help: "Registered users skipped due to per-user computation failures.",
		},
	)
	RegisteredUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "registered_users",
			Help: "Current number of registered leaderboard users.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		// 上游指标
		UpstreamRequests,
		UpstreamRequestDuration,
		RateLimiterWaitDuration,

		// 缓存指标
		CacheRequests,
		CacheEntries,

		// 排行榜指标
		LeaderboardBuildDuration,
		LeaderboardUsersSkipped,
		RegisteredUsers,
	)
}
