// Package observability holds the process-wide Prometheus metrics and the
// localhost debug server exposing them alongside pprof.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tick phases. The set is closed so the phase label stays bounded.
const (
	PhaseSpawn   = "spawn"
	PhaseAI      = "ai"
	PhaseMove    = "move"
	PhasePickup  = "pickup"
	PhaseAttack  = "attack"
	PhaseDeath   = "death"
	PhaseBonus   = "bonus"
	PhaseRespawn = "respawn"
	PhasePush    = "push"
)

// Metrics with bounded cardinality (no per-room or per-player labels)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent in one room tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	tickPhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arena_tick_phase_duration_seconds",
		Help:    "Time spent in each tick phase",
		Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	}, []string{"phase"})

	ticksOverBudget = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_ticks_over_budget_total",
		Help: "Ticks whose work exceeded the tick interval",
	})

	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_rooms_active",
		Help: "Rooms currently registered",
	})

	playersLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_players_live",
		Help: "Live players across all rooms",
	})

	roomCrashes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_room_crashes_total",
		Help: "Room tick loops terminated by a panic",
	})

	kills = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_kills_total",
		Help: "Players killed across all rooms",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket state messages queued",
	})

	wsMessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_dropped_total",
		Help: "State messages dropped because a subscriber was too slow",
	})
)

// RecordTick records the work time of one tick against its budget.
func RecordTick(work, budget time.Duration) {
	tickDuration.Observe(work.Seconds())
	if work > budget {
		ticksOverBudget.Inc()
	}
}

// RecordPhase records the duration of one tick phase.
func RecordPhase(phase string, d time.Duration) {
	tickPhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func SetRooms(n int)            { roomsActive.Set(float64(n)) }
func AddLivePlayers(n int)      { playersLive.Add(float64(n)) }
func RecordRoomCrash()          { roomCrashes.Inc() }
func RecordKill()               { kills.Inc() }
func UpdateWSConnections(n int) { wsConnectionsActive.Set(float64(n)) }
func IncrementWSMessages()      { wsMessagesTotal.Inc() }
func IncrementWSDropped()       { wsMessagesDropped.Inc() }

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit",
// "ws_command_rate"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics. endpoint must be a route
// pattern, never a raw path.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}
