package server

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 全局 Prometheus 指标，标签取值有界（不带 userID / room）
var (
	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tank_server_rooms_active",
		Help: "Rooms with a running tick loop",
	})
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tank_server_connections_active",
		Help: "Currently connected players",
	})
	inputsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tank_server_inputs_total",
		Help: "Inbound player inputs by outcome",
	}, []string{"result"}) // accepted, rate_limited, throttled, dropped, chan_full, invalid
	relayedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tank_server_relayed_messages_total",
		Help: "Outbound relay messages by event",
	}, []string{"event"})
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tank_server_tick_duration_seconds",
		Help:    "Time spent in one room tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})
)

// RoomMetrics 单个房间的运行指标（供 /admin/metrics 输出）
type RoomMetrics struct {
	TickCount         int64 // Tick 次数
	Joins             int64 // 加入次数（含重连）
	Leaves            int64 // 离开次数
	InputsAccepted    int64 // 被接受的输入数
	RateLimited       int64 // 同帧超过上限被拒绝
	Throttled         int64 // 连接级令牌桶拒绝
	Invalid           int64 // 无法解析的消息
	DropsSimulated    int64 // 模拟丢包
	ChanFullDiscarded int64 // 通道满被丢弃
	MessagesRelayed   int64 // 转发出去的消息数
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
}

func (m *RoomMetrics) IncJoin() { atomic.AddInt64(&m.Joins, 1) }
func (m *RoomMetrics) IncLeave() { atomic.AddInt64(&m.Leaves, 1) }

func (m *RoomMetrics) IncAccepted() {
	atomic.AddInt64(&m.InputsAccepted, 1)
	inputsTotal.WithLabelValues("accepted").Inc()
}

func (m *RoomMetrics) IncRateLimited() {
	atomic.AddInt64(&m.RateLimited, 1)
	inputsTotal.WithLabelValues("rate_limited").Inc()
}

func (m *RoomMetrics) IncThrottled() {
	atomic.AddInt64(&m.Throttled, 1)
	inputsTotal.WithLabelValues("throttled").Inc()
}

func (m *RoomMetrics) IncInvalid() {
	atomic.AddInt64(&m.Invalid, 1)
	inputsTotal.WithLabelValues("invalid").Inc()
}

func (m *RoomMetrics) IncDropsSimulated() {
	atomic.AddInt64(&m.DropsSimulated, 1)
	inputsTotal.WithLabelValues("dropped").Inc()
}

func (m *RoomMetrics) IncChanFullDiscarded() {
	atomic.AddInt64(&m.ChanFullDiscarded, 1)
	inputsTotal.WithLabelValues("chan_full").Inc()
}

func (m *RoomMetrics) IncRelayed(event string) {
	atomic.AddInt64(&m.MessagesRelayed, 1)
	relayedTotal.WithLabelValues(event).Inc()
}

func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
	tickDuration.Observe(float64(ns) / 1e9)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"joins":               atomic.LoadInt64(&m.Joins),
		"leaves":              atomic.LoadInt64(&m.Leaves),
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"rate_limited":        atomic.LoadInt64(&m.RateLimited),
		"throttled":           atomic.LoadInt64(&m.Throttled),
		"invalid":             atomic.LoadInt64(&m.Invalid),
		"drops_simulated":     atomic.LoadInt64(&m.DropsSimulated),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"messages_relayed":    atomic.LoadInt64(&m.MessagesRelayed),
		"avg_tick_ms":         avgMs,
	}
}
