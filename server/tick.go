package server

import "time"

const (
	// TicksPerSecond 默认世界推进频率（20 TPS）
	TicksPerSecond = 20
)

// StartTicker 启动房间的 Tick 循环（单线程推进世界），重复调用无效
func (r *Room) StartTicker() {
	r.startOnce.Do(func() {
		roomsActive.Inc()
		go r.loop()
	})
}

func (r *Room) loop() {
	defer close(r.done)
	defer roomsActive.Dec()
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			r.shutdown()
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}

// Tick 核心循环：重置帧内状态 → 成员变更 → 输入 → 发送
func (r *Room) Tick() {
	start := time.Now()
	r.BeginTick()
	r.ProcessMembership()
	r.ProcessInputs()
	r.Flush()
	r.metrics.AddTick(time.Since(start).Nanoseconds())
}

// Stop 停止 Tick 并断开所有玩家
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.startOnce.Do(func() { close(r.done) })
	<-r.done
}

func (r *Room) shutdown() {
	r.rejectPendingJoins()
	for id, p := range r.players {
		if p.Conn != nil {
			p.Conn.Close()
		}
		delete(r.players, id)
		connectionsActive.Dec()
	}
	r.playerCount.Store(0)
}
