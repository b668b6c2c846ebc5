package game

import "time"

// Stats 帧统计，每秒刷新一次 FPS
type Stats struct {
	Frames    int64
	FPS       float64
	LastFrame time.Time

	windowStart  time.Time
	windowFrames int64
}

func (s *Stats) update(now time.Time) {
	s.Frames++
	s.LastFrame = now
	if s.windowStart.IsZero() {
		s.windowStart = now
	}
	s.windowFrames++
	if elapsed := now.Sub(s.windowStart); elapsed >= time.Second {
		s.FPS = float64(s.windowFrames) / elapsed.Seconds()
		s.windowStart = now
		s.windowFrames = 0
	}
}
