package server

import (
	"encoding/json"
	"net/http"

	"tankarena/logging"
)

// HandleAdminConfig 提供房间配置的读取与更新（热更新基本规则）
// GET /admin/config?room=room-1  返回当前配置
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段
func (s *Server) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	room, ok := s.lookupRoom(w, r)
	if !ok {
		return
	}

	type cfg struct {
		MaxInputsPerTick *int     `json:"maxInputsPerTick,omitempty"`
		SimulateDropProb *float64 `json:"simulateDropProb,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		maxInputs, drop := room.Config()
		writeJSON(w, http.StatusOK, cfg{MaxInputsPerTick: &maxInputs, SimulateDropProb: &drop})
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.SimulateDropProb != nil && (*body.SimulateDropProb < 0 || *body.SimulateDropProb > 1) {
			http.Error(w, "simulateDropProb must be in [0,1]", http.StatusBadRequest)
			return
		}
		if body.MaxInputsPerTick != nil {
			room.SetMaxInputsPerTick(*body.MaxInputsPerTick)
		}
		if body.SimulateDropProb != nil {
			room.SetSimulateDropProb(*body.SimulateDropProb)
		}
		maxInputs, drop := room.Config()
		logging.Log.Infof("config updated: room=%s maxInputsPerTick=%d drop=%.2f", room.ID, maxInputs, drop)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics 输出指定房间的运行指标
// GET /admin/metrics?room=room-1
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	room, ok := s.lookupRoom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room":    room.ID,
		"tick":    room.TickSeq(),
		"players": room.PlayerCount(),
		"metrics": room.Metrics().Snapshot(),
	})
}

// HandleRooms 列出已创建的房间
// GET /admin/rooms
func (s *Server) HandleRooms(w http.ResponseWriter, r *http.Request) {
	type roomInfo struct {
		ID      string `json:"id"`
		Players int    `json:"players"`
		Tick    int64  `json:"tick"`
	}
	out := []roomInfo{}
	for _, id := range s.rooms.IDs() {
		if room, ok := s.rooms.Room(id); ok {
			out = append(out, roomInfo{ID: id, Players: room.PlayerCount(), Tick: room.TickSeq()})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// lookupRoom 管理接口只查已有房间，不存在时 404
func (s *Server) lookupRoom(w http.ResponseWriter, r *http.Request) (*Room, bool) {
	id := r.URL.Query().Get("room")
	room, ok := s.rooms.Room(id)
	if !ok {
		http.Error(w, "room not found: "+id, http.StatusNotFound)
		return nil, false
	}
	return room, true
}
