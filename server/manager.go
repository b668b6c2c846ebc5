package server

import (
	"sort"
	"sync"

	"tankarena/logging"
)

const DefaultRoomID = "room-1"

// RoomManager 管理多个房间的生命周期
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	opts  RoomOptions
}

func NewRoomManager(opts RoomOptions) *RoomManager {
	return &RoomManager{rooms: make(map[string]*Room), opts: opts}
}

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick
func (m *RoomManager) GetOrCreateRoom(id string) *Room {
	if id == "" {
		id = DefaultRoomID
	}
	m.mu.RLock()
	r, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[id]; ok {
		return r
	}
	r = NewRoom(id, m.opts)
	if id != DefaultRoomID {
		r.onEmpty = m.reap
	}
	m.rooms[id] = r
	r.StartTicker()
	return r
}

// reap 回收已空的房间；回收前又有人排队加入时保留
func (m *RoomManager) reap(r *Room) {
	m.mu.Lock()
	cur, ok := m.rooms[r.ID]
	if !ok || cur != r || r.PlayerCount() > 0 || len(r.joinChan) > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.rooms, r.ID)
	m.mu.Unlock()

	r.Stop()
	logging.Log.Infow("room removed", "room", r.ID)
}

// Room 只查不建；id 为空时指默认房间
func (m *RoomManager) Room(id string) (*Room, bool) {
	if id == "" {
		id = DefaultRoomID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// IDs 房间 id（排序）
func (m *RoomManager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close 停止所有房间
func (m *RoomManager) Close() {
	m.mu.Lock()
	rooms := m.rooms
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()
	for _, r := range rooms {
		r.Stop()
	}
}
