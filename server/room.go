package server

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"tankarena/config"
	"tankarena/geom"
	"tankarena/logging"
	"tankarena/protocol"
)

// RoomOptions 房间参数
type RoomOptions struct {
	Field            protocol.FieldDef // 不含玩家
	TicksPerSecond   int
	MaxInputsPerTick int     // 每玩家每 Tick 最多应用的输入数，<=0 不限
	SimulateDropProb float64 // 模拟丢包概率（调试用）
	Seed             int64   // 0 时取当前时间
}

func OptionsFromConfig(rc config.RoomConfig) RoomOptions {
	return RoomOptions{
		Field:            rc.FieldDef(),
		TicksPerSecond:   rc.TicksPerSecond,
		MaxInputsPerTick: rc.MaxInputsPerTick,
		SimulateDropProb: rc.SimulateDropProb,
	}
}

type joinReq struct {
	id   PlayerID
	conn *ClientConn
}

// leaveReq 带上连接：同一 userID 重连后旧连接的离开请求不能移除新连接
type leaveReq struct {
	id   PlayerID
	conn *ClientConn
}

// outMsg 本 Tick 产生的待发消息；to 为空时广播给除 except 外的所有人
type outMsg struct {
	event  string
	to     PlayerID
	except PlayerID
	b      []byte
}

// Room 房间：玩家状态只由 Tick 协程读写，网络协程通过通道投递
type Room struct {
	ID string

	field   protocol.FieldDef
	players map[PlayerID]*Player

	joinChan  chan joinReq
	inputChan chan Input
	leaveChan chan leaveReq

	cfgMu            sync.RWMutex
	maxInputsPerTick int
	simulateDropProb float64

	tickInterval time.Duration
	tickSeq      atomic.Int64
	playerCount  atomic.Int64
	metrics      *RoomMetrics
	rng          *rand.Rand
	outbox       []outMsg

	// onEmpty 最后一个玩家离开时回调（由 RoomManager 设置）
	onEmpty func(*Room)

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewRoom 创建房间，初始化数据结构
func NewRoom(id string, opts RoomOptions) *Room {
	if opts.TicksPerSecond <= 0 {
		opts.TicksPerSecond = TicksPerSecond
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Room{
		ID:               id,
		field:            opts.Field,
		players:          make(map[PlayerID]*Player),
		joinChan:         make(chan joinReq, 64),
		inputChan:        make(chan Input, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		leaveChan:        make(chan leaveReq, 64),
		maxInputsPerTick: opts.MaxInputsPerTick,
		simulateDropProb: opts.SimulateDropProb,
		tickInterval:     time.Second / time.Duration(opts.TicksPerSecond),
		metrics:          &RoomMetrics{},
		rng:              rand.New(rand.NewSource(seed)),
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// RequestJoin 请求在 Tick 线程中加入玩家
func (r *Room) RequestJoin(id PlayerID, conn *ClientConn) {
	select {
	case <-r.stop:
		conn.Close()
		return
	default:
	}
	select {
	case r.joinChan <- joinReq{id: id, conn: conn}:
	case <-r.stop:
		conn.Close()
		return
	}
	// 入队与房间停止并发时，Tick 协程可能已经不再排空
	select {
	case <-r.stop:
		r.rejectPendingJoins()
	default:
	}
}

// rejectPendingJoins 房间停止后仍在队列里的加入请求直接断开
func (r *Room) rejectPendingJoins() {
	for {
		select {
		case req := <-r.joinChan:
			req.conn.Close()
		default:
			return
		}
	}
}

// RequestLeave 请求在 Tick 线程中移除玩家；移除必须生效，所以阻塞写入
func (r *Room) RequestLeave(id PlayerID, conn *ClientConn) {
	select {
	case r.leaveChan <- leaveReq{id: id, conn: conn}:
	case <-r.stop:
	}
}

// OnInput 入站输入（不立即生效），通道满时丢弃，保证 Tick 准时
func (r *Room) OnInput(in Input) {
	select {
	case r.inputChan <- in:
	default:
		r.metrics.IncChanFullDiscarded()
	}
}

// BeginTick 重置帧内状态
func (r *Room) BeginTick() {
	r.tickSeq.Add(1)
	for _, p := range r.players {
		p.inputsThisTick = 0
	}
}

// ProcessMembership 先排空加入，再排空离开：同一 Tick 内连上又断开的连接不会留下玩家
func (r *Room) ProcessMembership() {
	r.drainJoins()
	r.drainLeaves()
}

func (r *Room) drainJoins() {
	for {
		select {
		case req := <-r.joinChan:
			r.join(req)
		default:
			return
		}
	}
}

func (r *Room) drainLeaves() {
	for {
		select {
		case req := <-r.leaveChan:
			r.leave(req)
		default:
			return
		}
	}
}

// ProcessInputs 处理当前帧的所有输入意图（非阻塞 drain）
func (r *Room) ProcessInputs() {
	r.cfgMu.RLock()
	maxPerTick, dropProb := r.maxInputsPerTick, r.simulateDropProb
	r.cfgMu.RUnlock()

	for {
		select {
		case in := <-r.inputChan:
			p, ok := r.players[in.PlayerID]
			if !ok {
				continue
			}
			if maxPerTick > 0 && p.inputsThisTick >= maxPerTick {
				r.metrics.IncRateLimited()
				continue
			}
			if dropProb > 0 && r.rng.Float64() < dropProb {
				r.metrics.IncDropsSimulated()
				continue
			}
			p.inputsThisTick++
			r.metrics.IncAccepted()
			r.apply(p, in)
		default:
			return
		}
	}
}

// Flush 把本 Tick 产生的消息写入各连接的发送队列
func (r *Room) Flush() {
	for _, m := range r.outbox {
		if m.to != "" {
			if p, ok := r.players[m.to]; ok && p.Conn != nil {
				p.Conn.Enqueue(m.b)
			}
			continue
		}
		for id, p := range r.players {
			if id == m.except || p.Conn == nil {
				continue
			}
			p.Conn.Enqueue(m.b)
			r.metrics.IncRelayed(m.event)
		}
	}
	r.outbox = r.outbox[:0]
}

func (r *Room) join(req joinReq) {
	r.metrics.IncJoin()
	if p, ok := r.players[req.id]; ok {
		// 同一 userID 重连：沿用原状态，踢掉旧连接
		if p.Conn != nil && p.Conn != req.conn {
			p.Conn.Close()
		}
		p.Conn = req.conn
		r.sendTo(p.ID, protocol.EventField, r.fieldFor(p.ID))
		r.sendTo(p.ID, protocol.EventCreatePlayerSuccess, p.Record)
		logging.Log.Infow("player rejoined", "room", r.ID, "userID", p.ID)
		return
	}

	pos, ok := r.spawnCell()
	if !ok {
		logging.Log.Warnw("room full, rejecting player", "room", r.ID, "userID", req.id)
		req.conn.Close()
		return
	}
	p := &Player{
		ID: req.id,
		Record: protocol.PlayerRecord{
			UserID:   string(req.id),
			Position: pos,
			Rotation: geom.V(-math.Pi/2, 0, 0),
			Color:    randomColor(r.rng),
			Stat:     protocol.Stat{HP: defaultHP, MaxHP: defaultHP},
		},
		Conn: req.conn,
	}
	r.players[p.ID] = p
	r.playerCount.Store(int64(len(r.players)))
	connectionsActive.Inc()

	r.sendTo(p.ID, protocol.EventField, r.fieldFor(p.ID))
	r.sendTo(p.ID, protocol.EventCreatePlayerSuccess, p.Record)
	r.broadcast(p.ID, protocol.EventPlayerJoined, p.Record)
	logging.Log.Infow("player joined", "room", r.ID, "userID", p.ID, "position", pos.String(), "players", len(r.players))
}

func (r *Room) leave(req leaveReq) {
	p, ok := r.players[req.id]
	if !ok || p.Conn != req.conn {
		return
	}
	r.metrics.IncLeave()
	if p.Conn != nil {
		p.Conn.Close()
	}
	delete(r.players, req.id)
	r.playerCount.Store(int64(len(r.players)))
	connectionsActive.Dec()
	r.broadcast(req.id, protocol.EventPlayerLeaved, string(req.id))
	logging.Log.Infow("player left", "room", r.ID, "userID", req.id, "players", len(r.players))
	if len(r.players) == 0 && r.onEmpty != nil {
		// 回收要等 Tick 协程退出，不能在这里同步调用
		go r.onEmpty(r)
	}
}

// apply 记录最新状态并转发给其他玩家；服务端只做中继，不做校验
func (r *Room) apply(p *Player, in Input) {
	switch in.Event {
	case protocol.EventChangePosition:
		p.Record.Position = in.Position
		r.broadcast(p.ID, protocol.EventPlayerChangedPos, protocol.PositionChange{UserID: string(p.ID), Position: in.Position})
	case protocol.EventChangeRotation:
		p.Record.Rotation = in.Rotation
		r.broadcast(p.ID, protocol.EventPlayerChangedRot, protocol.RotationChange{UserID: string(p.ID), Rotation: in.Rotation})
	case protocol.EventShoot:
		r.broadcast(p.ID, protocol.EventPlayerShot, protocol.Shot{UserID: string(p.ID), Position: in.Position, Rotation: in.Rotation})
	}
}

// fieldFor 场地定义 + 除自己外的玩家
func (r *Room) fieldFor(self PlayerID) protocol.FieldDef {
	def := r.field
	def.Players = make([]protocol.PlayerRecord, 0, len(r.players))
	for id, p := range r.players {
		if id != self {
			def.Players = append(def.Players, p.Record)
		}
	}
	sort.Slice(def.Players, func(i, j int) bool { return def.Players[i].UserID < def.Players[j].UserID })
	return def
}

// spawnCell 随机挑一个没有墙也没有玩家的格子
func (r *Room) spawnCell() (geom.Vec3, bool) {
	halfW, halfH := int(r.field.Width/2), int(r.field.Height/2)
	var free []geom.Vec3
	for x := -halfW; x <= halfW; x++ {
		for z := -halfH; z <= halfH; z++ {
			c := geom.V(float64(x), 1, float64(z))
			if !r.occupied(c) {
				free = append(free, c)
			}
		}
	}
	if len(free) == 0 {
		return geom.Vec3{}, false
	}
	return free[r.rng.Intn(len(free))], true
}

func (r *Room) occupied(c geom.Vec3) bool {
	for _, w := range r.field.Walls {
		if w.Position.SameCell(c) {
			return true
		}
	}
	for _, p := range r.players {
		if p.Record.Position.SameCell(c) {
			return true
		}
	}
	return false
}

func (r *Room) sendTo(id PlayerID, event string, payload any) {
	r.outbox = append(r.outbox, outMsg{event: event, to: id, b: protocol.MustEncode(event, payload)})
}

func (r *Room) broadcast(except PlayerID, event string, payload any) {
	r.outbox = append(r.outbox, outMsg{event: event, except: except, b: protocol.MustEncode(event, payload)})
}

// Config 读取可热更新的参数
func (r *Room) Config() (maxInputsPerTick int, simulateDropProb float64) {
	r.cfgMu.RLock()
	defer r.cfgMu.RUnlock()
	return r.maxInputsPerTick, r.simulateDropProb
}

func (r *Room) SetMaxInputsPerTick(n int) {
	r.cfgMu.Lock()
	r.maxInputsPerTick = n
	r.cfgMu.Unlock()
}

func (r *Room) SetSimulateDropProb(p float64) {
	r.cfgMu.Lock()
	r.simulateDropProb = p
	r.cfgMu.Unlock()
}

func (r *Room) TickSeq() int64 { return r.tickSeq.Load() }
func (r *Room) PlayerCount() int { return int(r.playerCount.Load()) }
func (r *Room) Metrics() *RoomMetrics { return r.metrics }
