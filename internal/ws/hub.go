package ws

import (
	"sync"

	"github.com/0-FoxHunt-0/Chatty/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Hub 管理全部存活连接的生命周期：注册时推送在线快照并在用户首个连接时广播
// user-online，注销时在最后一个连接断开后广播 user-offline。
// 所有状态变更都在 mu 内完成，并发的连接/断开不会观察到半更新状态。
type Hub struct {
	registry *Registry

	mu      sync.Mutex
	clients map[string]*Client
	byUser  map[uint]map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		registry: NewRegistry(),
		clients:  make(map[string]*Client),
		byUser:   make(map[uint]map[string]*Client),
	}
}

// Register 完成 Authenticated → Registered 的迁移：先把在线快照单独推给新连接，
// 再视情况广播上线事件。快照必须先于后续任何事件入队，保证每个标签页视图一致。
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.id] = c
	if h.byUser[c.userID] == nil {
		h.byUser[c.userID] = make(map[string]*Client)
	}
	h.byUser[c.userID][c.id] = c
	first := h.registry.Add(c.userID, c.id)

	h.deliverLocked(c, onlineUsersEvent(h.registry.Snapshot()))
	if first {
		h.broadcastLocked(presenceEvent(EvtUserOnline, c.userID))
	}

	metrics.WsConnections.Inc()
	metrics.OnlineUsers.Set(float64(h.registry.Count()))
	log.Debug().Uint("user_id", c.userID).Str("name", c.name).Str("conn_id", c.id).Bool("first", first).Msg("ws register")
}

// Unregister 处理 Registered → Closed。幂等：连接可能已因写阻塞被提前剔除。
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	h.removeLocked(c)
}

// PushToUser 把事件扇出到某用户的全部存活连接，返回是否存在至少一个投递目标；
// 用户离线时静默丢弃并返回 false。
func (h *Hub) PushToUser(userID uint, event []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	targets := h.byUser[userID]
	for _, c := range targets {
		h.deliverLocked(c, event)
	}
	return len(targets) > 0
}

// PushTo 只投递给指定连接，发送失败的错误回执走这里。
func (h *Hub) PushTo(c *Client, event []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		h.deliverLocked(c, event)
	}
}

// Online 暴露给 REST 层，用于联系人列表的在线标记。
func (h *Hub) Online(userID uint) bool { return h.registry.IsOnline(userID) }

// OnlineUsers 返回当前在线用户快照。
func (h *Hub) OnlineUsers() []uint { return h.registry.Snapshot() }

// deliverLocked 尝试向单个连接入队；send 缓冲打满说明客户端写不动了，直接剔除。
func (h *Hub) deliverLocked(c *Client, event []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- event:
	default:
		log.Warn().Uint("user_id", c.userID).Str("conn_id", c.id).Msg("ws send buffer full, dropping client")
		h.removeLocked(c)
	}
}

func (h *Hub) broadcastLocked(event []byte) {
	for _, c := range h.clients {
		h.deliverLocked(c, event)
	}
}

// removeLocked 把连接从全部索引中摘除并关闭其发送通道；
// 若这是该用户最后一个连接，向余下所有连接广播下线事件。
func (h *Hub) removeLocked(c *Client) {
	if c.closed {
		return
	}
	c.closed = true
	delete(h.clients, c.id)
	if set, ok := h.byUser[c.userID]; ok {
		delete(set, c.id)
		if len(set) == 0 {
			delete(h.byUser, c.userID)
		}
	}
	close(c.send)

	last := h.registry.Remove(c.userID, c.id)
	metrics.WsConnections.Dec()
	metrics.OnlineUsers.Set(float64(h.registry.Count()))
	log.Debug().Uint("user_id", c.userID).Str("conn_id", c.id).Bool("last", last).Msg("ws unregister")

	if last {
		h.broadcastLocked(presenceEvent(EvtUserOffline, c.userID))
	}
}
