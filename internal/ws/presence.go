package ws

import (
	"sort"
	"sync"
)

// Registry 维护 userID 到存活连接 ID 集合的映射，是“谁在线”的唯一事实来源。
// 同一用户多开标签页/多设备时集合里会有多个连接 ID。
type Registry struct {
	mu    sync.RWMutex
	conns map[uint]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[uint]map[string]struct{})}
}

// Add 登记一个连接，返回该用户是否由离线转为在线（0→1）。
func (r *Registry) Add(userID uint, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		r.conns[userID] = set
	}
	first := len(set) == 0
	set[connID] = struct{}{}
	return first
}

// Remove 注销一个连接，返回该用户是否由在线转为离线（1→0）。集合清空后整条记录删除。
func (r *Registry) Remove(userID uint, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
		return true
	}
	return false
}

func (r *Registry) IsOnline(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// Snapshot 返回当前所有在线用户，升序排列保证输出稳定。
func (r *Registry) Snapshot() []uint {
	r.mu.RLock()
	out := make([]uint, 0, len(r.conns))
	for uid := range r.conns {
		out = append(out, uid)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Count 返回在线用户数，供指标上报。
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
