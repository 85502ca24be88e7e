package history

import (
	"bytes"
	"sync"

	"github.com/dep2p/go-dds/pkg/types"
)

// WriterHistory 有界写者历史
type WriterHistory struct {
	mu sync.RWMutex

	writer   types.GUID
	capacity int
	lastSeq  uint64

	// changes 按序列号升序
	changes   []*types.CacheChange
	bySeq     map[uint64]*types.CacheChange
	bySubject map[types.GUID]*types.CacheChange
}

// New 创建写者历史
func New(writer types.GUID, capacity int) (*WriterHistory, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &WriterHistory{
		writer:    writer,
		capacity:  capacity,
		bySeq:     make(map[uint64]*types.CacheChange, capacity),
		bySubject: make(map[types.GUID]*types.CacheChange, capacity),
	}, nil
}

// Writer 返回所属写者 GUID
func (h *WriterHistory) Writer() types.GUID {
	return h.writer
}

// Add 插入一条发现变更，payload 为其线上编码
//
// 若同一主体已有变更，旧变更被移除并作为 superseded 返回，
// 被替换的槽位可直接复用。历史已满时返回 ErrHistoryFull，不消耗序列号。
func (h *WriterHistory) Add(dc *types.DiscoveryChange, payload []byte) (added, superseded *types.CacheChange, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subject := dc.Subject
	old := h.bySubject[subject]
	if old == nil && len(h.changes) >= h.capacity {
		return nil, nil, ErrHistoryFull
	}
	if old != nil {
		h.removeLocked(old)
	}

	h.lastSeq++
	cc := &types.CacheChange{
		Writer:          h.writer,
		Sequence:        h.lastSeq,
		Kind:            dc.Kind,
		Subject:         subject,
		SubjectSequence: dc.Sequence,
		Payload:         bytes.Clone(payload),
	}
	h.changes = append(h.changes, cc)
	h.bySeq[cc.Sequence] = cc
	h.bySubject[subject] = cc
	return cc, old, nil
}

// EvictOldest 移除最旧的一条可回收变更
//
// 没有满足 evictable 的变更时返回 nil。
func (h *WriterHistory) EvictOldest(evictable func(*types.CacheChange) bool) *types.CacheChange {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, cc := range h.changes {
		if evictable(cc) {
			h.removeLocked(cc)
			return cc
		}
	}
	return nil
}

// RemoveSubject 移除主体对应的变更
func (h *WriterHistory) RemoveSubject(subject types.GUID) *types.CacheChange {
	h.mu.Lock()
	defer h.mu.Unlock()

	cc := h.bySubject[subject]
	if cc != nil {
		h.removeLocked(cc)
	}
	return cc
}

// Get 按写者序列号查找
func (h *WriterHistory) Get(seq uint64) (*types.CacheChange, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cc, ok := h.bySeq[seq]
	return cc, ok
}

// Lookup 按主体查找
func (h *WriterHistory) Lookup(subject types.GUID) (*types.CacheChange, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cc, ok := h.bySubject[subject]
	return cc, ok
}

// Changes 按序列号升序返回快照
func (h *WriterHistory) Changes() []*types.CacheChange {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*types.CacheChange, len(h.changes))
	copy(out, h.changes)
	return out
}

// Len 当前条目数
func (h *WriterHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.changes)
}

// Capacity 容量
func (h *WriterHistory) Capacity() int {
	return h.capacity
}

// Free 剩余槽位
func (h *WriterHistory) Free() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.capacity - len(h.changes)
}

// LastSequence 最近分配的序列号
func (h *WriterHistory) LastSequence() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastSeq
}

func (h *WriterHistory) removeLocked(cc *types.CacheChange) {
	for i, c := range h.changes {
		if c == cc {
			copy(h.changes[i:], h.changes[i+1:])
			h.changes[len(h.changes)-1] = nil
			h.changes = h.changes[:len(h.changes)-1]
			break
		}
	}
	delete(h.bySeq, cc.Sequence)
	if h.bySubject[cc.Subject] == cc {
		delete(h.bySubject, cc.Subject)
	}
}
