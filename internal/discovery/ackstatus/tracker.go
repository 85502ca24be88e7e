// Package ackstatus 实现发现变更的确认状态跟踪
//
// 对每个被跟踪实体的最新变更，Tracker 记录广播时刻的“相关”对端集合
// 与已确认子集。实体完全确认当且仅当 relevant ⊆ acked。
//
// 晚加入的对端不会让已完全确认的实体回退：它们被记入单独的补发集合，
// 只影响历史回收与重传，不影响 FullyAcked。
//
// Tracker 不做并发保护，由发现数据库在其互斥域内独占持有。
package ackstatus

import (
	"sort"

	"github.com/dep2p/go-dds/pkg/types"
)

// Status 单个实体的确认状态
type Status struct {
	Subject  types.GUID
	Sequence uint64
	Disposed bool

	relevant map[types.GUIDPrefix]struct{}
	acked    map[types.GUIDPrefix]struct{}

	// late 已完全确认后加入、尚未确认补发的对端
	late map[types.GUIDPrefix]struct{}
}

// FullyAcked relevant ⊆ acked
func (s *Status) FullyAcked() bool {
	for p := range s.relevant {
		if _, ok := s.acked[p]; !ok {
			return false
		}
	}
	return true
}

// Settled 完全确认且没有待确认的补发
func (s *Status) Settled() bool {
	return len(s.late) == 0 && s.FullyAcked()
}

// Pending 返回尚未确认的相关对端与补发对端（按字节序）
func (s *Status) Pending() []types.GUIDPrefix {
	out := make([]types.GUIDPrefix, 0, len(s.relevant)+len(s.late))
	for p := range s.relevant {
		if _, ok := s.acked[p]; !ok {
			out = append(out, p)
		}
	}
	for p := range s.late {
		out = append(out, p)
	}
	sortPrefixes(out)
	return out
}

// Relevant 返回相关对端数量
func (s *Status) Relevant() int {
	return len(s.relevant)
}

// IsRelevant 对端是否相关
func (s *Status) IsRelevant(p types.GUIDPrefix) bool {
	_, ok := s.relevant[p]
	return ok
}

// Tracker 确认状态跟踪器
type Tracker struct {
	entries map[types.GUID]*Status
}

// New 创建跟踪器
func New() *Tracker {
	return &Tracker{entries: make(map[types.GUID]*Status)}
}

// Track 进入 pending-acks 状态
//
// 相关集合被重置为 relevant（广播时已知的对端），已确认集合清空。
// 相关集合为空时实体立即视为完全确认。
func (t *Tracker) Track(subject types.GUID, seq uint64, disposed bool, relevant []types.GUIDPrefix) {
	st := &Status{
		Subject:  subject,
		Sequence: seq,
		Disposed: disposed,
		relevant: make(map[types.GUIDPrefix]struct{}, len(relevant)),
		acked:    make(map[types.GUIDPrefix]struct{}, len(relevant)),
		late:     make(map[types.GUIDPrefix]struct{}),
	}
	for _, p := range relevant {
		if p == subject.Prefix {
			continue
		}
		st.relevant[p] = struct{}{}
	}
	t.entries[subject] = st
}

// Ack 记录 peer 对 subject 第 seq 号变更的确认
//
// 只有 peer 在相关集合中、且 seq 不早于当前跟踪的序列号时才生效；
// 来自未知对端的确认被忽略。返回实体是否因此变为完全确认。
func (t *Tracker) Ack(subject types.GUID, seq uint64, peer types.GUIDPrefix) bool {
	st, ok := t.entries[subject]
	if !ok || seq < st.Sequence {
		return false
	}
	if _, late := st.late[peer]; late {
		delete(st.late, peer)
		return false
	}
	if _, relevant := st.relevant[peer]; !relevant {
		return false
	}
	if _, done := st.acked[peer]; done {
		return false
	}
	st.acked[peer] = struct{}{}
	return st.FullyAcked()
}

// Extend 登记向晚加入对端补发 subject 的最新变更
//
// 仍在等待确认的状态把对端加入相关集合；已完全确认的状态保持完全确认，
// 对端只记入补发集合，直到其确认前状态不可回收。返回对端是否被登记。
func (t *Tracker) Extend(subject types.GUID, peer types.GUIDPrefix) bool {
	st, ok := t.entries[subject]
	if !ok || peer == subject.Prefix {
		return false
	}
	if _, relevant := st.relevant[peer]; relevant {
		return false
	}
	if _, late := st.late[peer]; late {
		return false
	}
	if st.FullyAcked() {
		st.late[peer] = struct{}{}
		return true
	}
	st.relevant[peer] = struct{}{}
	return true
}

// PurgePeer 对端被移除，视为隐式确认其相关的所有变更
//
// 返回因此变为完全确认的实体。
func (t *Tracker) PurgePeer(peer types.GUIDPrefix) []types.GUID {
	var completed []types.GUID
	for g, st := range t.entries {
		delete(st.late, peer)
		if _, relevant := st.relevant[peer]; !relevant {
			continue
		}
		if _, done := st.acked[peer]; done {
			continue
		}
		st.acked[peer] = struct{}{}
		if st.FullyAcked() {
			completed = append(completed, g)
		}
	}
	sortGUIDs(completed)
	return completed
}

// IsFullyAcked 实体最新变更是否已完全确认；未跟踪的实体返回 false
func (t *Tracker) IsFullyAcked(subject types.GUID) bool {
	st, ok := t.entries[subject]
	return ok && st.FullyAcked()
}

// IsSettled 实体最新变更是否已完全确认且补发均已确认；未跟踪的实体返回 false
func (t *Tracker) IsSettled(subject types.GUID) bool {
	st, ok := t.entries[subject]
	return ok && st.Settled()
}

// Get 返回实体状态（只读使用）
func (t *Tracker) Get(subject types.GUID) (*Status, bool) {
	st, ok := t.entries[subject]
	return st, ok
}

// Forget 停止跟踪
func (t *Tracker) Forget(subject types.GUID) {
	delete(t.entries, subject)
}

// Collectable 返回已销毁且完全确认、可回收的实体
func (t *Tracker) Collectable() []types.GUID {
	var out []types.GUID
	for g, st := range t.entries {
		if st.Disposed && st.FullyAcked() {
			out = append(out, g)
		}
	}
	sortGUIDs(out)
	return out
}

// Unacked 返回所有尚未完全确认或仍有补发待确认的状态
func (t *Tracker) Unacked() []*Status {
	var out []*Status
	for _, st := range t.entries {
		if !st.Settled() {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Subject.String() < out[j].Subject.String()
	})
	return out
}

// Len 返回跟踪的实体数
func (t *Tracker) Len() int {
	return len(t.entries)
}

func sortPrefixes(ps []types.GUIDPrefix) {
	sort.Slice(ps, func(i, j int) bool {
		return ps[i].String() < ps[j].String()
	})
}

func sortGUIDs(gs []types.GUID) {
	sort.Slice(gs, func(i, j int) bool {
		return gs[i].String() < gs[j].String()
	})
}
