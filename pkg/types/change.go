package types

import (
	"bytes"
	"fmt"
)

// ============================================================================
//                              DiscoveryChange
// ============================================================================

// DiscoveryChange 一条发现变更
//
// Sequence 针对 Subject 单调递增；同一 Subject 的 DISPOSED
// 只能在同一会话的 ALIVE 被记录之后产生。
type DiscoveryChange struct {
	Kind     ChangeKind
	Subject  GUID
	Origin   GUIDPrefix
	Sequence uint64
	Topic    string

	// Payload 不透明的 Proxy 负载（由 codec 编码）
	Payload []byte
}

// IsParticipant 是否为参与者级变更
func (c *DiscoveryChange) IsParticipant() bool {
	return c.Subject.IsParticipant()
}

// Same 判断两条变更是否描述同一状态（用于重复宣告检测）
func (c *DiscoveryChange) Same(o *DiscoveryChange) bool {
	return c.Kind == o.Kind &&
		c.Subject == o.Subject &&
		c.Sequence == o.Sequence &&
		bytes.Equal(c.Payload, o.Payload)
}

// Clone 深拷贝
func (c *DiscoveryChange) Clone() *DiscoveryChange {
	cc := *c
	cc.Payload = bytes.Clone(c.Payload)
	return &cc
}

// String 返回日志用描述
func (c *DiscoveryChange) String() string {
	return fmt.Sprintf("%s(%s#%d)", c.Kind, c.Subject.ShortString(), c.Sequence)
}

// ============================================================================
//                              CacheChange
// ============================================================================

// CacheChange 可靠历史中的一条记录
//
// Sequence 由写者历史分配，针对写者单调递增，与 DiscoveryChange.Sequence 无关。
type CacheChange struct {
	Writer   GUID
	Sequence uint64
	Kind     ChangeKind
	Subject  GUID

	// SubjectSequence 对应 DiscoveryChange.Sequence，用于把写者确认映射回主体
	SubjectSequence uint64

	// Payload 序列化后的 DiscoveryChange（头部 + Proxy 负载）
	Payload []byte
}
