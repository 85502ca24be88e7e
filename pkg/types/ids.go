package types

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ============================================================================
//                              GUIDPrefix - 参与者前缀
// ============================================================================

// GUIDPrefix 参与者 GUID 前缀
//
// 同一参与者下的所有实体（参与者自身、读者、写者）共享同一前缀。
type GUIDPrefix [12]byte

// EmptyPrefix 空前缀
var EmptyPrefix GUIDPrefix

// ErrInvalidGUID 无效的 GUID 错误
var ErrInvalidGUID = errors.New("invalid GUID: must be 32 hex characters")

// NewGUIDPrefix 生成随机前缀
//
// 取 UUIDv4 的前 12 字节，冲突概率可忽略。
func NewGUIDPrefix() GUIDPrefix {
	id := uuid.New()
	var p GUIDPrefix
	copy(p[:], id[:12])
	return p
}

// String 返回十六进制表示
func (p GUIDPrefix) String() string {
	return hex.EncodeToString(p[:])
}

// ShortString 返回前 8 个十六进制字符，用于日志
func (p GUIDPrefix) ShortString() string {
	return p.String()[:8]
}

// IsEmpty 检查前缀是否为空
func (p GUIDPrefix) IsEmpty() bool {
	return p == EmptyPrefix
}

// ============================================================================
//                              EntityID - 实体标识
// ============================================================================

// EntityID 实体标识，最后一个字节为实体种类
type EntityID [4]byte

// 实体种类
const (
	EntityKindWriter      byte = 0x02
	EntityKindReader      byte = 0x07
	EntityKindParticipant byte = 0xc1
	EntityKindBuiltinW    byte = 0xc2
	EntityKindBuiltinR    byte = 0xc7
)

// 内置实体
var (
	// EntityIDParticipant 参与者自身
	EntityIDParticipant = EntityID{0x00, 0x00, 0x01, EntityKindParticipant}

	// EntityIDPDPWriter 参与者发现写者
	EntityIDPDPWriter = EntityID{0x00, 0x01, 0x00, EntityKindBuiltinW}
	// EntityIDPDPReader 参与者发现读者
	EntityIDPDPReader = EntityID{0x00, 0x01, 0x00, EntityKindBuiltinR}

	// EntityIDEDPWriter 端点发现写者
	EntityIDEDPWriter = EntityID{0x00, 0x00, 0x03, EntityKindBuiltinW}
	// EntityIDEDPReader 端点发现读者
	EntityIDEDPReader = EntityID{0x00, 0x00, 0x03, EntityKindBuiltinR}
)

// NewEntityID 由 24 位计数器和种类构造用户实体 ID
func NewEntityID(key uint32, kind byte) EntityID {
	return EntityID{byte(key >> 16), byte(key >> 8), byte(key), kind}
}

// Kind 返回实体种类
func (e EntityID) Kind() byte {
	return e[3]
}

// String 返回十六进制表示
func (e EntityID) String() string {
	return hex.EncodeToString(e[:])
}

// ============================================================================
//                              GUID - 全局唯一标识
// ============================================================================

// GUID 参与者或端点的全局唯一标识
type GUID struct {
	Prefix GUIDPrefix
	Entity EntityID
}

// EmptyGUID 空 GUID
var EmptyGUID GUID

// ParticipantGUID 返回前缀对应的参与者 GUID
func ParticipantGUID(prefix GUIDPrefix) GUID {
	return GUID{Prefix: prefix, Entity: EntityIDParticipant}
}

// IsParticipant 是否为参与者 GUID
func (g GUID) IsParticipant() bool {
	return g.Entity == EntityIDParticipant
}

// IsEndpoint 是否为用户读者或写者 GUID
func (g GUID) IsEndpoint() bool {
	k := g.Entity.Kind()
	return k == EntityKindWriter || k == EntityKindReader
}

// IsEmpty 检查是否为空
func (g GUID) IsEmpty() bool {
	return g == EmptyGUID
}

// String 返回 "prefix|entity" 形式
func (g GUID) String() string {
	return g.Prefix.String() + "|" + g.Entity.String()
}

// ShortString 返回日志用简短形式
func (g GUID) ShortString() string {
	return g.Prefix.ShortString() + "|" + g.Entity.String()
}

// Bytes 返回 16 字节表示
func (g GUID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, g.Prefix[:])
	copy(b[12:], g.Entity[:])
	return b
}

// GUIDFromBytes 从 16 字节构造 GUID
func GUIDFromBytes(b []byte) (GUID, error) {
	if len(b) != 16 {
		return EmptyGUID, ErrInvalidGUID
	}
	var g GUID
	copy(g.Prefix[:], b[:12])
	copy(g.Entity[:], b[12:])
	return g, nil
}

// ParseGUID 解析 String() 输出或 32 位十六进制串
func ParseGUID(s string) (GUID, error) {
	b, err := hex.DecodeString(strings.ReplaceAll(s, "|", ""))
	if err != nil {
		return EmptyGUID, ErrInvalidGUID
	}
	return GUIDFromBytes(b)
}
