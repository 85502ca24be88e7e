// Package types 定义 go-dds 公共类型
//
// 本文件定义发现事件类型。
package types

import "time"

// ============================================================================
//                              Event - 事件接口
// ============================================================================

// Event 基础事件接口
type Event interface {
	// Type 返回事件类型
	Type() string

	// Timestamp 返回事件时间戳
	Timestamp() time.Time
}

// BaseEvent 基础事件实现
type BaseEvent struct {
	EventType string
	Time      time.Time
}

// Type 返回事件类型
func (e BaseEvent) Type() string {
	return e.EventType
}

// Timestamp 返回事件时间戳
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// 事件类型常量
const (
	EventParticipantDiscovered = "participant.discovered"
	EventParticipantRemoved    = "participant.removed"
	EventEndpointDiscovered    = "endpoint.discovered"
	EventEndpointRemoved       = "endpoint.removed"
	EventEndpointMatched       = "endpoint.matched"
)

// ============================================================================
//                              参与者事件
// ============================================================================

// EvtParticipantDiscovered 新参与者被发现或其状态被更新
type EvtParticipantDiscovered struct {
	BaseEvent
	Proxy   *ParticipantProxy
	Updated bool
}

// EvtParticipantRemoved 参与者被移除
type EvtParticipantRemoved struct {
	BaseEvent
	GUID   GUID
	Reason RemovalReason
}

// ============================================================================
//                              端点事件
// ============================================================================

// EvtEndpointDiscovered 新端点被发现或其状态被更新
type EvtEndpointDiscovered struct {
	BaseEvent
	Proxy   *EndpointProxy
	Updated bool
}

// EvtEndpointRemoved 端点被移除
type EvtEndpointRemoved struct {
	BaseEvent
	GUID GUID
}

// EvtEndpointMatched 本地端点与远端端点匹配状态变化
type EvtEndpointMatched struct {
	BaseEvent
	Local   GUID
	Remote  GUID
	Matched bool
}
