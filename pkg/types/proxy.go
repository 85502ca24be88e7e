package types

import (
	"bytes"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
//                              Locator / QoS
// ============================================================================

// Locator 传输定位器（对发现逻辑不透明）
type Locator struct {
	Kind    LocatorKind
	Address string
	Port    uint32
}

// String 返回 "scheme://address:port"
func (l Locator) String() string {
	return l.Kind.Scheme() + "://" + net.JoinHostPort(l.Address, strconv.FormatUint(uint64(l.Port), 10))
}

// ParseLocator 解析 "scheme://address:port" 形式的定位器
func ParseLocator(s string) (Locator, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return Locator{}, fmt.Errorf("%w: locator %q has no scheme", ErrInvalidProxy, s)
	}
	kind := LocatorKindFromScheme(scheme)
	if kind == LocatorInvalid {
		return Locator{}, fmt.Errorf("%w: unknown locator scheme %q", ErrInvalidProxy, scheme)
	}
	host, port, err := net.SplitHostPort(rest)
	if err != nil {
		return Locator{}, fmt.Errorf("%w: locator %q: %v", ErrInvalidProxy, s, err)
	}
	p, err := strconv.ParseUint(port, 10, 32)
	if err != nil {
		return Locator{}, fmt.Errorf("%w: locator port %q", ErrInvalidProxy, port)
	}
	return Locator{Kind: kind, Address: host, Port: uint32(p)}, nil
}

// QoS 发现层关心的 QoS 快照
type QoS struct {
	Reliability Reliability
	Durability  Durability
	Partitions  []string
	UserData    []byte
}

// Equal 比较两个 QoS
func (q QoS) Equal(o QoS) bool {
	return q.Reliability == o.Reliability &&
		q.Durability == o.Durability &&
		slices.Equal(q.Partitions, o.Partitions) &&
		bytes.Equal(q.UserData, o.UserData)
}

// Clone 深拷贝
func (q QoS) Clone() QoS {
	q.Partitions = slices.Clone(q.Partitions)
	q.UserData = bytes.Clone(q.UserData)
	return q
}

// ============================================================================
//                              Proxy 接口
// ============================================================================

// Proxy 远端（或本地）实体的最新已知发现状态
type Proxy interface {
	// ProxyGUID 返回实体 GUID
	ProxyGUID() GUID
}

// ============================================================================
//                              ParticipantProxy
// ============================================================================

// ParticipantProxy 参与者代理
type ParticipantProxy struct {
	GUID          GUID
	Name          string
	QoS           QoS
	LeaseDuration time.Duration
	Locators      []Locator
	IsServer      bool

	// 以下字段由 DDB 本地维护，不参与序列化

	// Deadline 下一次存活截止时间
	Deadline time.Time
	// Endpoints 该参与者拥有的端点
	Endpoints map[GUID]struct{}
}

// ProxyGUID 实现 Proxy
func (p *ParticipantProxy) ProxyGUID() GUID {
	return p.GUID
}

// Prefix 返回参与者前缀
func (p *ParticipantProxy) Prefix() GUIDPrefix {
	return p.GUID.Prefix
}

// Validate 校验字段
func (p *ParticipantProxy) Validate() error {
	if !p.GUID.IsParticipant() || p.GUID.Prefix.IsEmpty() {
		return fmt.Errorf("%w: participant guid %s", ErrInvalidProxy, p.GUID)
	}
	if p.LeaseDuration <= 0 {
		return fmt.Errorf("%w: lease duration must be positive", ErrInvalidProxy)
	}
	return nil
}

// SameAnnouncement 比较线上可见字段是否一致
func (p *ParticipantProxy) SameAnnouncement(o *ParticipantProxy) bool {
	return p.GUID == o.GUID &&
		p.Name == o.Name &&
		p.LeaseDuration == o.LeaseDuration &&
		p.IsServer == o.IsServer &&
		p.QoS.Equal(o.QoS) &&
		slices.Equal(p.Locators, o.Locators)
}

// Clone 深拷贝
func (p *ParticipantProxy) Clone() *ParticipantProxy {
	c := *p
	c.QoS = p.QoS.Clone()
	c.Locators = slices.Clone(p.Locators)
	c.Endpoints = make(map[GUID]struct{}, len(p.Endpoints))
	for g := range p.Endpoints {
		c.Endpoints[g] = struct{}{}
	}
	return &c
}

// ============================================================================
//                              EndpointProxy
// ============================================================================

// EndpointProxy 读者或写者代理
type EndpointProxy struct {
	GUID     GUID
	Kind     EndpointKind
	Topic    string
	TypeName string
	QoS      QoS

	// Matched 与之匹配的对端端点（DDB 本地维护）
	Matched map[GUID]struct{}
}

// ProxyGUID 实现 Proxy
func (e *EndpointProxy) ProxyGUID() GUID {
	return e.GUID
}

// Participant 返回所属参与者前缀
func (e *EndpointProxy) Participant() GUIDPrefix {
	return e.GUID.Prefix
}

// Validate 校验字段
func (e *EndpointProxy) Validate() error {
	if !e.GUID.IsEndpoint() || e.GUID.Prefix.IsEmpty() {
		return fmt.Errorf("%w: endpoint guid %s", ErrInvalidProxy, e.GUID)
	}
	if e.Kind.EntityKind() != e.GUID.Entity.Kind() {
		return fmt.Errorf("%w: kind %s does not match entity %s", ErrInvalidProxy, e.Kind, e.GUID.Entity)
	}
	if e.Topic == "" || e.TypeName == "" {
		return fmt.Errorf("%w: topic and type name are required", ErrInvalidProxy)
	}
	return nil
}

// SameAnnouncement 比较线上可见字段是否一致
func (e *EndpointProxy) SameAnnouncement(o *EndpointProxy) bool {
	return e.GUID == o.GUID &&
		e.Kind == o.Kind &&
		e.Topic == o.Topic &&
		e.TypeName == o.TypeName &&
		e.QoS.Equal(o.QoS)
}

// Matches 判断读写两端是否应交换数据
//
// 种类相反、主题与类型一致、且读者要求的可靠性不高于写者提供的可靠性。
func (e *EndpointProxy) Matches(o *EndpointProxy) bool {
	if e.Kind == o.Kind || e.Topic != o.Topic || e.TypeName != o.TypeName {
		return false
	}
	w, r := e, o
	if e.Kind == EndpointReader {
		w, r = o, e
	}
	return w.QoS.Reliability >= r.QoS.Reliability
}

// Clone 深拷贝
func (e *EndpointProxy) Clone() *EndpointProxy {
	c := *e
	c.QoS = e.QoS.Clone()
	c.Matched = make(map[GUID]struct{}, len(e.Matched))
	for g := range e.Matched {
		c.Matched[g] = struct{}{}
	}
	return &c
}
