package dds

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/dep2p/go-dds/internal/discovery/database"
	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              端点选项
// ════════════════════════════════════════════════════════════════════════════

// EndpointOption 端点配置选项
type EndpointOption func(*types.EndpointProxy)

// WithReliability 设置可靠性
func WithReliability(r types.Reliability) EndpointOption {
	return func(e *types.EndpointProxy) {
		e.QoS.Reliability = r
	}
}

// WithDurability 设置持久性
func WithDurability(d types.Durability) EndpointOption {
	return func(e *types.EndpointProxy) {
		e.QoS.Durability = d
	}
}

// WithPartitions 设置分区
func WithPartitions(partitions ...string) EndpointOption {
	return func(e *types.EndpointProxy) {
		e.QoS.Partitions = append([]string(nil), partitions...)
	}
}

// WithUserData 设置用户数据
func WithUserData(data []byte) EndpointOption {
	return func(e *types.EndpointProxy) {
		e.QoS.UserData = append([]byte(nil), data...)
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              本地实体
// ════════════════════════════════════════════════════════════════════════════

// CreateWriter 创建本地写者并宣告
//
// 发现历史已满且没有可回收条目时返回 types.ErrRetryLater。
func (p *Participant) CreateWriter(topic, typeName string, opts ...EndpointOption) (types.GUID, error) {
	return p.createEndpoint(types.EndpointWriter, topic, typeName, opts)
}

// CreateReader 创建本地读者并宣告
func (p *Participant) CreateReader(topic, typeName string, opts ...EndpointOption) (types.GUID, error) {
	return p.createEndpoint(types.EndpointReader, topic, typeName, opts)
}

func (p *Participant) createEndpoint(kind types.EndpointKind, topic, typeName string, opts []EndpointOption) (types.GUID, error) {
	if err := p.running(); err != nil {
		return types.EmptyGUID, err
	}
	if topic == "" {
		return types.EmptyGUID, ErrNoTopic
	}

	e := &types.EndpointProxy{
		GUID: types.GUID{
			Prefix: p.prefix,
			Entity: types.NewEntityID(p.nextKey.Add(1), kind.EntityKind()),
		},
		Kind:     kind,
		Topic:    topic,
		TypeName: typeName,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := p.server.OnLocalEntityCreated(e); err != nil {
		return types.EmptyGUID, fmt.Errorf("create %s: %w", kind, err)
	}
	logger.Debug("本地端点已创建", "guid", e.GUID.ShortString(), "kind", kind, "topic", topic)
	return e.GUID, nil
}

// DeleteEndpoint 销毁本地端点
func (p *Participant) DeleteEndpoint(guid types.GUID) error {
	if err := p.running(); err != nil {
		return err
	}
	if !guid.IsEndpoint() {
		return fmt.Errorf("%w: %s is not an endpoint", types.ErrInvalidProxy, guid)
	}
	return p.server.OnLocalEntityDisposed(guid)
}

func (p *Participant) running() error {
	switch p.State() {
	case StateIdle:
		return ErrNotStarted
	case StateClosed:
		return ErrClosed
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              查询
// ════════════════════════════════════════════════════════════════════════════

// Discovery 返回发现核心接口
func (p *Participant) Discovery() pkgif.Discovery {
	return p.server
}

// Lookup 查询 GUID 对应的代理，未发现返回 types.ErrNotFound
func (p *Participant) Lookup(guid types.GUID) (types.Proxy, error) {
	return p.db.Lookup(guid)
}

// IsFullyAcked 该实体的最新变更是否已被所有相关对端确认
func (p *Participant) IsFullyAcked(guid types.GUID) bool {
	return p.db.IsFullyAcked(guid)
}

// Matched 返回与本地端点匹配的远端端点
func (p *Participant) Matched(guid types.GUID) ([]types.GUID, error) {
	proxy, err := p.db.Lookup(guid)
	if err != nil {
		return nil, err
	}
	e, ok := proxy.(*types.EndpointProxy)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an endpoint", types.ErrInvalidProxy, guid)
	}
	out := make([]types.GUID, 0, len(e.Matched))
	for g := range e.Matched {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b types.GUID) int {
		return bytes.Compare(a.Bytes(), b.Bytes())
	})
	return out, nil
}

// Participants 返回已知参与者（含本地）
func (p *Participant) Participants() []*types.ParticipantProxy {
	return p.db.Participants()
}

// Endpoints 返回已知端点
func (p *Participant) Endpoints() []*types.EndpointProxy {
	return p.db.Endpoints()
}

// Snapshot 返回发现数据库一致性快照
func (p *Participant) Snapshot() database.Snapshot {
	return p.db.Snapshot()
}

// Flush 立即把变更队列写入发现历史，返回写入的条目数
func (p *Participant) Flush() int {
	return p.server.Flush()
}

// Subscribe 订阅发现事件
//
// eventType 为事件指针，例如 new(types.EvtEndpointMatched)。
func (p *Participant) Subscribe(eventType interface{}, opts ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	return p.bus.Subscribe(eventType, opts...)
}
