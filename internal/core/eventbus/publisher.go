package eventbus

import (
	"time"

	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-dds/pkg/interfaces"
	"github.com/dep2p/go-dds/pkg/types"
)

// Publisher 发现事件发布器
//
// nil Publisher 的所有方法都是空操作。
type Publisher struct {
	now func() time.Time

	participantDiscovered pkgif.Emitter
	participantRemoved    pkgif.Emitter
	endpointDiscovered    pkgif.Emitter
	endpointRemoved       pkgif.Emitter
	endpointMatched       pkgif.Emitter
}

// NewPublisher 在 bus 上创建五类发现事件的发射器
//
// now 为 nil 时使用 time.Now。
func NewPublisher(bus pkgif.EventBus, now func() time.Time) (*Publisher, error) {
	if now == nil {
		now = time.Now
	}
	p := &Publisher{now: now}

	targets := []struct {
		dst *pkgif.Emitter
		typ interface{}
	}{
		{&p.participantDiscovered, new(types.EvtParticipantDiscovered)},
		{&p.participantRemoved, new(types.EvtParticipantRemoved)},
		{&p.endpointDiscovered, new(types.EvtEndpointDiscovered)},
		{&p.endpointRemoved, new(types.EvtEndpointRemoved)},
		{&p.endpointMatched, new(types.EvtEndpointMatched)},
	}
	for _, t := range targets {
		em, err := bus.Emitter(t.typ)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		*t.dst = em
	}
	return p, nil
}

func (p *Publisher) base(typ string) types.BaseEvent {
	return types.BaseEvent{EventType: typ, Time: p.now()}
}

// ParticipantDiscovered 发布参与者发现/更新事件
func (p *Publisher) ParticipantDiscovered(proxy *types.ParticipantProxy, updated bool) {
	if p == nil {
		return
	}
	_ = p.participantDiscovered.Emit(types.EvtParticipantDiscovered{
		BaseEvent: p.base(types.EventParticipantDiscovered),
		Proxy:     proxy,
		Updated:   updated,
	})
}

// ParticipantRemoved 发布参与者移除事件
func (p *Publisher) ParticipantRemoved(guid types.GUID, reason types.RemovalReason) {
	if p == nil {
		return
	}
	_ = p.participantRemoved.Emit(types.EvtParticipantRemoved{
		BaseEvent: p.base(types.EventParticipantRemoved),
		GUID:      guid,
		Reason:    reason,
	})
}

// EndpointDiscovered 发布端点发现/更新事件
func (p *Publisher) EndpointDiscovered(proxy *types.EndpointProxy, updated bool) {
	if p == nil {
		return
	}
	_ = p.endpointDiscovered.Emit(types.EvtEndpointDiscovered{
		BaseEvent: p.base(types.EventEndpointDiscovered),
		Proxy:     proxy,
		Updated:   updated,
	})
}

// EndpointRemoved 发布端点移除事件
func (p *Publisher) EndpointRemoved(guid types.GUID) {
	if p == nil {
		return
	}
	_ = p.endpointRemoved.Emit(types.EvtEndpointRemoved{
		BaseEvent: p.base(types.EventEndpointRemoved),
		GUID:      guid,
	})
}

// EndpointMatched 发布匹配状态变化事件
func (p *Publisher) EndpointMatched(local, remote types.GUID, matched bool) {
	if p == nil {
		return
	}
	_ = p.endpointMatched.Emit(types.EvtEndpointMatched{
		BaseEvent: p.base(types.EventEndpointMatched),
		Local:     local,
		Remote:    remote,
		Matched:   matched,
	})
}

// Close 关闭所有发射器
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var err error
	for _, em := range []pkgif.Emitter{
		p.participantDiscovered,
		p.participantRemoved,
		p.endpointDiscovered,
		p.endpointRemoved,
		p.endpointMatched,
	} {
		if em != nil {
			err = multierr.Append(err, em.Close())
		}
	}
	return err
}
