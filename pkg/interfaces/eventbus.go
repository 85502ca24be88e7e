package interfaces

// ============================================================================
//                              发现事件总线
// ============================================================================

// EventBus 发现事件的按类型分发
//
// 事件类型以指针值标识，例如 new(types.EvtEndpointMatched)。
// 发现事件发布器持有五类事件的 Emitter，应用通过 Participant.Subscribe 订阅。
type EventBus interface {
	// Subscribe 订阅 eventType 的事件
	Subscribe(eventType interface{}, opts ...SubscriptionOpt) (Subscription, error)

	// Emitter 返回 eventType 的发射器，同一类型可有多个发射器
	Emitter(eventType interface{}, opts ...EmitterOpt) (Emitter, error)
}

// Subscription 一个订阅者
type Subscription interface {
	// Out 事件通道，订阅关闭后通道关闭
	Out() <-chan interface{}

	Close() error
}

// Emitter 单一事件类型的发射端
type Emitter interface {
	// Emit 非阻塞地投递给当前全部订阅者；发射器关闭后返回错误
	Emit(event interface{}) error

	Close() error
}

// ============================================================================
//                              选项
// ============================================================================

// SubscriptionOpt 订阅选项
type SubscriptionOpt func(*SubscriptionSettings)

// EmitterOpt 发射器选项
type EmitterOpt func(*EmitterSettings)

// SubscriptionSettings 由总线实现读取
type SubscriptionSettings struct {
	// Buffer 通道容量，满时新事件被丢弃并计数
	Buffer int
}

// EmitterSettings 由总线实现读取
type EmitterSettings struct {
	// Stateful 新订阅者立即收到该类型最近一次事件
	Stateful bool
}

// BufSize 订阅通道容量，例如匹配事件较多时加大
func BufSize(size int) SubscriptionOpt {
	return func(s *SubscriptionSettings) {
		s.Buffer = size
	}
}

// Stateful 让晚订阅者补收最近一次事件
func Stateful() EmitterOpt {
	return func(s *EmitterSettings) {
		s.Stateful = true
	}
}
