package timedevent

import "time"

// Backoff 指数退避
//
// 用于未确认变更的重传节奏：每次失败翻倍，直到 Max；成功后 Reset。
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	attempts int
}

// NewBackoff 创建退避器
func NewBackoff(base, max time.Duration) *Backoff {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if max < base {
		max = base
	}
	return &Backoff{Base: base, Max: max}
}

// Next 返回下一次等待时间并增加尝试次数
func (b *Backoff) Next() time.Duration {
	d := b.Base
	for i := 0; i < b.attempts && d < b.Max; i++ {
		d *= 2
	}
	if d > b.Max {
		d = b.Max
	}
	b.attempts++
	return d
}

// Attempts 返回已尝试次数
func (b *Backoff) Attempts() int {
	return b.attempts
}

// Reset 重置尝试次数
func (b *Backoff) Reset() {
	b.attempts = 0
}
