package interfaces

import "github.com/dep2p/go-dds/pkg/types"

// ReliableWriter 可靠投递协作者（写端）
//
// 每个内置写者（PDP/EDP）对应一个实例。协作者保证每写者按序、
// 至少一次投递，并负责对未确认序列号的按对端重传。
type ReliableWriter interface {
	// Publish 变更已进入写者历史，投递给所有匹配读者
	Publish(change *types.CacheChange) error

	// Retransmit 向指定对端补发
	Retransmit(change *types.CacheChange, peers []types.GUIDPrefix) error

	// Withdraw 变更已离开写者历史，停止重传
	Withdraw(writer types.GUID, seq uint64)

	// Announce 尽力而为广播（周期宣告、租约续期），不要求确认
	Announce(change *types.CacheChange) error
}

// AckListener 写端确认回调
type AckListener interface {
	// OnAcked 对端 reader 已确认 writer 的 seq
	OnAcked(writer types.GUID, seq uint64, reader types.GUIDPrefix)
}

// ReaderListener 读端数据回调
type ReaderListener interface {
	// OnDataAvailable 收到来自 from 的一条变更
	OnDataAvailable(from types.GUIDPrefix, change *types.CacheChange)
}
