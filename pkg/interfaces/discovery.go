package interfaces

import "github.com/dep2p/go-dds/pkg/types"

// Discovery 发现核心对外暴露的接口
//
// 查询部分供匹配/数据路径判断读写对是否应交换数据；
// 生命周期钩子供实体创建/销毁代码调用。
type Discovery interface {
	// Lookup 查询 GUID 对应的 Proxy，未发现返回 types.ErrNotFound
	Lookup(guid types.GUID) (types.Proxy, error)

	// IsFullyAcked 该实体的最新变更是否已被所有相关对端确认
	IsFullyAcked(guid types.GUID) bool

	// OnLocalEntityCreated 本地实体创建
	OnLocalEntityCreated(proxy types.Proxy) error

	// OnLocalEntityDisposed 本地实体销毁
	OnLocalEntityDisposed(guid types.GUID) error
}
