// Package types 定义 go-dds 发现子系统的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 go-dds 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
// 基础类型:
//   - ids.go     - GUIDPrefix, EntityID, GUID
//   - enums.go   - ChangeKind, EndpointKind, Strategy, RemovalReason
//   - errors.go  - 公共错误定义
//
// 发现类型:
//   - proxy.go   - ParticipantProxy, EndpointProxy, QoS, Locator
//   - change.go  - DiscoveryChange, CacheChange
//
// 事件类型:
//   - events.go  - 参与者/端点 发现、移除、匹配事件
//
// # 所有权
//
// Proxy 由发现数据库（DDB）独占持有，对外返回的总是深拷贝，
// 调用方修改返回值不会影响数据库内部状态。
package types
