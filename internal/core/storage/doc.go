// Package storage 提供发现数据持久化所需的存储层
//
// 结构：
//   - engine：引擎内部接口与配置
//   - engine/badger：BadgerDB 实现
//   - kv：带前缀隔离的 KV 存储
//
// DataDir 为空时使用 BadgerDB 纯内存模式，BACKUP 策略的参与者
// 应配置持久目录以便重启后恢复发现数据库。
package storage
