// Package server 实现参与者发现（PDP）与端点发现（EDP）服务器
//
// 两个服务器共享同一基础结构：一个有界写者历史、一个可靠投递写端
// 协作者和一个读端回调。本地实体的生命周期事件经发现数据库进入
// 变更队列，由刷新周期按到达顺序写入对应历史并发布；远端变更在
// 读端回调中解码后应用到发现数据库。
//
// # 刷新周期
//
// Flusher 按到达顺序取出队列条目写入 PDP/EDP 历史。历史已满时
// 先回收最旧的完全确认条目；仍无空位则把该条目及其后的条目放回队首
// 并停止本次刷新，保持顺序。刷新结束时回收已销毁且完全确认的实体。
//
// # 定时事件
//
// Server 在调度器上注册：
//   - 周期刷新
//   - 参与者周期宣告（尽力而为，远端据此续租）
//   - 租约检查
//   - 未确认变更的退避重传
//   - BACKUP 策略的周期持久化
//
// 本地创建/销毁后的立即刷新经 rate.Limiter 限流，被限流的触发由周期刷新覆盖。
package server
