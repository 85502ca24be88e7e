// Package metrics 提供发现层指标
//
// Collector 把发现数据库与 PDP/EDP 服务器的关键计数导出为 prometheus 指标，
// 每个参与者使用独立的 Registry，避免同一进程内多个参与者互相覆盖。
//
// 指标（前缀 dds_discovery_）：
//   - changes_enqueued_total{target}
//   - changes_flushed_total{target}
//   - changes_received_total{target,kind}
//   - malformed_payloads_total{target}
//   - retransmissions_total{target}
//   - history_exhausted_total{target}
//   - participants / endpoints / pending_acks / queue_length（gauge）
package metrics
