// Package history 提供内置发现写者的有界历史
//
// WriterHistory 为每个写者分配单调递增的序列号，并对每个主体
// 只保留最新一条变更（keep-last）：新变更会替换同一主体的旧变更，
// 被替换的变更由调用方通知可靠投递协作者停止重传。
//
// 容量耗尽时历史本身不做任何决定，调用方通过 EvictOldest
// 传入“可回收”判定（通常是该主体已被全部相关对端确认）。
package history
