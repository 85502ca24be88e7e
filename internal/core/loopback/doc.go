// Package loopback 提供进程内的可靠投递网络
//
// Network 模拟一组参与者之间的内置发现通道：每个参与者通过 Join
// 获得一个 Port，在 Port 上注册 PDP/EDP 写者与读者。
// 写者发布的变更进入网络队列，由 Pump 按 FIFO 投递给其他端口上
// 同一通道的读者，并把确认回送给写者的 AckListener。
//
// 网络支持分区（Partition）、扣留确认（HoldAcks）与丢包判定（SetDrop），
// 用于重现网络分区、确认丢失与瞬时丢包等场景。
//
// 所有回调都在 Pump 调用方的 goroutine 中执行，且执行时不持有网络锁。
package loopback
