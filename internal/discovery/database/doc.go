// Package database 实现发现数据库（DDB）
//
// DB 独占持有所有参与者/端点代理、确认状态跟踪器与发现变更队列，
// 一把互斥锁保护全部状态，查询与修改使用同一把锁，外部观察到的
// 状态转换顺序即加锁顺序。
//
// 本地实体（Origin 等于本地前缀）的每次成功修改都会分配新的序列号
// 并进入变更队列；远端变更按序列号去重、过滤过期与重复宣告，
// 在服务器类策略下被转发（重新入队）。
//
// 变更入队即进入 pending-acks 状态，相关对端集合取当时已知的远端参与者。
// 参与者移除与对其确认状态的清理在同一次加锁中完成。
package database
