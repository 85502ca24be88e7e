// Package lib 包含基础设施工具库
//
// 本目录包含与发现逻辑无关的通用工具库：
//
//   - log: 日志封装
//
// # 与 pkg/ 其他目录的关系
//
//   - interfaces/: 外部协作者契约（可靠传输、调度器、事件总线、存储）
//   - types/: 公共类型定义
//   - lib/: 基础设施工具库（本目录）
package lib
