// Package introspect 提供本地自省 HTTP 服务
//
// 该服务运行在本地端口，以 JSON 输出发现数据库状态，用于调试和监控。
// 默认绑定到 127.0.0.1，不暴露到网络。
//
// # 端点
//
//	GET /debug/introspect               - 完整诊断报告 (JSON)
//	GET /debug/introspect/participants  - 已知参与者
//	GET /debug/introspect/endpoints     - 已知端点及匹配
//	GET /debug/introspect/pending       - 未完全确认的变更
//	GET /debug/introspect/runtime       - 运行时信息
//	GET /metrics                        - Prometheus 指标
//	GET /debug/pprof/*                  - Go pprof 端点
//	GET /health                         - 健康检查
//
// # 使用示例
//
//	server := introspect.New(introspect.Config{
//	    Addr:   "127.0.0.1:6060",
//	    Source: db,
//	})
//	server.Start(ctx)
//	defer server.Stop()
//
// 通过 config.Diagnostics.EnableIntrospect 配置启用。
package introspect
