// Package dds 提供无中心发布/订阅系统的发现核心
//
// 参与者通过参与者发现协议（PDP）互相发现，再通过端点发现协议（EDP）
// 交换读者与写者的描述。每个参与者维护一个发现数据库（DDB），记录
// 已知的参与者与端点、每条变更的确认状态，以及等待写入发现历史的变更队列。
//
// # 核心概念
//
//   - Participant: 参与者，用户交互的主入口
//   - Endpoint: 读者或写者，按 Topic 与类型名匹配
//   - Strategy: 发现策略（simple / server / client / backup），构造时选定
//
// # 快速开始
//
//	net := dds.NewNetwork()
//	go net.Run(ctx, 10*time.Millisecond)
//
//	p, err := dds.Start(ctx,
//	    dds.WithNetwork(net),
//	    dds.WithPreset("default"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	w, _ := p.CreateWriter("sensors/temperature", "Temperature")
//	if p.IsFullyAcked(w) {
//	    // 所有相关对端都已知晓该写者
//	}
//
// # 文件组织
//
//   - participant.go: Participant 结构与生命周期
//   - entities.go: 本地实体创建与销毁、查询
//   - options.go: 构造选项
//   - fx.go: 内部模块装配
//   - network.go: 进程内投递网络
package dds
