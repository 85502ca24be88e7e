package types

import "strings"

// ============================================================================
//                              ChangeKind - 变更种类
// ============================================================================

// ChangeKind 发现变更种类
type ChangeKind uint8

const (
	// ChangeAlive 实体存在或被更新
	ChangeAlive ChangeKind = iota + 1
	// ChangeDisposed 实体被销毁
	ChangeDisposed
)

// String 返回变更种类的字符串表示
func (k ChangeKind) String() string {
	switch k {
	case ChangeAlive:
		return "ALIVE"
	case ChangeDisposed:
		return "DISPOSED"
	default:
		return "UNKNOWN"
	}
}

// Valid 是否为已知种类
func (k ChangeKind) Valid() bool {
	return k == ChangeAlive || k == ChangeDisposed
}

// ============================================================================
//                              EndpointKind - 端点种类
// ============================================================================

// EndpointKind 端点种类
type EndpointKind uint8

const (
	// EndpointWriter 写者
	EndpointWriter EndpointKind = iota + 1
	// EndpointReader 读者
	EndpointReader
)

// String 返回端点种类的字符串表示
func (k EndpointKind) String() string {
	switch k {
	case EndpointWriter:
		return "writer"
	case EndpointReader:
		return "reader"
	default:
		return "unknown"
	}
}

// EntityKind 返回对应的实体种类字节
func (k EndpointKind) EntityKind() byte {
	if k == EndpointReader {
		return EntityKindReader
	}
	return EntityKindWriter
}

// ============================================================================
//                              Strategy - 发现策略
// ============================================================================

// Strategy 发现策略
//
// 策略在参与者构造时选定一次，运行期间不可切换。
type Strategy uint8

const (
	// StrategySimple 对等发现：每个参与者只宣告自身实体
	StrategySimple Strategy = iota
	// StrategyServer 发现服务器：向客户端转发所有远端变更
	StrategyServer
	// StrategyClient 发现客户端：只以服务器作为确认对象
	StrategyClient
	// StrategyBackup 带持久化的发现服务器
	StrategyBackup
)

// String 返回策略的字符串表示
func (s Strategy) String() string {
	switch s {
	case StrategySimple:
		return "simple"
	case StrategyServer:
		return "server"
	case StrategyClient:
		return "client"
	case StrategyBackup:
		return "backup"
	default:
		return "unknown"
	}
}

// IsServer 是否具备服务器行为（转发远端变更）
func (s Strategy) IsServer() bool {
	return s == StrategyServer || s == StrategyBackup
}

// ParseStrategy 解析策略名称
func ParseStrategy(name string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "simple":
		return StrategySimple, true
	case "server":
		return StrategyServer, true
	case "client":
		return StrategyClient, true
	case "backup":
		return StrategyBackup, true
	default:
		return StrategySimple, false
	}
}

// ============================================================================
//                              RemovalReason - 移除原因
// ============================================================================

// RemovalReason 参与者移除原因
type RemovalReason uint8

const (
	// RemovedDisposed 显式销毁
	RemovedDisposed RemovalReason = iota + 1
	// RemovedLeaseExpired 租约到期
	RemovedLeaseExpired
)

// String 返回移除原因的字符串表示
func (r RemovalReason) String() string {
	switch r {
	case RemovedDisposed:
		return "disposed"
	case RemovedLeaseExpired:
		return "lease-expired"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              QoS 枚举
// ============================================================================

// Reliability 可靠性
type Reliability uint8

const (
	// BestEffort 尽力而为
	BestEffort Reliability = iota
	// Reliable 可靠
	Reliable
)

// Durability 持久性
type Durability uint8

const (
	// Volatile 易失
	Volatile Durability = iota
	// TransientLocal 本地暂存（晚加入者可获取历史）
	TransientLocal
)

// LocatorKind 定位器种类
type LocatorKind int32

const (
	// LocatorInvalid 无效
	LocatorInvalid LocatorKind = -1
	// LocatorUDPv4 UDPv4
	LocatorUDPv4 LocatorKind = 1
	// LocatorUDPv6 UDPv6
	LocatorUDPv6 LocatorKind = 2
	// LocatorTCPv4 TCPv4
	LocatorTCPv4 LocatorKind = 4
	// LocatorSHM 共享内存
	LocatorSHM LocatorKind = 16
)

// Scheme 返回定位器 URL 前缀
func (k LocatorKind) Scheme() string {
	switch k {
	case LocatorUDPv4:
		return "udpv4"
	case LocatorUDPv6:
		return "udpv6"
	case LocatorTCPv4:
		return "tcpv4"
	case LocatorSHM:
		return "shm"
	default:
		return "invalid"
	}
}

// LocatorKindFromScheme 由 URL 前缀解析定位器种类
func LocatorKindFromScheme(scheme string) LocatorKind {
	switch strings.ToLower(scheme) {
	case "udp", "udpv4":
		return LocatorUDPv4
	case "udpv6":
		return LocatorUDPv6
	case "tcp", "tcpv4":
		return LocatorTCPv4
	case "shm":
		return LocatorSHM
	default:
		return LocatorInvalid
	}
}
