package dds

import "github.com/dep2p/go-dds/internal/core/loopback"

// Network 进程内投递网络
//
// 同一 Network 上的参与者互相可见。网络不会自行投递消息，需要调用
// Pump 或在后台运行 Run。
type Network = loopback.Network

// NewNetwork 创建进程内投递网络
func NewNetwork() *Network {
	return loopback.NewNetwork()
}
