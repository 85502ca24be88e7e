// Package codec 提供发现负载编解码
//
// 线上格式采用 protobuf 线格式（protowire），不依赖生成代码：
//
//	DiscoveryChange:
//	  1 kind      varint
//	  2 subject   bytes(16)
//	  3 origin    bytes(12)
//	  4 sequence  varint
//	  5 topic     string
//	  6 payload   bytes  (ParticipantProxy 或 EndpointProxy 编码)
//
// 未知字段被跳过，便于后续版本扩展。
// 任何截断、字段长度错误或种类非法都返回 types.ErrMalformedPayload。
package codec
