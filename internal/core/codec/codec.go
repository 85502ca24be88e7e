package codec

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-dds/pkg/types"
)

// MaxPayloadLength 单条发现负载上限 (64 KB)
const MaxPayloadLength = 64 * 1024

// DiscoveryChange 字段号
const (
	fieldKind     protowire.Number = 1
	fieldSubject  protowire.Number = 2
	fieldOrigin   protowire.Number = 3
	fieldSequence protowire.Number = 4
	fieldTopic    protowire.Number = 5
	fieldPayload  protowire.Number = 6
)

// ParticipantProxy 字段号
const (
	fieldPGUID     protowire.Number = 1
	fieldPName     protowire.Number = 2
	fieldPLease    protowire.Number = 3
	fieldPServer   protowire.Number = 4
	fieldPLocators protowire.Number = 5
	fieldPQoS      protowire.Number = 6
)

// EndpointProxy 字段号
const (
	fieldEGUID  protowire.Number = 1
	fieldEKind  protowire.Number = 2
	fieldETopic protowire.Number = 3
	fieldEType  protowire.Number = 4
	fieldEQoS   protowire.Number = 5
)

// ============================================================================
//                              DiscoveryChange
// ============================================================================

// EncodeChange 编码发现变更
func EncodeChange(c *types.DiscoveryChange) []byte {
	b := make([]byte, 0, 48+len(c.Topic)+len(c.Payload))
	b = appendVarint(b, fieldKind, uint64(c.Kind))
	b = appendBytes(b, fieldSubject, c.Subject.Bytes())
	b = appendBytes(b, fieldOrigin, c.Origin[:])
	b = appendVarint(b, fieldSequence, c.Sequence)
	if c.Topic != "" {
		b = protowire.AppendTag(b, fieldTopic, protowire.BytesType)
		b = protowire.AppendString(b, c.Topic)
	}
	if len(c.Payload) > 0 {
		b = appendBytes(b, fieldPayload, c.Payload)
	}
	return b
}

// DecodeChange 解码发现变更
func DecodeChange(b []byte) (*types.DiscoveryChange, error) {
	if len(b) > MaxPayloadLength {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit", types.ErrMalformedPayload, len(b))
	}

	c := &types.DiscoveryChange{}
	var haveSubject, haveOrigin bool
	err := walk(b, func(num protowire.Number, f *field) error {
		switch num {
		case fieldKind:
			v, err := f.varint()
			if err != nil {
				return err
			}
			c.Kind = types.ChangeKind(v)
		case fieldSubject:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			g, err := types.GUIDFromBytes(raw)
			if err != nil {
				return err
			}
			c.Subject = g
			haveSubject = true
		case fieldOrigin:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			if len(raw) != len(c.Origin) {
				return fmt.Errorf("origin length %d", len(raw))
			}
			copy(c.Origin[:], raw)
			haveOrigin = true
		case fieldSequence:
			v, err := f.varint()
			if err != nil {
				return err
			}
			c.Sequence = v
		case fieldTopic:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			c.Topic = string(raw)
		case fieldPayload:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			c.Payload = append([]byte(nil), raw...)
		default:
			return f.skip()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !c.Kind.Valid() {
		return nil, fmt.Errorf("%w: kind %d", types.ErrMalformedPayload, c.Kind)
	}
	if !haveSubject || !haveOrigin {
		return nil, fmt.Errorf("%w: missing subject or origin", types.ErrMalformedPayload)
	}
	if c.Sequence == 0 {
		return nil, fmt.Errorf("%w: zero sequence", types.ErrMalformedPayload)
	}
	return c, nil
}

// ============================================================================
//                              Proxy 负载
// ============================================================================

// EncodeProxy 编码 Proxy 负载
func EncodeProxy(p types.Proxy) ([]byte, error) {
	switch v := p.(type) {
	case *types.ParticipantProxy:
		return EncodeParticipant(v), nil
	case *types.EndpointProxy:
		return EncodeEndpoint(v), nil
	default:
		return nil, fmt.Errorf("%w: unsupported proxy %T", types.ErrInvalidProxy, p)
	}
}

// DecodeProxy 根据主体种类解码 Proxy 负载，并校验负载 GUID 与主体一致
func DecodeProxy(subject types.GUID, b []byte) (types.Proxy, error) {
	var (
		p   types.Proxy
		err error
	)
	if subject.IsParticipant() {
		p, err = DecodeParticipant(b)
	} else {
		p, err = DecodeEndpoint(b)
	}
	if err != nil {
		return nil, err
	}
	if p.ProxyGUID() != subject {
		return nil, fmt.Errorf("%w: payload guid %s does not match subject %s",
			types.ErrMalformedPayload, p.ProxyGUID(), subject)
	}
	return p, nil
}

// EncodeParticipant 编码参与者代理
func EncodeParticipant(p *types.ParticipantProxy) []byte {
	b := appendBytes(nil, fieldPGUID, p.GUID.Bytes())
	if p.Name != "" {
		b = protowire.AppendTag(b, fieldPName, protowire.BytesType)
		b = protowire.AppendString(b, p.Name)
	}
	b = appendVarint(b, fieldPLease, uint64(p.LeaseDuration))
	if p.IsServer {
		b = appendVarint(b, fieldPServer, 1)
	}
	for _, l := range p.Locators {
		b = appendBytes(b, fieldPLocators, encodeLocator(l))
	}
	b = appendBytes(b, fieldPQoS, encodeQoS(p.QoS))
	return b
}

// DecodeParticipant 解码参与者代理
func DecodeParticipant(b []byte) (*types.ParticipantProxy, error) {
	p := &types.ParticipantProxy{Endpoints: make(map[types.GUID]struct{})}
	err := walk(b, func(num protowire.Number, f *field) error {
		switch num {
		case fieldPGUID:
			return f.guid(&p.GUID)
		case fieldPName:
			raw, err := f.bytes()
			p.Name = string(raw)
			return err
		case fieldPLease:
			v, err := f.varint()
			p.LeaseDuration = time.Duration(v)
			return err
		case fieldPServer:
			v, err := f.varint()
			p.IsServer = v != 0
			return err
		case fieldPLocators:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			l, err := decodeLocator(raw)
			if err != nil {
				return err
			}
			p.Locators = append(p.Locators, l)
		case fieldPQoS:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			q, err := decodeQoS(raw)
			p.QoS = q
			return err
		default:
			return f.skip()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedPayload, err)
	}
	return p, nil
}

// EncodeEndpoint 编码端点代理
func EncodeEndpoint(e *types.EndpointProxy) []byte {
	b := appendBytes(nil, fieldEGUID, e.GUID.Bytes())
	b = appendVarint(b, fieldEKind, uint64(e.Kind))
	b = protowire.AppendTag(b, fieldETopic, protowire.BytesType)
	b = protowire.AppendString(b, e.Topic)
	b = protowire.AppendTag(b, fieldEType, protowire.BytesType)
	b = protowire.AppendString(b, e.TypeName)
	b = appendBytes(b, fieldEQoS, encodeQoS(e.QoS))
	return b
}

// DecodeEndpoint 解码端点代理
func DecodeEndpoint(b []byte) (*types.EndpointProxy, error) {
	e := &types.EndpointProxy{Matched: make(map[types.GUID]struct{})}
	err := walk(b, func(num protowire.Number, f *field) error {
		switch num {
		case fieldEGUID:
			return f.guid(&e.GUID)
		case fieldEKind:
			v, err := f.varint()
			e.Kind = types.EndpointKind(v)
			return err
		case fieldETopic:
			raw, err := f.bytes()
			e.Topic = string(raw)
			return err
		case fieldEType:
			raw, err := f.bytes()
			e.TypeName = string(raw)
			return err
		case fieldEQoS:
			raw, err := f.bytes()
			if err != nil {
				return err
			}
			q, err := decodeQoS(raw)
			e.QoS = q
			return err
		default:
			return f.skip()
		}
	})
	if err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedPayload, err)
	}
	return e, nil
}

// ============================================================================
//                              嵌套消息
// ============================================================================

func encodeLocator(l types.Locator) []byte {
	b := appendVarint(nil, 1, protowire.EncodeZigZag(int64(l.Kind)))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, l.Address)
	b = appendVarint(b, 3, uint64(l.Port))
	return b
}

func decodeLocator(b []byte) (types.Locator, error) {
	var l types.Locator
	err := walk(b, func(num protowire.Number, f *field) error {
		switch num {
		case 1:
			v, err := f.varint()
			l.Kind = types.LocatorKind(protowire.DecodeZigZag(v))
			return err
		case 2:
			raw, err := f.bytes()
			l.Address = string(raw)
			return err
		case 3:
			v, err := f.varint()
			l.Port = uint32(v)
			return err
		default:
			return f.skip()
		}
	})
	return l, err
}

func encodeQoS(q types.QoS) []byte {
	b := appendVarint(nil, 1, uint64(q.Reliability))
	b = appendVarint(b, 2, uint64(q.Durability))
	for _, p := range q.Partitions {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, p)
	}
	if len(q.UserData) > 0 {
		b = appendBytes(b, 4, q.UserData)
	}
	return b
}

func decodeQoS(b []byte) (types.QoS, error) {
	var q types.QoS
	err := walk(b, func(num protowire.Number, f *field) error {
		switch num {
		case 1:
			v, err := f.varint()
			q.Reliability = types.Reliability(v)
			return err
		case 2:
			v, err := f.varint()
			q.Durability = types.Durability(v)
			return err
		case 3:
			raw, err := f.bytes()
			q.Partitions = append(q.Partitions, string(raw))
			return err
		case 4:
			raw, err := f.bytes()
			q.UserData = append([]byte(nil), raw...)
			return err
		default:
			return f.skip()
		}
	})
	return q, err
}
