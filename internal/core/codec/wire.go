package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-dds/pkg/types"
)

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// field 当前待消费的字段值
type field struct {
	num protowire.Number
	typ protowire.Type
	buf []byte
	n   int
}

func (f *field) varint() (uint64, error) {
	if f.typ != protowire.VarintType {
		return 0, fmt.Errorf("field %d: wire type %d, want varint", f.num, f.typ)
	}
	v, n := protowire.ConsumeVarint(f.buf)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	f.n = n
	return v, nil
}

func (f *field) bytes() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, fmt.Errorf("field %d: wire type %d, want bytes", f.num, f.typ)
	}
	v, n := protowire.ConsumeBytes(f.buf)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	f.n = n
	return v, nil
}

func (f *field) guid(dst *types.GUID) error {
	raw, err := f.bytes()
	if err != nil {
		return err
	}
	g, err := types.GUIDFromBytes(raw)
	if err != nil {
		return err
	}
	*dst = g
	return nil
}

func (f *field) skip() error {
	n := protowire.ConsumeFieldValue(f.num, f.typ, f.buf)
	if n < 0 {
		return protowire.ParseError(n)
	}
	f.n = n
	return nil
}

// walk 依次把每个字段交给 fn，fn 必须消费该字段的值
func walk(b []byte, fn func(num protowire.Number, f *field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", types.ErrMalformedPayload, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ, buf: b}
		if err := fn(num, &f); err != nil {
			return fmt.Errorf("%w: %v", types.ErrMalformedPayload, err)
		}
		if f.n == 0 {
			return fmt.Errorf("%w: field %d not consumed", types.ErrMalformedPayload, num)
		}
		b = b[f.n:]
	}
	return nil
}
