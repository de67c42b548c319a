// Package thrift implements the Thrift/HTTP backend.Client variant — the
// wire protocol the driver speaks to "classic" SQL warehouses, binary
// Thrift structs transported as the body of an HTTP POST (Hive's
// TCLIService over THttpClient, the same shape original_source's
// auth/thrift_http_client.py rides on top of). Generalizes the teacher's
// graph.Client's "one JSON body per call" shape to a binary struct body built
// with apache/thrift's TBinaryProtocol.
package thrift

import (
	"bytes"
	"context"
	"fmt"

	athrift "github.com/apache/thrift/lib/go/thrift"
)

// field is one Thrift struct field: a field id, its wire type, and a Go
// value compatible with that type. Used both to build outbound structs and
// to describe what was parsed back out of an inbound one.
type field struct {
	ID    int16
	Type  athrift.TType
	Value any
}

// writeStruct serializes fields as one anonymous struct (Thrift struct names
// never reach the wire, so an empty name is written) into a binary-protocol
// byte buffer ready to POST.
func writeStruct(ctx context.Context, fields []field) ([]byte, error) {
	buf := athrift.NewTMemoryBuffer()
	proto := athrift.NewTBinaryProtocolConf(buf, nil)

	if err := proto.WriteStructBegin(ctx, ""); err != nil {
		return nil, err
	}

	for _, f := range fields {
		if err := writeField(ctx, proto, f); err != nil {
			return nil, fmt.Errorf("thrift: writing field %d: %w", f.ID, err)
		}
	}

	if err := proto.WriteFieldStop(ctx); err != nil {
		return nil, err
	}

	if err := proto.WriteStructEnd(ctx); err != nil {
		return nil, err
	}

	if err := proto.Flush(ctx); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeField(ctx context.Context, proto athrift.TProtocol, f field) error {
	if err := proto.WriteFieldBegin(ctx, "", f.Type, f.ID); err != nil {
		return err
	}

	switch f.Type {
	case athrift.STRING:
		if err := proto.WriteString(ctx, f.Value.(string)); err != nil {
			return err
		}
	case athrift.BOOL:
		if err := proto.WriteBool(ctx, f.Value.(bool)); err != nil {
			return err
		}
	case athrift.I32:
		if err := proto.WriteI32(ctx, f.Value.(int32)); err != nil {
			return err
		}
	case athrift.I64:
		if err := proto.WriteI64(ctx, f.Value.(int64)); err != nil {
			return err
		}
	case athrift.STRUCT:
		raw := f.Value.([]byte)
		if _, err := proto.Transport().Write(raw); err != nil {
			return err
		}
	case athrift.MAP:
		m := f.Value.(map[string]string)
		if err := proto.WriteMapBegin(ctx, athrift.STRING, athrift.STRING, len(m)); err != nil {
			return err
		}

		for k, v := range m {
			if err := proto.WriteString(ctx, k); err != nil {
				return err
			}

			if err := proto.WriteString(ctx, v); err != nil {
				return err
			}
		}

		if err := proto.WriteMapEnd(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("thrift: unsupported field type %v", f.Type)
	}

	return proto.WriteFieldEnd(ctx)
}

// readFields decodes a binary-protocol struct body into its field list,
// generically — it doesn't know the struct's schema ahead of time, mirroring
// how this package builds requests: named accessors on top of a dynamic
// field map rather than one generated type per RPC.
func readFields(ctx context.Context, data []byte) (map[int16]field, error) {
	proto := athrift.NewTBinaryProtocolConf(athrift.NewStreamTransportR(bytes.NewReader(data)), nil)

	if _, err := proto.ReadStructBegin(ctx); err != nil {
		return nil, err
	}

	out := make(map[int16]field)

	for {
		_, ftype, id, err := proto.ReadFieldBegin(ctx)
		if err != nil {
			return nil, err
		}

		if ftype == athrift.STOP {
			break
		}

		val, err := readValue(ctx, proto, ftype)
		if err != nil {
			return nil, fmt.Errorf("thrift: reading field %d: %w", id, err)
		}

		out[id] = field{ID: id, Type: ftype, Value: val}

		if err := proto.ReadFieldEnd(ctx); err != nil {
			return nil, err
		}
	}

	return out, proto.ReadStructEnd(ctx)
}

func readValue(ctx context.Context, proto athrift.TProtocol, t athrift.TType) (any, error) {
	switch t {
	case athrift.STRING:
		return proto.ReadString(ctx)
	case athrift.BOOL:
		return proto.ReadBool(ctx)
	case athrift.I32:
		return proto.ReadI32(ctx)
	case athrift.I64:
		return proto.ReadI64(ctx)
	case athrift.STRUCT:
		if _, err := proto.ReadStructBegin(ctx); err != nil {
			return nil, err
		}

		nested := make(map[int16]field)

		for {
			_, ftype, id, err := proto.ReadFieldBegin(ctx)
			if err != nil {
				return nil, err
			}

			if ftype == athrift.STOP {
				break
			}

			v, err := readValue(ctx, proto, ftype)
			if err != nil {
				return nil, err
			}

			nested[id] = field{ID: id, Type: ftype, Value: v}

			if err := proto.ReadFieldEnd(ctx); err != nil {
				return nil, err
			}
		}

		return nested, proto.ReadStructEnd(ctx)
	case athrift.LIST:
		etype, size, err := proto.ReadListBegin(ctx)
		if err != nil {
			return nil, err
		}

		out := make([]any, 0, size)

		for i := 0; i < size; i++ {
			v, err := readValue(ctx, proto, etype)
			if err != nil {
				return nil, err
			}

			out = append(out, v)
		}

		return out, proto.ReadListEnd(ctx)
	case athrift.MAP:
		_, _, size, err := proto.ReadMapBegin(ctx)
		if err != nil {
			return nil, err
		}

		out := make(map[string]string, size)

		for i := 0; i < size; i++ {
			k, err := proto.ReadString(ctx)
			if err != nil {
				return nil, err
			}

			v, err := proto.ReadString(ctx)
			if err != nil {
				return nil, err
			}

			out[k] = v
		}

		return out, proto.ReadMapEnd(ctx)
	default:
		return nil, fmt.Errorf("thrift: unsupported field type %v", t)
	}
}
