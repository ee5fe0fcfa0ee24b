package serializer

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
)

// Codec is a payload compression algorithm.
type Codec byte

const (
	CodecGzip   Codec = 'g'
	CodecSnappy Codec = 's'
)

func (c Codec) String() string {
	switch c {
	case CodecGzip:
		return "gzip"
	case CodecSnappy:
		return "snappy"
	default:
		return fmt.Sprintf("codec(%d)", byte(c))
	}
}

var (
	compressMagic = []byte("CMP1")

	ErrUnsupportedCodec   = errors.New("serializer: unsupported compression codec")
	ErrCorruptCompression = errors.New("serializer: corrupt compressed payload")
	ErrDecompressedSize   = errors.New("serializer: decompressed payload too large")
)

// DefaultMaxDecompressedSize bounds decompression when Compressed.MaxSize is
// not set.
const DefaultMaxDecompressedSize = 64 << 20

// Compressed wraps another serializer and compresses payloads of at least
// MinSize bytes. Compressed payloads carry a 5-byte header; anything without
// it is passed to Inner untouched, so existing entries stay readable.
// Payloads that would decompress beyond MaxSize bytes (default
// DefaultMaxDecompressedSize) are rejected with ErrDecompressedSize.
type Compressed struct {
	Inner   Serializer
	Codec   Codec
	MinSize int
	MaxSize int
}

var _ Serializer = Compressed{}

// Name is the inner name with the codec appended, e.g. "msgpack+gzip".
func (c Compressed) Name() string { return c.Inner.Name() + "+" + c.Codec.String() }

func (c Compressed) Serialize(v any) ([]byte, error) {
	raw, err := c.Inner.Serialize(v)
	if err != nil {
		return nil, err
	}
	if len(raw) < c.MinSize {
		return raw, nil
	}
	var buf bytes.Buffer
	buf.Write(compressMagic)
	buf.WriteByte(byte(c.Codec))
	switch c.Codec {
	case CodecGzip:
		zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	case CodecSnappy:
		buf.Write(s2.EncodeSnappy(nil, raw))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, c.Codec)
	}
	return buf.Bytes(), nil
}

func (c Compressed) Deserialize(data []byte, out any) error {
	raw, err := decompress(data, c.maxSize())
	if err != nil {
		return err
	}
	return c.Inner.Deserialize(raw, out)
}

func (c Compressed) maxSize() int {
	if c.MaxSize > 0 {
		return c.MaxSize
	}
	return DefaultMaxDecompressedSize
}

func decompress(in []byte, max int) ([]byte, error) {
	if len(in) < len(compressMagic)+1 || !bytes.Equal(in[:len(compressMagic)], compressMagic) {
		return in, nil
	}
	payload := in[len(compressMagic)+1:]
	switch Codec(in[len(compressMagic)]) {
	case CodecGzip:
		gr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, ErrCorruptCompression
		}
		defer gr.Close()
		out, err := io.ReadAll(io.LimitReader(gr, int64(max)+1))
		if err != nil {
			return nil, ErrCorruptCompression
		}
		if len(out) > max {
			return nil, fmt.Errorf("%w: over %d bytes", ErrDecompressedSize, max)
		}
		return out, nil
	case CodecSnappy:
		n, err := s2.DecodedLen(payload)
		if err != nil {
			return nil, ErrCorruptCompression
		}
		if n > max {
			return nil, fmt.Errorf("%w: %d bytes over %d", ErrDecompressedSize, n, max)
		}
		out, err := s2.Decode(nil, payload)
		if err != nil {
			return nil, ErrCorruptCompression
		}
		return out, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}
