// Package codec encodes compressed-table payloads and exports filtered
// employees as compressed JSON lines.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/snappy"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"employeedb/internal/domain"
)

// ErrCorruptPayload wraps every payload decoding failure
var ErrCorruptPayload = errors.New("corrupt payload")

// Compression names a general-purpose compression algorithm
type Compression string

const (
	CompressionGzip   Compression = "gzip"
	CompressionZstd   Compression = "zstd"
	CompressionSnappy Compression = "snappy"
)

// ParseCompression validates s as a Compression
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(s); c {
	case CompressionGzip, CompressionZstd, CompressionSnappy:
		return c, nil
	}
	return "", fmt.Errorf("unsupported compression %q", s)
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Detect identifies the compression of b by its magic number. Snappy block
// data carries no magic and is assumed when neither gzip nor zstd matches.
func Detect(b []byte) Compression {
	switch {
	case bytes.HasPrefix(b, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(b, zstdMagic):
		return CompressionZstd
	default:
		return CompressionSnappy
	}
}

// Exporter writes employees to an output format
type Exporter interface {
	Export(employees []Payload, w io.Writer) (ExportStats, error)
	Format() string
}

// Codec serializes a Payload to JSON and compresses it. Encode uses the
// configured Compression; Decode accepts any supported Compression. A Codec
// is safe for concurrent use.
type Codec struct {
	compression Compression
	zenc        *zstd.Encoder
	zdec        *zstd.Decoder
}

// New creates a Codec which encodes with c
func New(c Compression) (*Codec, error) {
	if _, err := ParseCompression(string(c)); err != nil {
		return nil, err
	}

	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	zdec, err := zstd.NewReader(nil)
	if err != nil {
		zenc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Codec{compression: c, zenc: zenc, zdec: zdec}, nil
}

// Compression returns the algorithm used by Encode
func (c *Codec) Compression() Compression {
	return c.compression
}

// Marshal returns the uncompressed JSON encoding of p
func (c *Codec) Marshal(p Payload) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return raw, nil
}

// Encode serializes and compresses p
func (c *Codec) Encode(p Payload) ([]byte, error) {
	raw, err := c.Marshal(p)
	if err != nil {
		return nil, err
	}
	return c.Compress(raw)
}

// Compress compresses raw with the configured algorithm
func (c *Codec) Compress(raw []byte) ([]byte, error) {
	switch c.compression {
	case CompressionZstd:
		return c.zenc.EncodeAll(raw, nil), nil
	case CompressionSnappy:
		return snappy.Encode(nil, raw), nil
	default:
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(raw); err != nil {
			return nil, fmt.Errorf("failed to gzip payload: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to gzip payload: %w", err)
		}
		return buf.Bytes(), nil
	}
}

// Decompress reverses Compress for any supported algorithm
func (c *Codec) Decompress(b []byte) ([]byte, error) {
	switch Detect(b) {
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
		}
		defer r.Close()
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
		}
		return raw, nil
	case CompressionZstd:
		raw, err := c.zdec.DecodeAll(b, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
		}
		return raw, nil
	default:
		raw, err := snappy.Decode(nil, b)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
		}
		return raw, nil
	}
}

// Decode decompresses and deserializes b. A payload that does not describe a
// valid employee is corrupt.
func (c *Codec) Decode(b []byte) (Payload, error) {
	raw, err := c.Decompress(b)
	if err != nil {
		return Payload{}, err
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}
	if _, err := p.Employee(); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}
	return p, nil
}

// CompressEmployee builds the compressed cache row for e with age as of ref.
// It also returns the uncompressed payload size.
func (c *Codec) CompressEmployee(e domain.Employee, ref time.Time) (domain.CompressedEmployee, int, error) {
	raw, err := c.Marshal(NewPayload(e, ref))
	if err != nil {
		return domain.CompressedEmployee{}, 0, err
	}
	compressed, err := c.Compress(raw)
	if err != nil {
		return domain.CompressedEmployee{}, 0, err
	}
	return domain.CompressedEmployee{Employee: e, Payload: compressed}, len(raw), nil
}

// Close releases zstd resources
func (c *Codec) Close() {
	c.zenc.Close()
	c.zdec.Close()
}
