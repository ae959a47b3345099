// Package compression frames stored reading payloads with the algorithm
// used to compress them.
package compression

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm identifies a compression algorithm. It is written as the first
// byte of every framed payload.
type Algorithm uint8

const (
	None   Algorithm = 0
	Snappy Algorithm = 1
)

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// ParseAlgorithm maps a config value to an Algorithm. Empty means none.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "snappy":
		return Snappy, nil
	default:
		return None, fmt.Errorf("unsupported compression algorithm: %q", name)
	}
}

// Compressor compresses and decompresses raw bytes.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Algorithm() Algorithm
}

// GetCompressor returns a compressor for the given algorithm
func GetCompressor(algo Algorithm) (Compressor, error) {
	switch algo {
	case None:
		return NoneCompressor{}, nil
	case Snappy:
		return NewSnappyCompressor(), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %d", algo)
	}
}

// NoneCompressor passes data through unchanged.
type NoneCompressor struct{}

func (NoneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (NoneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (NoneCompressor) Algorithm() Algorithm                   { return None }

// ErrEmptyFrame is returned by Unpack for a zero-length payload.
var ErrEmptyFrame = errors.New("empty compression frame")

// Pack compresses data with c and prefixes the algorithm byte.
func Pack(c Compressor, data []byte) ([]byte, error) {
	body, err := c.Compress(data)
	if err != nil {
		return nil, err
	}
	framed := make([]byte, 0, len(body)+1)
	framed = append(framed, byte(c.Algorithm()))
	return append(framed, body...), nil
}

// Unpack reads the algorithm byte and decompresses the rest, so payloads
// written under a different storage setting stay readable.
func Unpack(framed []byte) ([]byte, error) {
	if len(framed) == 0 {
		return nil, ErrEmptyFrame
	}
	c, err := GetCompressor(Algorithm(framed[0]))
	if err != nil {
		return nil, err
	}
	return c.Decompress(framed[1:])
}
