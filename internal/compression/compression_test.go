package compression

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", None, false},
		{"none", None, false},
		{"Snappy", Snappy, false},
		{" snappy ", Snappy, false},
		{"zstd", None, true},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPackUnpack(t *testing.T) {
	payload := []byte(strings.Repeat(`{"value":72,"activity_level":"REST"}`, 20))

	for _, algo := range []Algorithm{None, Snappy} {
		t.Run(algo.String(), func(t *testing.T) {
			c, err := GetCompressor(algo)
			if err != nil {
				t.Fatalf("GetCompressor: %v", err)
			}
			framed, err := Pack(c, payload)
			if err != nil {
				t.Fatalf("Pack: %v", err)
			}
			if Algorithm(framed[0]) != algo {
				t.Errorf("header = %d, want %d", framed[0], algo)
			}
			if algo == Snappy && len(framed) >= len(payload) {
				t.Errorf("expected repetitive payload to shrink: %d >= %d", len(framed), len(payload))
			}

			got, err := Unpack(framed)
			if err != nil {
				t.Fatalf("Unpack: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Error("round trip mismatch")
			}
		})
	}
}

func TestUnpackErrors(t *testing.T) {
	if _, err := Unpack(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("Unpack(nil) error = %v, want ErrEmptyFrame", err)
	}
	if _, err := Unpack([]byte{9, 1, 2}); err == nil {
		t.Error("expected error for unknown algorithm byte")
	}
	if _, err := Unpack([]byte{byte(Snappy), 0xff, 0xff, 0xff}); err == nil {
		t.Error("expected error for corrupt snappy body")
	}
}

func TestSnappyEmptyData(t *testing.T) {
	c := NewSnappyCompressor()
	out, err := c.Compress(nil)
	if err != nil || len(out) != 0 {
		t.Errorf("Compress(nil) = %v, %v", out, err)
	}
	out, err = c.Decompress([]byte{})
	if err != nil || len(out) != 0 {
		t.Errorf("Decompress(empty) = %v, %v", out, err)
	}
}
