package fastac

import (
	"bytes"
	"testing"
)

func TestVarintRoundtrip(t *testing.T) {
	tests := []struct {
		name       string
		n          uint32
		headerLen  int
	}{
		{"zero", 0, 1},
		{"small", 42, 1},
		{"boundary_127", 127, 1},
		{"boundary_128", 128, 2},
		{"boundary_16383", 16383, 2},
		{"boundary_16384", 16384, 3},
		{"large", 1 << 20, 3},
		{"max_uint32", 0xFFFFFFFF, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := writeVarint(&buf, tt.n)
			if err != nil {
				t.Fatalf("writeVarint: %v", err)
			}
			if n != tt.headerLen {
				t.Errorf("header length: got %d, want %d", n, tt.headerLen)
			}
			if buf.Len() != tt.headerLen {
				t.Errorf("bytes written: got %d, want %d", buf.Len(), tt.headerLen)
			}

			got, err := readVarint(&buf)
			if err != nil {
				t.Fatalf("readVarint: %v", err)
			}
			if got != tt.n {
				t.Errorf("got %d, want %d", got, tt.n)
			}
		})
	}
}

func TestReadVarintShortInput(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x80}) // continuation bit set, no more bytes
	if _, err := readVarint(buf); err == nil {
		t.Error("expected error reading truncated varint")
	}
}
