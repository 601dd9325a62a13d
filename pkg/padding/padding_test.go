package padding

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func randomNonZeroBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	for i, v := range b {
		if v == 0 {
			b[i] = 0xff
		}
	}
	return b
}

func TestNonZeroPaddingRoundtrip(t *testing.T) {
	aligns := []int{100, 128, 200, 256, 1000, 1024}
	sizes := []int{137, 1234, 12345}

	for _, size := range sizes {
		data := randomNonZeroBytes(t, size)
		for _, align := range aligns {
			padded := PadNonZero(data, align)
			if len(padded)%align != 0 {
				t.Fatalf("size %d align %d: len(padded)=%d not aligned", size, align, len(padded))
			}
			unpadded, err := UnpadNonZero(padded)
			if err != nil {
				t.Fatalf("UnpadNonZero: %v", err)
			}
			if !bytes.Equal(unpadded, data) {
				t.Errorf("size %d align %d: roundtrip mismatch", size, align)
			}
		}
	}
}

func TestNonZeroPaddingNoopWhenAligned(t *testing.T) {
	data := randomNonZeroBytes(t, 128)
	padded := PadNonZero(data, 128)
	if !bytes.Equal(padded, data) {
		t.Errorf("expected no-op padding for already-aligned data")
	}
}

func TestNonZeroPaddingPanicsOnNulByte(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic padding data containing a NUL byte")
		}
	}()
	PadNonZero([]byte{1, 2, 0, 3}, 16)
}

func TestRandomFrontBackRoundtrip(t *testing.T) {
	aligns := []int{16, 64, 128, 256}
	payloads := [][]byte{
		{},
		{0, 1, 2, 0, 0, 3},
		randomNonZeroBytes(t, 500),
		make([]byte, 4096),
	}

	for _, data := range payloads {
		for _, align := range aligns {
			padded := PadRandomFrontBack(data, align)
			if len(padded)%align != 0 {
				t.Fatalf("len(padded)=%d not aligned to %d", len(padded), align)
			}
			unpadded, err := UnpadRandomFrontBack(padded)
			if err != nil {
				t.Fatalf("UnpadRandomFrontBack: %v", err)
			}
			if !bytes.Equal(unpadded, data) {
				t.Errorf("roundtrip mismatch for payload of len %d align %d", len(data), align)
			}
		}
	}
}

func TestEncodeLengthVectors(t *testing.T) {
	tests := []struct {
		length uint64
		want   []byte
	}{
		{0, []byte{0x00}},
		{0x12, []byte{0x12}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x81, 0x00}},
		{0x1234, []byte{0xa4, 0x34}},
	}

	for _, tt := range tests {
		got := encodeLength(tt.length)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("encodeLength(%#x) = %#x, want %#x", tt.length, got, tt.want)
		}
		offset, length, err := decodeLength(got)
		if err != nil {
			t.Fatalf("decodeLength(%#x): %v", got, err)
		}
		if offset != len(got) || length != tt.length {
			t.Errorf("decodeLength(%#x) = (%d, %#x), want (%d, %#x)", got, offset, length, len(got), tt.length)
		}
	}
}

func TestUnpadRandomFrontBackRejectsTruncatedLength(t *testing.T) {
	_, err := UnpadRandomFrontBack([]byte{1, 2, 0, 0x81})
	if err != ErrPadding {
		t.Errorf("expected ErrPadding, got %v", err)
	}
}

func TestUnpadRandomFrontBackRejectsOverlongClaim(t *testing.T) {
	_, err := UnpadRandomFrontBack([]byte{1, 2, 0, 0x7f})
	if err != ErrPadding {
		t.Errorf("expected ErrPadding, got %v", err)
	}
}
