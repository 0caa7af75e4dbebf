package protocol

import (
	"testing"
)

func TestVLQRoundTripInt(t *testing.T) {
	testCases := []int32{
		0, 1, -1, 31, -32, 95, 96, -33,
		127, -127, 128, -128,
		1000, -1000, 65535, -65535,
		1000000, -1000000,
		1<<31 - 1, -1 << 31,
	}

	for _, expected := range testCases {
		encoded := AppendVLQ(nil, expected)
		data := encoded
		decoded, err := ReadVLQ(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}
		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}
		if len(data) != 0 {
			t.Errorf("VLQ decode left %d bytes for value %d", len(data), expected)
		}
	}
}

func TestVLQRoundTripUint(t *testing.T) {
	for _, expected := range []uint32{0, 1, 127, 128, 5000, 1000000, 0xFFFFFFFF} {
		data := AppendUVLQ(nil, expected)
		decoded, err := ReadUVLQ(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}
		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d", expected, decoded)
		}
	}
}

func TestVLQEncodedLength(t *testing.T) {
	testCases := []struct {
		v   int32
		len int
	}{
		{0, 1},
		{95, 1},
		{-32, 1},
		{96, 2},
		{-33, 2},
		{1 << 20, 4},
		{-1 << 31, 5},
	}

	for _, tc := range testCases {
		if got := len(AppendVLQ(nil, tc.v)); got != tc.len {
			t.Errorf("AppendVLQ(%d) length = %d, want %d", tc.v, got, tc.len)
		}
	}
}

func TestVLQShortBuffer(t *testing.T) {
	data := []byte{0x80}
	_, err := ReadVLQ(&data)
	if err != ErrShortBuffer {
		t.Errorf("Expected ErrShortBuffer, got %v", err)
	}
	if len(data) != 1 {
		t.Errorf("Slice advanced on error: %d bytes left", len(data))
	}

	empty := []byte{}
	if _, err := ReadVLQ(&empty); err != ErrShortBuffer {
		t.Errorf("Expected ErrShortBuffer on empty input, got %v", err)
	}
}

func TestVLQTooLong(t *testing.T) {
	data := []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, err := ReadVLQ(&data); err != ErrInvalidVLQ {
		t.Errorf("Expected ErrInvalidVLQ, got %v", err)
	}
}

func TestReadString(t *testing.T) {
	for _, expected := range []string{"", "spiffs", "Failed to open file for reading"} {
		data := AppendUVLQ(nil, uint32(len(expected)))
		data = append(data, expected...)
		decoded, err := ReadString(&data)
		if err != nil {
			t.Errorf("Failed to decode string %q: %v", expected, err)
			continue
		}
		if decoded != expected {
			t.Errorf("String mismatch: expected %q, got %q", expected, decoded)
		}
	}

	truncated := []byte{5, 'a', 'b'}
	if _, err := ReadString(&truncated); err != ErrShortBuffer {
		t.Errorf("Expected ErrShortBuffer for truncated string, got %v", err)
	}
}
