package protocol

import "errors"

var (
	ErrInvalidVLQ  = errors.New("invalid VLQ encoding")
	ErrShortBuffer = errors.New("buffer too short")
)

// maxVLQLen is the longest encoding of a 32-bit value.
const maxVLQLen = 5

// AppendVLQ appends v using Klipper's variable length encoding: seven bits
// per byte, most significant group first, bit 7 set on every byte but the last.
// Values in [-32, 96) take a single byte.
func AppendVLQ(dst []byte, v int32) []byte {
	switch {
	case v < -(1<<26) || v >= 3<<26:
		dst = append(dst, byte(v>>28)&0x7F|0x80)
		fallthrough
	case v < -(1<<19) || v >= 3<<19:
		dst = append(dst, byte(v>>21)&0x7F|0x80)
		fallthrough
	case v < -(1<<12) || v >= 3<<12:
		dst = append(dst, byte(v>>14)&0x7F|0x80)
		fallthrough
	case v < -(1<<5) || v >= 3<<5:
		dst = append(dst, byte(v>>7)&0x7F|0x80)
	}
	return append(dst, byte(v)&0x7F)
}

// AppendUVLQ appends an unsigned value. It shares the signed encoding, so the
// decoder must read it back with ReadUVLQ.
func AppendUVLQ(dst []byte, v uint32) []byte {
	return AppendVLQ(dst, int32(v))
}

// ReadVLQ decodes one value from the front of *data and advances the slice.
// On error the slice is left untouched.
func ReadVLQ(data *[]byte) (int32, error) {
	buf := *data
	if len(buf) == 0 {
		return 0, ErrShortBuffer
	}

	c := buf[0]
	v := uint32(c & 0x7F)
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}

	i := 1
	for c&0x80 != 0 {
		if i >= maxVLQLen {
			return 0, ErrInvalidVLQ
		}
		if i >= len(buf) {
			return 0, ErrShortBuffer
		}
		c = buf[i]
		i++
		v = v<<7 | uint32(c&0x7F)
	}

	*data = buf[i:]
	return int32(v), nil
}

// ReadUVLQ decodes a value written by AppendUVLQ.
func ReadUVLQ(data *[]byte) (uint32, error) {
	v, err := ReadVLQ(data)
	return uint32(v), err
}

// ReadBool decodes a 0/1 flag.
func ReadBool(data *[]byte) (bool, error) {
	v, err := ReadUVLQ(data)
	return v != 0, err
}

// ReadString decodes a length-prefixed string.
func ReadString(data *[]byte) (string, error) {
	rest := *data
	n, err := ReadUVLQ(&rest)
	if err != nil {
		return "", err
	}
	if uint32(len(rest)) < n {
		return "", ErrShortBuffer
	}
	*data = rest[n:]
	return string(rest[:n]), nil
}
