package protocol

// Frame assembles one block in a fixed buffer. It never allocates, so the
// firmware can keep a single Frame for the life of the process.
type Frame struct {
	buf      [BlockMax]byte
	pos      int
	overflow bool
}

// payloadLimit is the last payload offset that still leaves room for the trailer.
const payloadLimit = BlockMax - BlockTrailerSize

// Begin resets the frame and writes the message identifier.
func (f *Frame) Begin(msgID uint32) {
	f.pos = BlockHeaderSize
	f.overflow = false
	f.PutUint(msgID)
}

// PutInt appends a signed field. Fields that do not fit mark the frame as
// overflowed and are dropped.
func (f *Frame) PutInt(v int32) {
	out := AppendVLQ(f.buf[:f.pos], v)
	if len(out) > payloadLimit {
		f.overflow = true
		return
	}
	f.pos = len(out)
}

// PutUint appends an unsigned field.
func (f *Frame) PutUint(v uint32) {
	f.PutInt(int32(v))
}

// PutBool appends a 0/1 flag.
func (f *Frame) PutBool(v bool) {
	if v {
		f.PutUint(1)
	} else {
		f.PutUint(0)
	}
}

// PutString appends a length-prefixed string, truncated to the space left.
func (f *Frame) PutString(s string) {
	room := payloadLimit - f.pos - 1
	if room < 0 {
		f.overflow = true
		return
	}
	// Single byte length prefix.
	if room > 95 {
		room = 95
	}
	if len(s) > room {
		s = s[:room]
		f.overflow = true
	}
	f.buf[f.pos] = byte(len(s))
	f.pos++
	f.pos += copy(f.buf[f.pos:], s)
}

// Overflow reports whether any field was dropped or truncated.
func (f *Frame) Overflow() bool {
	return f.overflow
}

// Finish writes the header and trailer and returns the encoded block. The
// returned slice aliases the frame buffer and is valid until the next Begin.
func (f *Frame) Finish(seq uint8) []byte {
	n := f.pos + BlockTrailerSize
	f.buf[PositionLen] = byte(n)
	f.buf[PositionSeq] = SeqDest | seq&SeqMask

	crc := CRC16(f.buf[:f.pos])
	f.buf[f.pos] = byte(crc >> 8)
	f.buf[f.pos+1] = byte(crc)
	f.buf[f.pos+2] = SyncByte
	return f.buf[:n]
}
