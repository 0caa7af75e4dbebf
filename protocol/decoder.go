package protocol

// Block is one validated telemetry block.
type Block struct {
	Seq     uint8
	Payload []byte
}

// Decoder extracts blocks from a byte stream. Bytes that do not start a valid
// block (boot text, a partial block after a device reset, line noise) are
// dropped one at a time until a block validates again.
type Decoder struct {
	buf []byte

	// Dropped counts bytes discarded while hunting for a block.
	Dropped uint64
	// CRCErrors counts well-formed blocks rejected by checksum.
	CRCErrors uint64
	// SeqGaps counts blocks whose sequence skipped ahead.
	SeqGaps uint64

	lastSeq uint8
	haveSeq bool
}

// NewDecoder returns an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends raw bytes from the transport.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next returns the next complete block, or false if more input is needed.
// The payload is copied and stays valid after further Feed calls.
func (d *Decoder) Next() (Block, bool) {
	for len(d.buf) > 0 {
		if d.buf[0] == SyncByte {
			d.buf = d.buf[1:]
			continue
		}
		if len(d.buf) < BlockMin {
			return Block{}, false
		}

		n := int(d.buf[PositionLen])
		if n < BlockMin || n > BlockMax || d.buf[PositionSeq]&^SeqMask != SeqDest {
			d.drop()
			continue
		}
		if len(d.buf) < n {
			return Block{}, false
		}
		if d.buf[n-1] != SyncByte {
			d.drop()
			continue
		}

		want := uint16(d.buf[n-3])<<8 | uint16(d.buf[n-2])
		if CRC16(d.buf[:n-BlockTrailerSize]) != want {
			d.CRCErrors++
			d.drop()
			continue
		}

		seq := d.buf[PositionSeq] & SeqMask
		if d.haveSeq && seq != (d.lastSeq+1)&SeqMask {
			d.SeqGaps++
		}
		d.lastSeq, d.haveSeq = seq, true

		payload := make([]byte, n-BlockMin)
		copy(payload, d.buf[BlockHeaderSize:n-BlockTrailerSize])
		d.buf = d.buf[n:]
		return Block{Seq: seq, Payload: payload}, true
	}
	return Block{}, false
}

// Buffered returns the number of bytes waiting for a complete block.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

func (d *Decoder) drop() {
	d.Dropped++
	d.buf = d.buf[1:]
}
