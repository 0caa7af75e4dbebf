package protocol

import "testing"

func encodeCycle(seq uint8, cycle uint32) []byte {
	var f Frame
	(&CycleMsg{Cycle: cycle, Opened: true, Reads: 5, Bytes: 5000}).Encode(&f)
	return append([]byte(nil), f.Finish(seq)...)
}

func TestDecoderSplitInput(t *testing.T) {
	block := encodeCycle(0, 1)
	d := NewDecoder()

	d.Feed(block[:3])
	if _, ok := d.Next(); ok {
		t.Fatal("block returned before it was complete")
	}
	d.Feed(block[3:])
	b, ok := d.Next()
	if !ok {
		t.Fatal("expected a block after feeding the remainder")
	}
	m, err := Decode(b.Payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.(*CycleMsg).Cycle != 1 {
		t.Errorf("cycle = %d, want 1", m.(*CycleMsg).Cycle)
	}
}

func TestDecoderSkipsGarbage(t *testing.T) {
	stream := []byte("I (12) boot: text before telemetry\n")
	stream = append(stream, encodeCycle(0, 1)...)
	stream = append(stream, 0x00, 0x13, 0x99)
	stream = append(stream, encodeCycle(1, 2)...)

	d := NewDecoder()
	d.Feed(stream)

	var cycles []uint32
	for {
		b, ok := d.Next()
		if !ok {
			break
		}
		m, err := Decode(b.Payload)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		cycles = append(cycles, m.(*CycleMsg).Cycle)
	}

	if len(cycles) != 2 || cycles[0] != 1 || cycles[1] != 2 {
		t.Errorf("decoded cycles %v, want [1 2]", cycles)
	}
	if d.Dropped == 0 {
		t.Error("expected dropped bytes to be counted")
	}
}

func TestDecoderRejectsCorruptBlock(t *testing.T) {
	bad := encodeCycle(0, 1)
	bad[3] ^= 0x01
	good := encodeCycle(1, 2)

	d := NewDecoder()
	d.Feed(append(bad, good...))

	b, ok := d.Next()
	if !ok {
		t.Fatal("expected the intact block to decode")
	}
	m, _ := Decode(b.Payload)
	if m.(*CycleMsg).Cycle != 2 {
		t.Errorf("cycle = %d, want 2", m.(*CycleMsg).Cycle)
	}
	if d.CRCErrors == 0 {
		t.Error("expected the corrupt block to count as a CRC error")
	}
}

func TestDecoderCountsSequenceGaps(t *testing.T) {
	d := NewDecoder()
	d.Feed(encodeCycle(0, 1))
	d.Feed(encodeCycle(2, 2))
	for {
		if _, ok := d.Next(); !ok {
			break
		}
	}
	if d.SeqGaps != 1 {
		t.Errorf("SeqGaps = %d, want 1", d.SeqGaps)
	}
}

func TestDecoderLongestLogBlocks(t *testing.T) {
	tag := "flash-partition-scan"
	for n := 80; n <= 120; n++ {
		text := make([]byte, n)
		for i := range text {
			text[i] = 'a' + byte(i%26)
		}

		var f Frame
		(&LogMsg{Level: 1, UptimeMS: 1234, Tag: tag, Text: string(text)}).Encode(&f)
		block := f.Finish(0)
		if block[PositionLen] >= SyncByte {
			t.Fatalf("text %d: length byte 0x%02X collides with sync", n, block[PositionLen])
		}

		d := NewDecoder()
		d.Feed(block)
		b, ok := d.Next()
		if !ok {
			t.Fatalf("text %d: %d-byte block not decoded, dropped=%d", n, len(block), d.Dropped)
		}
		m, err := Decode(b.Payload)
		if err != nil {
			t.Fatalf("text %d: Decode: %v", n, err)
		}
		if m.(*LogMsg).Tag != tag {
			t.Errorf("text %d: tag = %q", n, m.(*LogMsg).Tag)
		}
	}
}
