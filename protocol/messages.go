package protocol

import "errors"

var ErrUnknownMessage = errors.New("unknown message id")

// Mount status codes carried by MountMsg.
const (
	MountOK        = 0
	MountGeneric   = 1
	MountNotFound  = 2
	MountDriver    = 3
	MountFormatted = 4
)

// LogMsg carries one log line.
type LogMsg struct {
	Level    uint8
	UptimeMS uint32
	Tag      string
	Text     string
}

// MountMsg reports the outcome of mounting the flash filesystem.
type MountMsg struct {
	Status uint8
	Total  uint32
	Used   uint32
}

// CycleMsg reports one file read cycle.
type CycleMsg struct {
	Cycle     uint32
	StartUS   uint32 // low 32 bits of the cycle start uptime
	ElapsedUS uint32
	Opened    bool
	Reads     uint32
	Bytes     uint32
}

// TimerMsg reports the periodic timer counters.
type TimerMsg struct {
	Firings      uint32
	Level        bool
	MaxLatency   uint32 // ticks between alarm and callback entry
	AlarmTicks   uint32
	ResolutionHz uint32
}

func (m *LogMsg) Encode(f *Frame) {
	f.Begin(MsgLog)
	f.PutUint(uint32(m.Level))
	f.PutUint(m.UptimeMS)
	f.PutString(m.Tag)
	f.PutString(m.Text)
}

func (m *MountMsg) Encode(f *Frame) {
	f.Begin(MsgMount)
	f.PutUint(uint32(m.Status))
	f.PutUint(m.Total)
	f.PutUint(m.Used)
}

func (m *CycleMsg) Encode(f *Frame) {
	f.Begin(MsgCycle)
	f.PutUint(m.Cycle)
	f.PutUint(m.StartUS)
	f.PutUint(m.ElapsedUS)
	f.PutBool(m.Opened)
	f.PutUint(m.Reads)
	f.PutUint(m.Bytes)
}

func (m *TimerMsg) Encode(f *Frame) {
	f.Begin(MsgTimer)
	f.PutUint(m.Firings)
	f.PutBool(m.Level)
	f.PutUint(m.MaxLatency)
	f.PutUint(m.AlarmTicks)
	f.PutUint(m.ResolutionHz)
}

// Decode parses a block payload into one of *LogMsg, *MountMsg, *CycleMsg or
// *TimerMsg.
func Decode(payload []byte) (interface{}, error) {
	data := payload
	id, err := ReadUVLQ(&data)
	if err != nil {
		return nil, err
	}

	r := fieldReader{data: data}
	switch id {
	case MsgLog:
		m := &LogMsg{}
		m.Level = uint8(r.uint())
		m.UptimeMS = r.uint()
		m.Tag = r.string()
		m.Text = r.string()
		return m, r.err
	case MsgMount:
		m := &MountMsg{}
		m.Status = uint8(r.uint())
		m.Total = r.uint()
		m.Used = r.uint()
		return m, r.err
	case MsgCycle:
		m := &CycleMsg{}
		m.Cycle = r.uint()
		m.StartUS = r.uint()
		m.ElapsedUS = r.uint()
		m.Opened = r.bool()
		m.Reads = r.uint()
		m.Bytes = r.uint()
		return m, r.err
	case MsgTimer:
		m := &TimerMsg{}
		m.Firings = r.uint()
		m.Level = r.bool()
		m.MaxLatency = r.uint()
		m.AlarmTicks = r.uint()
		m.ResolutionHz = r.uint()
		return m, r.err
	}
	return nil, ErrUnknownMessage
}

// fieldReader keeps the first error so decoders read straight through.
type fieldReader struct {
	data []byte
	err  error
}

func (r *fieldReader) uint() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := ReadUVLQ(&r.data)
	r.err = err
	return v
}

func (r *fieldReader) bool() bool {
	return r.uint() != 0
}

func (r *fieldReader) string() string {
	if r.err != nil {
		return ""
	}
	s, err := ReadString(&r.data)
	r.err = err
	return s
}
