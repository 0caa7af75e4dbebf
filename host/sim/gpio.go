package sim

import (
	"sync"

	"flashjitter/core"
)

// DefaultEdgeLimit bounds how many transitions are kept per pin.
const DefaultEdgeLimit = 4096

// Edge is one recorded pin transition.
type Edge struct {
	At    uint64 // core.Uptime() when the pin was written
	Level bool
}

// LineMirror forwards pin writes to real hardware.
type LineMirror interface {
	Set(pin core.GPIOPin, level bool) error
	Close() error
}

// GPIO is a recording pin driver. It is safe to use from the simulated
// interrupt and the foreground at the same time.
type GPIO struct {
	mu        sync.Mutex
	outputs   core.PinMask
	levels    core.PinMask
	edges     map[core.GPIOPin][]Edge
	writes    map[core.GPIOPin]uint64
	edgeLimit int
	mirror    LineMirror
}

// NewGPIO returns a driver with no pins configured.
func NewGPIO() *GPIO {
	return &GPIO{
		edges:     make(map[core.GPIOPin][]Edge),
		writes:    make(map[core.GPIOPin]uint64),
		edgeLimit: DefaultEdgeLimit,
	}
}

// SetMirror forwards every write to m as well. Pass nil to stop.
func (g *GPIO) SetMirror(m LineMirror) {
	g.mu.Lock()
	g.mirror = m
	g.mu.Unlock()
}

// SetEdgeLimit changes how many edges are kept per pin. Zero disables
// recording; the write counters still run.
func (g *GPIO) SetEdgeLimit(n int) {
	g.mu.Lock()
	g.edgeLimit = n
	g.mu.Unlock()
}

func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	if pin > core.MaxGPIOPin {
		return core.ErrInvalidPin
	}
	g.mu.Lock()
	g.outputs |= core.MaskOf(pin)
	g.mu.Unlock()
	return nil
}

func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.outputs.Has(pin) {
		return core.ErrInvalidPin
	}
	if value {
		g.levels |= core.MaskOf(pin)
	} else {
		g.levels &^= core.MaskOf(pin)
	}
	g.writes[pin]++
	if len(g.edges[pin]) < g.edgeLimit {
		g.edges[pin] = append(g.edges[pin], Edge{At: core.Uptime(), Level: value})
	}
	if g.mirror != nil {
		return g.mirror.Set(pin, value)
	}
	return nil
}

func (g *GPIO) GetPin(pin core.GPIOPin) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pin > core.MaxGPIOPin {
		return false, core.ErrInvalidPin
	}
	return g.levels.Has(pin), nil
}

// IsOutput reports whether pin was configured as an output.
func (g *GPIO) IsOutput(pin core.GPIOPin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outputs.Has(pin)
}

// Writes returns how many times pin was written.
func (g *GPIO) Writes(pin core.GPIOPin) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.writes[pin]
}

// Edges returns a copy of the recorded writes to pin, oldest first.
func (g *GPIO) Edges(pin core.GPIOPin) []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Edge, len(g.edges[pin]))
	copy(out, g.edges[pin])
	return out
}

// ResetEdges clears the recorded edges and write counters.
func (g *GPIO) ResetEdges() {
	g.mu.Lock()
	g.edges = make(map[core.GPIOPin][]Edge)
	g.writes = make(map[core.GPIOPin]uint64)
	g.mu.Unlock()
}

// HighIntervals pairs rising and falling edges of pin and returns how long
// each high phase lasted, in microseconds.
func (g *GPIO) HighIntervals(pin core.GPIOPin) []uint64 {
	var out []uint64
	var rise uint64
	high := false
	for _, e := range g.Edges(pin) {
		switch {
		case e.Level && !high:
			rise, high = e.At, true
		case !e.Level && high:
			out = append(out, e.At-rise)
			high = false
		}
	}
	return out
}
