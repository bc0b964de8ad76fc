// Package progress reports the advance of long computations such as prime
// generation, encryption of long messages or the shuffling of a collection.
//
// Operations accept a Sink, which may be nil. They open a subtask with the
// number of steps they expect and tick once per step.
package progress

import (
	"sync"

	"go.dedis.ch/onet/v3/log"
)

// Sink receives progress. Subtask starts a nested task expected to last
// expectedTicks ticks, or an unknown number when expectedTicks <= 0.
type Sink interface {
	Subtask(name string, expectedTicks int) Sink
	Tick()
}

type noop struct{}

func (noop) Subtask(string, int) Sink { return noop{} }
func (noop) Tick()                    {}

// Start opens a subtask of sink, or returns a sink that drops everything
// when sink is nil.
func Start(sink Sink, name string, expectedTicks int) Sink {
	if sink == nil {
		return noop{}
	}
	return sink.Subtask(name, expectedTicks)
}

type tickCallback struct {
	fn    func(*Monitor)
	every int
}

type percentCallback struct {
	fn   func(*Monitor)
	span float64
	next float64
}

// Monitor is a Sink keeping track of a tree of tasks. Callbacks registered
// on a monitor are inherited by the subtasks created after registration.
type Monitor struct {
	sync.Mutex
	name     string
	parent   *Monitor
	expected int
	ticks    int
	current  *Monitor

	onTick   []tickCallback
	onPct    []*percentCallback
	onChange []func(*Monitor)
}

// NewMonitor returns the root monitor of a task.
func NewMonitor(name string, expectedTicks int) *Monitor {
	return &Monitor{name: name, expected: expectedTicks}
}

// Name returns the name of the task.
func (m *Monitor) Name() string {
	return m.name
}

// Path returns the names from the root task down to m, separated by '/'.
func (m *Monitor) Path() string {
	if m.parent == nil {
		return m.name
	}
	return m.parent.Path() + "/" + m.name
}

// Parent returns the parent task, nil for the root.
func (m *Monitor) Parent() *Monitor {
	return m.parent
}

// Current returns the last subtask started, or nil.
func (m *Monitor) Current() *Monitor {
	m.Lock()
	defer m.Unlock()
	return m.current
}

// Ticks returns the number of recorded ticks.
func (m *Monitor) Ticks() int {
	m.Lock()
	defer m.Unlock()
	return m.ticks
}

// Percent returns how much of the task is done, or 0 if the number of
// expected ticks is unknown.
func (m *Monitor) Percent() float64 {
	m.Lock()
	defer m.Unlock()
	return m.percent()
}

func (m *Monitor) percent() float64 {
	if m.expected <= 0 {
		return 0
	}
	return 100 * float64(m.ticks) / float64(m.expected)
}

// OnTick calls fn every `every` ticks of this task and of its future
// subtasks.
func (m *Monitor) OnTick(fn func(*Monitor), every int) {
	if every < 1 {
		every = 1
	}
	m.Lock()
	m.onTick = append(m.onTick, tickCallback{fn, every})
	m.Unlock()
}

// OnPercent calls fn each time the progress crosses a multiple of span
// percent. A single tick may trigger several calls.
func (m *Monitor) OnPercent(fn func(*Monitor), span float64) {
	m.Lock()
	m.onPct = append(m.onPct, &percentCallback{fn: fn, span: span, next: span})
	m.Unlock()
}

// OnTaskChange calls fn with every subtask started below m.
func (m *Monitor) OnTaskChange(fn func(*Monitor)) {
	m.Lock()
	m.onChange = append(m.onChange, fn)
	m.Unlock()
}

// Subtask implements Sink.
func (m *Monitor) Subtask(name string, expectedTicks int) Sink {
	return m.NewSubtask(name, expectedTicks)
}

// NewSubtask is Subtask returning the concrete type.
func (m *Monitor) NewSubtask(name string, expectedTicks int) *Monitor {
	sub := NewMonitor(name, expectedTicks)
	sub.parent = m

	m.Lock()
	m.current = sub
	sub.onTick = append(sub.onTick, m.onTick...)
	for _, cb := range m.onPct {
		sub.onPct = append(sub.onPct, &percentCallback{fn: cb.fn, span: cb.span, next: cb.span})
	}
	sub.onChange = append(sub.onChange, m.onChange...)
	change := append([]func(*Monitor){}, m.onChange...)
	m.Unlock()

	log.Lvl4("starting task", sub.Path())
	for _, fn := range change {
		fn(sub)
	}
	return sub
}

// Tick records one step and runs the callbacks that are due.
func (m *Monitor) Tick() {
	m.Lock()
	m.ticks++
	ticks := m.ticks
	pct := m.percent()
	var due []func(*Monitor)
	for _, cb := range m.onTick {
		if ticks%cb.every == 0 {
			due = append(due, cb.fn)
		}
	}
	for _, cb := range m.onPct {
		for cb.span > 0 && cb.next <= pct {
			due = append(due, cb.fn)
			cb.next += cb.span
		}
	}
	m.Unlock()

	if m.expected > 0 && ticks == m.expected {
		log.Lvl3("task done:", m.Path())
	}
	for _, fn := range due {
		fn(m)
	}
}
