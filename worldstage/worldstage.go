// Package worldstage tracks the lifecycle stage of a world and lets
// goroutines wait for a stage to be reached.
package worldstage

import "sync"

type Stage string

const (
	Init         Stage = "Init"         // The default stage of world; registration happens here
	Starting     Stage = "Starting"     // World is moved to this stage after StartSimulation() is called
	Ready        Stage = "Ready"        // World state is loaded and the world is ready to tick
	Running      Stage = "Running"      // World is moved to this stage when the first tick executes
	ShuttingDown Stage = "ShuttingDown" // World is moved to this stage when it receives a shutdown signal
	ShutDown     Stage = "ShutDown"     // World is moved to this stage when it has successfully shut down
)

type Manager struct {
	mu        sync.Mutex
	current   Stage
	notifiers map[Stage]chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		current:   Init,
		notifiers: make(map[Stage]chan struct{}),
	}
}

func (m *Manager) Current() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) Store(stage Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(stage)
}

// CompareAndSwap moves to newStage only if the current stage is oldStage.
func (m *Manager) CompareAndSwap(oldStage, newStage Stage) (swapped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != oldStage {
		return false
	}
	m.store(newStage)
	return true
}

// NotifyOnStage returns a channel that is closed when the given stage is
// reached. If the world is already at that stage, the returned channel is
// already closed.
func (m *Manager) NotifyOnStage(stage Stage) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := m.notifier(stage)
	if m.current == stage {
		m.closeIfOpen(ch)
	}
	return ch
}

func (m *Manager) store(stage Stage) {
	m.current = stage
	m.closeIfOpen(m.notifier(stage))
}

func (m *Manager) notifier(stage Stage) chan struct{} {
	ch, ok := m.notifiers[stage]
	if !ok {
		ch = make(chan struct{})
		m.notifiers[stage] = ch
	}
	return ch
}

func (m *Manager) closeIfOpen(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}
