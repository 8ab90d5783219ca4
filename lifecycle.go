package nimbus

import "fmt"

type phase int

const (
	phaseOpen phase = iota
	phaseClosing
	phaseClosed
)

func (p phase) String() string {
	switch p {
	case phaseOpen:
		return "open"
	case phaseClosing:
		return "closing"
	case phaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type transition struct {
	from, to phase
}

// lifecycle enforces the session transitions. Callers hold the session lock.
type lifecycle struct {
	current  phase
	allowed  map[transition]string
	onChange func(from, to phase, name string)
}

func newLifecycle(on func(from, to phase, name string)) *lifecycle {
	return &lifecycle{
		current: phaseOpen,
		allowed: map[transition]string{
			{phaseOpen, phaseClosing}:   "shutdown",
			{phaseClosing, phaseClosed}: "release",
		},
		onChange: on,
	}
}

func (l *lifecycle) transitionTo(to phase) error {
	name, ok := l.allowed[transition{l.current, to}]
	if !ok {
		return fmt.Errorf("invalid session transition: %s -> %s", l.current, to)
	}
	from := l.current
	l.current = to
	if l.onChange != nil {
		l.onChange(from, to, name)
	}
	return nil
}
