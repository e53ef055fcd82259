package proximity

// State is the per-entity proximity state.
type State int

const (
	// StateIdle means the observer has never come within capture range.
	StateIdle State = iota
	// StateNear means the observer is within range and the info surface shows.
	StateNear
	// StateFar means the observer visited and then left past the hide radius.
	StateFar
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNear:
		return "near"
	case StateFar:
		return "far"
	default:
		return "unknown"
	}
}

// Transition reports what a trigger step decided.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionEntered
	TransitionExited
)

// Default interaction radii in local units.
const (
	DefaultCaptureRadius = 3
	DefaultHideRadius    = 10
)

// Trigger is a two-radius hysteresis state machine. Entry happens inside
// the capture radius, exit only past the larger hide radius, so an observer
// straddling the capture boundary never flickers the info surface.
type Trigger struct {
	captureRadius float64
	hideRadius    float64
	state         State
}

// NewTrigger creates a trigger in StateIdle. Non-positive radii fall back
// to the defaults, and the hide radius is raised to at least the capture
// radius so the hysteresis band cannot invert.
func NewTrigger(captureRadius, hideRadius float64) *Trigger {
	if captureRadius <= 0 {
		captureRadius = DefaultCaptureRadius
	}
	if hideRadius <= 0 {
		hideRadius = DefaultHideRadius
	}
	if hideRadius < captureRadius {
		hideRadius = captureRadius
	}
	return &Trigger{captureRadius: captureRadius, hideRadius: hideRadius}
}

// State returns the current proximity state.
func (t *Trigger) State() State {
	return t.state
}

// Step advances the state machine with the current observer distance.
func (t *Trigger) Step(distance float64) Transition {
	switch t.state {
	case StateNear:
		if distance > t.hideRadius {
			t.state = StateFar
			return TransitionExited
		}
	default:
		if distance <= t.captureRadius {
			t.state = StateNear
			return TransitionEntered
		}
	}
	return TransitionNone
}
