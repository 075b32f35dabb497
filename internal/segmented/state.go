package segmented

type State int32

const (
	StateIdle State = iota
	StateResolving
	StatePlanning
	StateFetching
	StateAssembling
	StateCompleted
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateResolving:  "resolving",
	StatePlanning:   "planning",
	StateFetching:   "fetching",
	StateAssembling: "assembling",
	StateCompleted:  "completed",
	StateFailed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// canTransition allows only forward moves along the pipeline, plus Failed
// from any working stage.
func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return from != StateIdle
	}
	return to == from+1
}
