package hmr

// Phase is a step of the update cycle.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseDebounce
	PhaseFetch
	PhaseCapture
	PhaseReplace
	PhaseRestore
	PhaseReinitialize
	PhaseError
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDebounce:
		return "debounce"
	case PhaseFetch:
		return "fetch"
	case PhaseCapture:
		return "capture"
	case PhaseReplace:
		return "replace"
	case PhaseRestore:
		return "restore"
	case PhaseReinitialize:
		return "reinitialize"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}
