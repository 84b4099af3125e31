package session

// Permission is the microphone permission status.
type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// State is a point-in-time copy of the controller's state. It is safe to
// keep and read from any goroutine.
type State struct {
	SessionID         string
	Version           uint64 // increases on every change; observers drop older snapshots
	Mounted           bool
	Listening         bool
	Permission        Permission
	Connected         bool
	Loading           bool
	Error             string
	CurrentSuggestion string
	History           []string
	LastArtifact      string // location of the last stopped recording
}

// CanToggle reports whether a toggle command would be accepted.
func (s State) CanToggle() bool {
	return s.Mounted && s.Permission == PermissionGranted && !s.Loading
}
