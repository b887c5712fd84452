package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Queue errors
	ErrUnresolvableSource     = fmt.Errorf("source could not be resolved")
	ErrIndexOutOfRange        = fmt.Errorf("index out of range")
	ErrQueueCapacityExceeded  = fmt.Errorf("queue capacity exceeded")
	ErrSessionClosed          = fmt.Errorf("session closed")
	ErrSessionNotFound        = fmt.Errorf("session not found")
	ErrNothingPlaying         = fmt.Errorf("queue is empty")
	ErrRelatedTrackNotFound   = fmt.Errorf("no related track available")
	ErrPlaybackAlreadyRunning = fmt.Errorf("playback already running")

	// Transport errors
	ErrNetwork            = fmt.Errorf("network error")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
