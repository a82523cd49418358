package echo

// Recorder receives connection-level events. Implementations must be safe
// for concurrent use; every handler reports to the same Recorder.
type Recorder interface {
	ConnectionAccepted()
	AcceptFailed(err error)
	ConnectionClosed(bytes int64, err error)
}

type nopRecorder struct{}

func (nopRecorder) ConnectionAccepted()           {}
func (nopRecorder) AcceptFailed(error)            {}
func (nopRecorder) ConnectionClosed(int64, error) {}
