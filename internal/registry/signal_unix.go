package registry

import "os"

// interruptSignal is the graceful-termination signal sent before a worker
// is force-killed.
func interruptSignal() os.Signal {
	return os.Interrupt
}
