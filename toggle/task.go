package toggle

import "context"

// Task is one in-flight toggle request started by Click.
type Task struct {
	action Action
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

func (t *Task) Action() Action {
	return t.action
}

// Done is closed once the request and any refresh have finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Err returns the task's error, or nil while it is still running.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Cancel aborts the request if it has not completed yet.
func (t *Task) Cancel() {
	t.cancel()
}
