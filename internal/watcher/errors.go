package watcher

import "fmt"

// SetupError reports that the OS watch could not be established. It is fatal
// at startup: the server must not run silently without live reload.
type SetupError struct {
	Path string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("watch setup failed for %s: %v", e.Path, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}
