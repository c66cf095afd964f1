//go:build notui

package spinner

// RunWithSpinner runs fn directly without animation in notui builds.
func RunWithSpinner(message string, successMsg string, fn func() error) error {
	return RunPlain(message, successMsg, fn)
}
