//go:build notui

package progress

// RunSteps runs the steps with the plain sequential renderer.
func RunSteps(steps []Step) error {
	return RunStepsPlain(steps)
}
