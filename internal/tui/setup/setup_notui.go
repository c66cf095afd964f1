//go:build notui

package setup

import "fmt"

// RunSetupWithPort runs the setup prompts with a custom default API port (plain text, no TUI).
func RunSetupWithPort(defaultRoot string, defaultPort int) (Config, error) {
	fmt.Println()
	fmt.Println("GALLEY - Sandboxed Command Execution for AI Agents")
	fmt.Println()
	return runSetupReader(defaultRoot, defaultPort)
}
