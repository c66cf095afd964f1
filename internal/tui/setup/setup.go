//go:build !notui

package setup

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/BakeLens/galley/internal/tui"
	"github.com/BakeLens/galley/internal/tui/banner"
)

// RunSetupWithPort runs the setup prompts with a custom default API port.
// Uses huh forms for interactive input when a TTY is available.
// Falls back to plain mode for non-interactive contexts.
func RunSetupWithPort(defaultRoot string, defaultPort int) (Config, error) {
	fmt.Println()
	banner.PrintBanner("")
	fmt.Println()

	if tui.IsPlainMode() {
		return runSetupReader(defaultRoot, defaultPort)
	}
	return runSetupForm(defaultRoot, defaultPort)
}

// galleyTheme returns a huh theme using the Galley maritime color palette.
func galleyTheme() *huh.Theme {
	t := huh.ThemeBase()

	// Map Galley colors to huh theme
	t.Focused.Base = t.Focused.Base.BorderForeground(tui.ColorPrimary)
	t.Focused.Card = t.Focused.Base
	t.Focused.Title = t.Focused.Title.Foreground(tui.ColorPrimary).Bold(true)
	t.Focused.NoteTitle = t.Focused.NoteTitle.Foreground(tui.ColorPrimary).Bold(true).MarginBottom(1)
	t.Focused.Description = t.Focused.Description.Foreground(tui.ColorMuted)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(tui.ColorError)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(tui.ColorError)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(tui.ColorAccent).SetString(tui.IconCheck + " ")
	t.Focused.NextIndicator = t.Focused.NextIndicator.Foreground(tui.ColorAccent)
	t.Focused.PrevIndicator = t.Focused.PrevIndicator.Foreground(tui.ColorAccent)
	t.Focused.Option = t.Focused.Option.Foreground(lipgloss.AdaptiveColor{Light: "235", Dark: "252"})
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(tui.ColorSuccess)
	t.Focused.SelectedPrefix = lipgloss.NewStyle().Foreground(tui.ColorSuccess).SetString(tui.IconCheck + " ")
	t.Focused.UnselectedPrefix = lipgloss.NewStyle().Foreground(tui.ColorMuted).SetString(tui.IconCircle + " ")
	t.Focused.FocusedButton = t.Focused.FocusedButton.Foreground(lipgloss.AdaptiveColor{Light: "#FDF8EC", Dark: "#10181B"}).Background(tui.ColorAccent).Bold(true)
	t.Focused.BlurredButton = t.Focused.BlurredButton.Foreground(lipgloss.AdaptiveColor{Light: "235", Dark: "252"}).Background(lipgloss.AdaptiveColor{Light: "252", Dark: "237"})
	t.Focused.Next = t.Focused.FocusedButton

	t.Focused.TextInput.Cursor = t.Focused.TextInput.Cursor.Foreground(tui.ColorSuccess)
	t.Focused.TextInput.Placeholder = t.Focused.TextInput.Placeholder.Foreground(tui.ColorMuted)
	t.Focused.TextInput.Prompt = t.Focused.TextInput.Prompt.Foreground(tui.ColorAccent)

	// Blurred styles (when field is not focused)
	t.Blurred = t.Focused
	t.Blurred.Base = t.Focused.Base.BorderStyle(lipgloss.HiddenBorder())
	t.Blurred.Card = t.Blurred.Base
	t.Blurred.NextIndicator = lipgloss.NewStyle()
	t.Blurred.PrevIndicator = lipgloss.NewStyle()

	// Group title/description styles require huh >= v0.7 (Theme.Group is a
	// plain container style in v0.6 and group titles are not rendered).

	return t
}

// runSetupForm runs the interactive huh form-based wizard.
func runSetupForm(defaultRoot string, defaultPort int) (Config, error) {
	cfg := Config{
		Port:           defaultPort,
		AuditEnabled:   true,
		RetentionDays:  30,
		MaxConcurrency: 5,
	}

	// Form field values (huh binds to pointers)
	var mode = "auto"
	var workspaceRoot = defaultRoot
	var encryptionKey string
	var showAdvanced bool
	var auditEnabled = true
	var retentionStr = "30"
	var disableBuiltin bool
	var concurrencyStr = "5"
	var portStr = strconv.Itoa(defaultPort)

	form := huh.NewForm(
		// Group 1: Workspace scope selection
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Workspace Root").
				Description("Which directory should commands be confined to?").
				Options(
					huh.NewOption("Auto — use the directory galley starts in", "auto"),
					huh.NewOption("Manual — specify a workspace root path", "manual"),
				).
				Value(&mode),
		).Title("Workspace"),

		// Group 2: Manual root settings (hidden in auto mode)
		huh.NewGroup(
			huh.NewInput().
				Title("Workspace Root").
				Description("Absolute path commands are confined to").
				Placeholder(defaultRoot).
				Value(&workspaceRoot).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("workspace root is required")
					}
					if !filepath.IsAbs(s) {
						return errors.New("must be an absolute path")
					}
					return nil
				}),
		).Title("Workspace Path").WithHideFunc(func() bool {
			return mode == "auto"
		}),

		// Group 3: Security
		huh.NewGroup(
			huh.NewInput().
				Title("DB Encryption Key").
				Description("Optional — protects audit database (min 16 chars, Enter to skip)").
				EchoMode(huh.EchoModePassword).
				Value(&encryptionKey).
				Validate(func(s string) error {
					if s != "" && len(s) < 16 {
						return errors.New("must be at least 16 characters")
					}
					return nil
				}),
		).Title("Security"),

		// Group 4: Advanced options toggle
		huh.NewGroup(
			huh.NewConfirm().
				Title("Configure advanced options?").
				Description("Audit, retention, allowlist, and session settings").
				Value(&showAdvanced),
		).Title("Advanced"),

		// Group 5: Advanced settings (hidden unless toggled)
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable audit logging?").
				Description("Record every execution decision and its output").
				Value(&auditEnabled),
			huh.NewInput().
				Title("Retention days").
				Description("How long to keep audit records (0 = forever)").
				Placeholder("30").
				Value(&retentionStr).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					days, err := strconv.Atoi(s)
					if err != nil {
						return errors.New("must be a number")
					}
					if days < 0 || days > 36500 {
						return errors.New("must be 0-36500")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Disable builtin allowlist?").
				Description("Only permit user-defined command entries").
				Value(&disableBuiltin),
			huh.NewInput().
				Title("Max concurrent sessions").
				Description("Upper bound on simultaneously running commands").
				Placeholder("5").
				Value(&concurrencyStr).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					n, err := strconv.Atoi(s)
					if err != nil {
						return errors.New("must be a number")
					}
					if n < 1 || n > 100 {
						return errors.New("must be 1-100")
					}
					return nil
				}),
			huh.NewInput().
				Title("API port").
				Description("Port for the control API server").
				Placeholder(strconv.Itoa(defaultPort)).
				Value(&portStr).
				Validate(validatePort),
		).Title("Advanced Settings").WithHideFunc(func() bool {
			return !showAdvanced
		}),
	).WithTheme(galleyTheme())

	err := form.Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			cfg.Canceled = true
			return cfg, nil
		}
		return cfg, fmt.Errorf("setup form error: %w", err)
	}

	// Map form values to config
	cfg.AutoRoot = mode == "auto"
	if !cfg.AutoRoot {
		cfg.WorkspaceRoot = workspaceRoot
	}
	cfg.EncryptionKey = encryptionKey

	if showAdvanced {
		cfg.AuditEnabled = auditEnabled
		cfg.DisableBuiltin = disableBuiltin
		if days, err := strconv.Atoi(retentionStr); err == nil {
			cfg.RetentionDays = days
		}
		if n, err := strconv.Atoi(concurrencyStr); err == nil {
			cfg.MaxConcurrency = n
		}
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Port = port
		}
	}

	// Print summary
	fmt.Println()
	if cfg.AutoRoot {
		tui.PrintInfo("Workspace root: the directory galley starts in")
	} else {
		tui.PrintInfo("Workspace root: " + cfg.WorkspaceRoot)
	}

	return cfg, nil
}

// validatePort validates a port number string.
func validatePort(s string) error {
	if s == "" {
		return nil
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("must be a number")
	}
	if port < 1 || port > 65535 {
		return errors.New("must be 1-65535")
	}
	return nil
}
