package setup

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/BakeLens/galley/internal/tui"
)

// validate is the shared validator instance
var validate = validator.New()

// Config holds the configuration collected from the setup prompts
type Config struct {
	// Mode
	AutoRoot bool // confine commands to the process working directory
	// Basic
	WorkspaceRoot string `validate:"required_if=AutoRoot false"`
	EncryptionKey string `validate:"omitempty,min=16"`
	// Advanced - Audit
	AuditEnabled  bool
	RetentionDays int `validate:"min=0,max=36500"`
	// Advanced - Allowlist
	DisableBuiltin bool
	// Advanced - Sessions and port
	MaxConcurrency int `validate:"min=1,max=100"`
	Port           int `validate:"min=1,max=65535"`
	// State
	Canceled bool
}

// Validate validates the setup configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	// No tag expresses this one: the root only has to be absolute when
	// auto mode is off.
	if !c.AutoRoot && !filepath.IsAbs(c.WorkspaceRoot) {
		return errors.New("workspace root must be an absolute path")
	}
	return nil
}

// ValidationErrors returns human-readable validation errors
func (c *Config) ValidationErrors() []string {
	var msgs []string
	if err := validate.Struct(c); err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			switch err.Field() {
			case "WorkspaceRoot":
				msgs = append(msgs, "Workspace root is required unless auto mode is on")
			case "EncryptionKey":
				msgs = append(msgs, "Encryption key must be at least 16 characters")
			case "Port":
				msgs = append(msgs, "Port must be between 1 and 65535")
			case "RetentionDays":
				msgs = append(msgs, "Retention days must be between 0 and 36500")
			case "MaxConcurrency":
				msgs = append(msgs, "Max concurrency must be between 1 and 100")
			default:
				msgs = append(msgs, fmt.Sprintf("%s: %s", err.Field(), err.Tag()))
			}
		}
		return msgs
	}
	if !c.AutoRoot && !filepath.IsAbs(c.WorkspaceRoot) {
		msgs = append(msgs, "Workspace root must be an absolute path")
	}
	return msgs
}

// DefaultPort should match config.DefaultConfig
const DefaultPort = 9191

// RunSetup runs the setup prompts and returns the configuration
func RunSetup(defaultRoot string) (Config, error) {
	return RunSetupWithPort(defaultRoot, DefaultPort)
}

// readPassword reads a password from the terminal without echoing.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // Fd() fits in int on all supported platforms
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(password), nil
	}

	// Fallback for non-terminal (piped input)
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(password), nil
}

// runSetupReader runs plain text prompts using bufio.Reader.
// Used as fallback when plain mode is active (piped, NO_COLOR, etc.)
// and as the sole implementation in notui builds.
func runSetupReader(defaultRoot string, defaultPort int) (Config, error) {
	reader := bufio.NewReader(os.Stdin)
	config := Config{
		Port:           defaultPort,
		AuditEnabled:   true,
		RetentionDays:  30,
		MaxConcurrency: 5,
	}

	fmt.Println(tui.Separator("Workspace"))
	fmt.Println()

	prompt := ">"
	fmt.Printf("  %s Confine commands to the startup directory? [Y/n]: ", prompt)
	modeAnswer, _ := reader.ReadString('\n')
	modeAnswer = strings.TrimSpace(strings.ToLower(modeAnswer))

	if modeAnswer == "" || modeAnswer == "y" || modeAnswer == "yes" { //nolint:goconst
		config.AutoRoot = true
		fmt.Println()
		tui.PrintInfo("Commands will be confined to the directory galley starts in")
		tui.PrintInfo("Override later with workspace.root in config.yaml")
		fmt.Println()
	} else {
		config.AutoRoot = false

		fmt.Printf("  %s Workspace root [%s]: ", prompt, defaultRoot)
		root, err := reader.ReadString('\n')
		if err != nil {
			return config, fmt.Errorf("failed to read workspace root: %w", err)
		}
		root = strings.TrimSpace(root)
		if root == "" {
			root = defaultRoot
		}
		config.WorkspaceRoot = root
	}

	fmt.Println(tui.Separator("Security"))
	fmt.Println()

	fmt.Printf("  %s DB Encryption Key (optional, press Enter to skip): ", prompt)
	dbKey, err := readPassword()
	if err != nil {
		return config, fmt.Errorf("failed to read DB key: %w", err)
	}
	config.EncryptionKey = dbKey
	fmt.Println()

	fmt.Println(tui.Separator("Advanced"))
	fmt.Println()
	fmt.Printf("  %s Configure advanced options? [y/N]: ", prompt)
	advAnswer, _ := reader.ReadString('\n')
	advAnswer = strings.TrimSpace(strings.ToLower(advAnswer))

	if advAnswer == "y" || advAnswer == "yes" {
		fmt.Println()

		fmt.Printf("  %s Enable audit logging? [Y/n]: ", prompt)
		auditAnswer, _ := reader.ReadString('\n')
		auditAnswer = strings.TrimSpace(strings.ToLower(auditAnswer))
		config.AuditEnabled = auditAnswer == "" || auditAnswer == "y" || auditAnswer == "yes"

		fmt.Printf("  %s Retention days (0=forever) [%d]: ", prompt, config.RetentionDays)
		retStr, _ := reader.ReadString('\n')
		retStr = strings.TrimSpace(retStr)
		if retStr != "" {
			if days, err := strconv.Atoi(retStr); err == nil && days >= 0 && days <= 36500 {
				config.RetentionDays = days
			}
		}

		fmt.Printf("  %s Disable builtin allowlist? [y/N]: ", prompt)
		builtinAnswer, _ := reader.ReadString('\n')
		builtinAnswer = strings.TrimSpace(strings.ToLower(builtinAnswer))
		config.DisableBuiltin = builtinAnswer == "y" || builtinAnswer == "yes"

		fmt.Printf("  %s Max concurrent sessions [%d]: ", prompt, config.MaxConcurrency)
		concStr, _ := reader.ReadString('\n')
		concStr = strings.TrimSpace(concStr)
		if concStr != "" {
			if n, err := strconv.Atoi(concStr); err == nil && n >= 1 && n <= 100 {
				config.MaxConcurrency = n
			}
		}

		fmt.Printf("  %s API port [%d]: ", prompt, config.Port)
		portStr, _ := reader.ReadString('\n')
		portStr = strings.TrimSpace(portStr)
		if portStr != "" {
			if port, err := strconv.Atoi(portStr); err == nil && port >= 1 && port <= 65535 {
				config.Port = port
			}
		}

	}

	fmt.Println()
	return config, nil
}
