package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BakeLens/galley/internal/allowlist"
	"github.com/BakeLens/galley/internal/api"
	"github.com/BakeLens/galley/internal/audit"
	"github.com/BakeLens/galley/internal/completion"
	"github.com/BakeLens/galley/internal/config"
	"github.com/BakeLens/galley/internal/daemon"
	"github.com/BakeLens/galley/internal/earlyinit"
	"github.com/BakeLens/galley/internal/logger"
	"github.com/BakeLens/galley/internal/session"
	"github.com/BakeLens/galley/internal/stream"
	"github.com/BakeLens/galley/internal/tools"
	"github.com/BakeLens/galley/internal/tui"
	"github.com/BakeLens/galley/internal/tui/banner"
	"github.com/BakeLens/galley/internal/tui/dashboard"
	"github.com/BakeLens/galley/internal/tui/entrylist"
	"github.com/BakeLens/galley/internal/tui/logview"
	"github.com/BakeLens/galley/internal/tui/progress"
	"github.com/BakeLens/galley/internal/tui/setup"
	"github.com/BakeLens/galley/internal/tui/spinner"
	"github.com/BakeLens/galley/internal/types"
	"github.com/BakeLens/galley/internal/workspace"
)

// Version is set at build time via ldflags: -X main.Version=x.y.z
var Version = "1.0.0"

var log = logger.New("main")

// =============================================================================
// API client (CLI side of the control socket)
// =============================================================================

// apiClient reaches the running daemon over its unix socket (named pipe
// on Windows). The port file under the data directory tells us which
// socket to dial.
type apiClient struct {
	http       *http.Client
	base       string
	socketPath string
}

// newAPIClient wires a client to the daemon socket. It fails when no
// port file exists, i.e. no daemon has been started.
func newAPIClient() (*apiClient, error) {
	port, err := daemon.ReadPort()
	if err != nil {
		return nil, fmt.Errorf("galley is not running")
	}
	socketPath := daemon.SocketFile(port)
	return &apiClient{
		http:       api.SocketClient(socketPath),
		base:       api.BaseURL,
		socketPath: socketPath,
	}, nil
}

// mustAPIClient exits with guidance when no daemon is reachable.
func mustAPIClient() *apiClient {
	client, err := newAPIClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: galley is not running")
		fmt.Fprintln(os.Stderr, "Start it first with: galley start")
		os.Exit(1)
	}
	return client
}

func (c *apiClient) get(path string) ([]byte, int, error) {
	resp, err := c.http.Get(c.base + path) //nolint:noctx // short one-shot CLI request
	if err != nil {
		return nil, 0, fmt.Errorf("galley is not running")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return body, resp.StatusCode, err
}

func (c *apiClient) post(path string, payload any) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		body = bytes.NewReader(data)
	}
	resp, err := c.http.Post(c.base+path, "application/json", body) //nolint:noctx // short one-shot CLI request
	if err != nil {
		return nil, 0, fmt.Errorf("galley is not running")
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return data, resp.StatusCode, err
}

func (c *apiClient) delete(path string) ([]byte, int, error) {
	req, err := http.NewRequest(http.MethodDelete, c.base+path, nil) //nolint:noctx // short one-shot CLI request
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("galley is not running")
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return data, resp.StatusCode, err
}

// apiError extracts the {"error": ...} message from a non-2xx response.
func apiError(body []byte, status int) error {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return errors.New(e.Error)
	}
	return fmt.Errorf("unexpected API response (HTTP %d)", status)
}

// =============================================================================
// Entry point
// =============================================================================

func main() {
	// Shell completion first: with COMP_LINE set the process exists only
	// to answer the shell.
	if completion.Run() {
		return
	}

	// earlyinit muted TERM before the charmbracelet inits could probe a
	// detached TTY. That window is over; restore the real value so styled
	// output renders.
	if earlyinit.Foreground && earlyinit.OrigTERM != "" {
		os.Setenv("TERM", earlyinit.OrigTERM)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "start":
			runStart(os.Args[2:])
			return
		case "stop":
			runStop()
			return
		case "status":
			runStatus(os.Args[2:])
			return
		case "logs":
			runLogs(os.Args[2:])
			return
		case "exec":
			runExec(os.Args[2:])
			return
		case "check":
			runCheck(os.Args[2:])
			return
		case "sessions":
			runSessions(os.Args[2:])
			return
		case "kill":
			runKill(os.Args[2:])
			return
		case "allow-add":
			runAllowAdd(os.Args[2:])
			return
		case "allow-list":
			runAllowList(os.Args[2:])
			return
		case "allow-reload":
			runAllowReload()
			return
		case "allow-lint":
			runAllowLint(os.Args[2:])
			return
		case "init":
			runInit()
			return
		case "top":
			runTop()
			return
		case "completion":
			runCompletion(os.Args[2:])
			return
		case "uninstall":
			runUninstall()
			return
		case "help", "-h", "--help":
			printUsage()
			return
		case "version", "-v", "--version":
			runVersion(os.Args[2:])
			return
		}
	}

	// No subcommand - show help
	printUsage()
}

// =============================================================================
// start / daemon
// =============================================================================

// runStart handles the start subcommand
func runStart(args []string) {
	if running, pid := daemon.IsRunning(); running {
		fmt.Printf("Galley is already running [PID %d]\n", pid)
		os.Exit(1)
	}

	startFlags := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := startFlags.String("config", config.DefaultConfigPath(), "Path to configuration file")
	workspaceRoot := startFlags.String("workspace-root", "", "Directory commands are confined to (default: current directory)")
	port := startFlags.Int("port", 0, "Control API port (default from config)")
	logLevel := startFlags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	noColor := startFlags.Bool("no-color", false, "Disable colored output")
	disableBuiltin := startFlags.Bool("disable-builtin", false, "Start with an empty builtin allowlist")
	maxConcurrency := startFlags.Int("max-concurrency", 0, "Concurrent session cap (default from config)")
	sanitizeEnv := startFlags.Bool("sanitize-env", false, "Start sessions from a minimal environment")
	auditEnabled := startFlags.Bool("audit", true, "Record executions in the audit database (--audit=false disables)")
	retentionDays := startFlags.Int("retention-days", 0, "Audit retention in days (0=forever)")

	// SECURITY: Environment variables are preferred over CLI flags for secrets
	dbKey := startFlags.String("db-key", "", "Audit database encryption key (prefer DB_KEY env var)")

	foreground := startFlags.Bool("foreground", false, "Run in the foreground instead of daemonizing")
	daemonMode := startFlags.Bool("daemon-mode", false, "Internal: indicates running as daemon")
	_ = startFlags.Parse(args)

	// Boolean flags with true defaults need presence tracking, or the
	// default would clobber the config file value.
	passed := map[string]bool{}
	startFlags.Visit(func(f *flag.Flag) { passed[f.Name] = true })

	// SECURITY: DB_KEY from the environment wins over the flag; flags are
	// visible in process listings (ps auxww).
	secrets, err := config.LoadSecretsWithDefaults(*dbKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load secrets: %v\n", err)
		os.Exit(1)
	}
	if secrets.DBKey != "" {
		if err := secrets.ValidateDBKey(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid encryption key: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Apply command-line overrides
	if *workspaceRoot != "" {
		cfg.Workspace.Root = *workspaceRoot
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Server.LogLevel = types.LogLevel(*logLevel)
	}
	if *noColor {
		cfg.Server.NoColor = true
	}
	if *disableBuiltin {
		cfg.Commands.DisableBuiltin = true
	}
	if *maxConcurrency > 0 {
		cfg.Sessions.MaxConcurrency = *maxConcurrency
	}
	if *sanitizeEnv {
		cfg.Sessions.SanitizeEnv = true
	}
	if passed["audit"] {
		cfg.Audit.Enabled = *auditEnabled
	}
	if passed["retention-days"] {
		cfg.Audit.RetentionDays = *retentionDays
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(1)
	}

	if *daemonMode || daemon.IsDaemonMode() || *foreground {
		// We're the server process - run it
		runDaemon(cfg, secrets.DBKey, *foreground)
		return
	}

	if cfg.Server.NoColor {
		tui.SetPlainMode(true)
	}
	banner.PrintBanner(Version)

	root, err := cfg.ResolveWorkspaceRoot()
	if err != nil {
		tui.PrintError(fmt.Sprintf("Workspace root: %v", err))
		os.Exit(1)
	}

	// The daemon child re-parses the same flags; the key travels through
	// its environment instead of argv.
	daemonArgs := append([]string{"start"}, scrubSecretFlags(args)...)
	if secrets.DBKey != "" {
		os.Setenv("DB_KEY", secrets.DBKey)
	}

	var pid int
	steps := []progress.Step{
		{
			Label:      "Validating workspace root",
			SuccessMsg: fmt.Sprintf("Workspace root: %s", root),
			Fn: func() error {
				info, err := os.Stat(root)
				if err != nil {
					return err
				}
				if !info.IsDir() {
					return fmt.Errorf("%s is not a directory", root)
				}
				return nil
			},
		},
		{
			Label:      "Starting galley daemon",
			SuccessMsg: "Daemon started",
			Fn: func() error {
				p, err := daemon.Daemonize(daemonArgs)
				if err != nil {
					return err
				}
				pid = p
				return nil
			},
		},
		{
			Label:      "Waiting for the control API",
			SuccessMsg: fmt.Sprintf("Control API on 127.0.0.1:%d", cfg.Server.Port),
			Fn:         func() error { return waitForHealth(3 * time.Second) },
		},
	}
	if err := progress.RunSteps(steps); err != nil {
		fmt.Fprintln(os.Stderr)
		tui.PrintError(fmt.Sprintf("Failed to start galley: %v", err))
		fmt.Fprintf(os.Stderr, "  Logs: %s\n", daemon.LogFileDisplay())
		os.Exit(1)
	}

	fmt.Println()
	tui.PrintSuccess(fmt.Sprintf("Galley started [PID %d]", pid))
	fmt.Printf("  Workspace: %s\n", root)
	fmt.Printf("  Logs:      %s\n", daemon.LogFileDisplay())
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  galley exec <cmd>  - Run a command in the sandbox")
	fmt.Println("  galley status      - Daemon status and metrics")
	fmt.Println("  galley top         - Live session dashboard")
	fmt.Println("  galley stop        - Stop galley")
}

// scrubSecretFlags removes --db-key from forwarded args. The daemon
// child receives the key through its environment, never through argv.
func scrubSecretFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			name := strings.TrimLeft(args[i], "-")
			if name == "db-key" {
				i++ // skip the value
				continue
			}
			if strings.HasPrefix(name, "db-key=") {
				continue
			}
		}
		out = append(out, args[i])
	}
	return out
}

// waitForHealth polls the daemon health endpoint until it answers.
func waitForHealth(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if client, err := newAPIClient(); err == nil {
			if _, status, err := client.get("/health"); err == nil && status == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	if running, _ := daemon.IsRunning(); !running {
		return fmt.Errorf("daemon exited during startup")
	}
	return fmt.Errorf("control API did not come up within %s", timeout)
}

// runDaemon runs the actual server. Reached by the re-executed daemon
// child (--daemon-mode / GALLEY_DAEMON=1) and by --foreground runs.
func runDaemon(cfg *config.Config, dbKey string, foreground bool) {
	// The PID file doubles as the single-instance lock.
	if err := daemon.WritePID(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write PID file: %v\n", err)
		os.Exit(1)
	}
	defer daemon.CleanupPID()

	logger.SetGlobalLevelFromString(string(cfg.Server.LogLevel))
	// Color only makes sense for a foreground run on a terminal.
	logger.SetColored(foreground && !cfg.Server.NoColor)

	log.Info("Starting galley %s", Version)

	root, err := cfg.ResolveWorkspaceRoot()
	if err != nil {
		log.Error("Workspace root: %v", err)
		os.Exit(1)
	}
	validator, err := workspace.NewValidator(root)
	if err != nil {
		log.Error("Workspace root: %v", err)
		os.Exit(1)
	}
	if cfg.Workspace.AllowTmp {
		if err := validator.AllowTemp(); err != nil {
			log.Warn("Temp dir not admitted: %v", err)
		}
	}
	log.Info("Workspace root: %s", validator.Root())

	list, err := allowlist.NewList(allowlist.Config{
		UserDir:        cfg.Commands.UserDir,
		DisableBuiltin: cfg.Commands.DisableBuiltin,
	})
	if err != nil {
		log.Error("Failed to load allowlist: %v", err)
		os.Exit(1)
	}

	var watcher *allowlist.Watcher
	if cfg.Commands.Watch {
		watcher, err = allowlist.NewWatcher(list)
		if err != nil {
			log.Warn("Allowlist watcher unavailable: %v", err)
		} else if err := watcher.Start(); err != nil {
			log.Warn("Allowlist watcher failed to start: %v", err)
			watcher = nil
		}
	}
	defer func() {
		if watcher != nil {
			_ = watcher.Stop()
		}
	}()

	sessions := session.NewManager(session.Config{
		MaxConcurrency:   cfg.Sessions.MaxConcurrency,
		DefaultTimeoutMs: cfg.Sessions.DefaultTimeoutMs,
		MaxTimeoutMs:     cfg.Sessions.MaxTimeoutMs,
		SanitizeEnv:      cfg.Sessions.SanitizeEnv,
	})
	streamHandler := stream.NewHandler(stream.Config{})

	var store *audit.Store
	if cfg.Audit.Enabled {
		store, err = audit.NewStore(cfg.Audit.DBPath, dbKey, audit.Config{
			RetentionDays:  cfg.Audit.RetentionDays,
			CompressOutput: cfg.Audit.CompressOutput,
		})
		if err != nil {
			log.Error("Failed to open audit store: %v", err)
			os.Exit(1)
		}
		defer store.Close()
		if store.IsEncrypted() {
			log.Info("Audit store: %s (encrypted)", cfg.Audit.DBPath)
		} else {
			log.Info("Audit store: %s (set DB_KEY to encrypt)", cfg.Audit.DBPath)
		}
	} else {
		log.Info("Audit disabled")
	}

	deps := tools.Deps{
		Workspace:          validator,
		Allowlist:          list,
		Sessions:           sessions,
		Stream:             streamHandler,
		Gates:              gatesFromConfig(cfg),
		PreviewOutputLimit: cfg.Sessions.PreviewOutputLimit,
		AuditOutputLimit:   cfg.Audit.OutputLimit,
	}
	// A nil *Store stuffed into the interface would dodge the facade's
	// nil-recorder guards.
	if store != nil {
		deps.Recorder = store
	}

	terminal, err := tools.New(deps)
	if err != nil {
		log.Error("Failed to build terminal facade: %v", err)
		os.Exit(1)
	}

	apiServer := api.NewServer(api.Deps{
		Terminal:  terminal,
		Allowlist: list,
		Stream:    streamHandler,
		Audit:     store,
		Version:   Version,
	})

	httpServer := &http.Server{
		Handler: apiServer.Handler(),
		// SECURITY FIX: Add ReadHeaderTimeout to prevent Slowloris attacks
		ReadHeaderTimeout: 10 * time.Second,
	}

	tcpLn, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port))
	if err != nil {
		log.Error("Failed to listen on 127.0.0.1:%d: %v", cfg.Server.Port, err)
		os.Exit(1)
	}

	socketPath := cfg.Server.SocketPath
	if socketPath == "" {
		socketPath = daemon.SocketFile(cfg.Server.Port)
	}
	sockLn, err := api.Listener(socketPath)
	if err != nil {
		log.Error("Failed to open control socket: %v", err)
		os.Exit(1)
	}
	defer api.CleanupSocket(socketPath)

	if err := daemon.WritePort(cfg.Server.Port); err != nil {
		log.Warn("Failed to write port file: %v", err)
	}

	serveErr := make(chan error, 2)
	go func() { serveErr <- httpServer.Serve(tcpLn) }()
	go func() { serveErr <- httpServer.Serve(sockLn) }()

	log.Info("Control API on 127.0.0.1:%d and %s", cfg.Server.Port, socketPath)
	log.Info("Sessions: max %d concurrent, %dms default timeout", cfg.Sessions.MaxConcurrency, cfg.Sessions.DefaultTimeoutMs)

	// Retention purge keeps the audit database bounded: once at startup,
	// then hourly.
	var purgeStop chan struct{}
	if store != nil && cfg.Audit.RetentionDays > 0 {
		purgeStop = make(chan struct{})
		go func() {
			purge := func() {
				if n, err := store.PurgeConfigured(); err != nil {
					log.Warn("Audit purge failed: %v", err)
				} else if n > 0 {
					log.Debug("Audit purge removed %d executions", n)
				}
			}
			purge()
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					purge()
				case <-purgeStop:
					return
				}
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Received %s, shutting down...", sig)
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error: %v", err)
		}
	}
	if purgeStop != nil {
		close(purgeStop)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("Server shutdown: %v", err)
	}

	// Running sessions do not outlive the daemon.
	sessions.KillAll()

	log.Info("Galley stopped")
}

// gatesFromConfig maps the configured shell-feature gates.
func gatesFromConfig(cfg *config.Config) allowlist.Options {
	return allowlist.Options{
		AllowPipes:               cfg.Commands.AllowPipes,
		AllowRedirections:        cfg.Commands.AllowRedirections,
		AllowCommandSubstitution: cfg.Commands.AllowCommandSubstitution,
		AllowBackground:          cfg.Commands.AllowBackground,
	}
}

// loadConfigOrDefault loads the default config file, falling back to
// defaults when it cannot be parsed.
func loadConfigOrDefault() *config.Config {
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// =============================================================================
// stop / status / logs / top
// =============================================================================

// runStop handles the stop subcommand
func runStop() {
	running, pid := daemon.IsRunning()
	if !running {
		fmt.Println("Galley is not running")
		return
	}

	err := spinner.RunWithSpinner(
		fmt.Sprintf("Stopping galley [PID %d]", pid),
		"Galley stopped",
		daemon.Stop,
	)
	if err != nil {
		tui.PrintError(fmt.Sprintf("Failed to stop galley: %v", err))
		os.Exit(1)
	}
}

// runStatus handles the status subcommand
func runStatus(args []string) {
	statusFlags := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOut := statusFlags.Bool("json", false, "Output as JSON")
	_ = statusFlags.Parse(args)

	running, pid := daemon.IsRunning()

	if *jsonOut {
		out := map[string]any{"running": running}
		if running {
			out["pid"] = pid
			out["log_file"] = daemon.LogFile()
			if client, err := newAPIClient(); err == nil {
				if body, status, err := client.get("/api/galley/status"); err == nil && status == http.StatusOK {
					var detail map[string]any
					if json.Unmarshal(body, &detail) == nil {
						for k, v := range detail {
							out[k] = v
						}
					}
				}
			}
		}
		data, _ := json.MarshalIndent(out, "", "  ") //nolint:errcheck // map of plain values
		fmt.Println(string(data))
		return
	}

	if !running {
		fmt.Println(dashboard.RenderStatic(dashboard.StatusData{}))
		return
	}

	client, err := newAPIClient()
	if err != nil {
		tui.PrintWarning(fmt.Sprintf("Galley is running [PID %d] but the control socket is unreachable", pid))
		fmt.Printf("  Logs: %s\n", daemon.LogFileDisplay())
		os.Exit(1)
	}
	data := dashboard.FetchStatus(client.http, client.base, pid, daemon.LogFile())
	fmt.Println(dashboard.RenderStatic(data))
}

// runLogs handles the logs subcommand
func runLogs(args []string) {
	logsFlags := flag.NewFlagSet("logs", flag.ExitOnError)
	follow := logsFlags.Bool("f", false, "Follow log output")
	lines := logsFlags.Int("n", 50, "Number of lines to show")
	_ = logsFlags.Parse(args)

	// SECURITY: Validate lines is in valid range
	if *lines < 1 {
		*lines = 50
	} else if *lines > 10000 {
		*lines = 10000
	}

	if err := logview.View(daemon.LogFile(), *lines, *follow); err != nil {
		fmt.Fprintln(os.Stderr, "No logs found. Is galley running?")
		os.Exit(1)
	}
}

// runTop handles the top subcommand - the live dashboard
func runTop() {
	running, pid := daemon.IsRunning()
	if !running {
		fmt.Println("Galley is not running. Start it with: galley start")
		os.Exit(1)
	}

	client := mustAPIClient()
	if err := dashboard.Run(client.http, client.base, pid, daemon.LogFile()); err != nil {
		tui.PrintError(fmt.Sprintf("Dashboard error: %v", err))
		os.Exit(1)
	}
}

// =============================================================================
// exec / check / sessions / kill
// =============================================================================

// runExec handles the exec subcommand - one-shot sandboxed execution
func runExec(args []string) {
	execFlags := flag.NewFlagSet("exec", flag.ExitOnError)
	cwd := execFlags.String("cwd", "", "Working directory (inside the workspace root)")
	timeoutMs := execFlags.Int("timeout-ms", 0, "Timeout in milliseconds (default from daemon config)")
	jsonOut := execFlags.Bool("json", false, "Print the execute result as JSON and return immediately")
	_ = execFlags.Parse(args)

	command := strings.Join(execFlags.Args(), " ")
	if strings.TrimSpace(command) == "" {
		fmt.Fprintln(os.Stderr, "Usage: galley exec [--cwd dir] [--timeout-ms n] <command>")
		os.Exit(1)
	}

	client := mustAPIClient()
	body, status, err := client.post("/api/galley/execute", tools.ExecuteRequest{
		Command:   command,
		Cwd:       *cwd,
		TimeoutMs: *timeoutMs,
	})
	if err != nil {
		tui.PrintError(err.Error())
		os.Exit(1)
	}
	if status != http.StatusOK {
		tui.PrintError(apiError(body, status).Error())
		os.Exit(1)
	}

	var res tools.ExecuteResult
	if err := json.Unmarshal(body, &res); err != nil {
		tui.PrintError(fmt.Sprintf("Bad API response: %v", err))
		os.Exit(1)
	}

	if *jsonOut {
		fmt.Println(string(body))
		if res.Status != tools.StatusRunning {
			os.Exit(1)
		}
		return
	}

	switch res.Status {
	case tools.StatusDenied:
		tui.PrintError(fmt.Sprintf("Denied: %s", res.Message))
		os.Exit(1)
	case tools.StatusError:
		tui.PrintError(res.Message)
		os.Exit(1)
	}

	out, err := client.followSession(res.SessionID, os.Stdout)
	if err != nil || !out.sawEnd {
		// The stream can drop, or attach after a fast exit. The final
		// session status is authoritative either way.
		if final, ok := client.waitSessionDone(res.SessionID, !out.wrote); ok {
			if !out.wrote && final.OutputPreview != "" {
				fmt.Print(final.OutputPreview)
			}
			switch {
			case final.ExitCode != nil:
				out.exitCode = *final.ExitCode
			case final.Status == types.StatusTimedOut:
				out.exitCode = 124
			}
		}
	}
	os.Exit(out.exitCode)
}

// streamOutcome is what following a session over the websocket yielded.
type streamOutcome struct {
	exitCode int
	sawEnd   bool
	wrote    bool
}

// followSession follows a session over the websocket stream, writing
// output chunks to w until the session ends.
func (c *apiClient) followSession(id string, w io.Writer) (streamOutcome, error) {
	out := streamOutcome{exitCode: 1}

	dialer := websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return api.Dial(ctx, c.socketPath)
		},
		HandshakeTimeout: 5 * time.Second,
	}
	wsURL := "ws" + strings.TrimPrefix(c.base, "http") + "/api/galley/sessions/" + url.PathEscape(id) + "/stream"
	conn, resp, err := dialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return out, err
	}
	defer conn.Close()

	for {
		var n stream.Notification
		if err := conn.ReadJSON(&n); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				out.sawEnd = true
				return out, nil
			}
			return out, err
		}
		switch n.Kind {
		case stream.KindOutput:
			fmt.Fprint(w, n.Data)
			out.wrote = true
		case stream.KindExit:
			if n.ExitCode != nil {
				out.exitCode = *n.ExitCode
			}
		case stream.KindTimeout:
			fmt.Fprintf(os.Stderr, "\nCommand timed out after %dms\n", n.TimeoutMs)
			out.exitCode = 124 // same convention as timeout(1)
		case stream.KindError:
			if n.Data != "" {
				fmt.Fprintf(os.Stderr, "%s\n", n.Data)
			}
		case stream.KindSessionEnd:
			out.sawEnd = true
			return out, nil
		}
	}
}

// waitSessionDone polls until the session reaches a terminal state. The
// daemon enforces timeouts, so the wait is bounded.
func (c *apiClient) waitSessionDone(id string, includeOutput bool) (tools.StatusResult, bool) {
	path := "/api/galley/sessions/" + url.PathEscape(id)
	if includeOutput {
		path += "?output=true"
	}
	for {
		body, status, err := c.get(path)
		if err != nil || status != http.StatusOK {
			return tools.StatusResult{}, false
		}
		var res tools.StatusResult
		if json.Unmarshal(body, &res) != nil {
			return tools.StatusResult{}, false
		}
		if !res.Running {
			return res, true
		}
		time.Sleep(300 * time.Millisecond)
	}
}

// runCheck handles the check subcommand - dry-run validation
func runCheck(args []string) {
	checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
	cwd := checkFlags.String("cwd", "", "Working directory to validate")
	jsonOut := checkFlags.Bool("json", false, "Output as JSON")
	_ = checkFlags.Parse(args)

	command := strings.Join(checkFlags.Args(), " ")
	if strings.TrimSpace(command) == "" {
		fmt.Fprintln(os.Stderr, "Usage: galley check [--cwd dir] <command>")
		os.Exit(1)
	}

	// Prefer the daemon's verdict (its config, its hit counters); fall
	// back to a local evaluation when none is running.
	var res tools.CheckResult
	decided := false
	if client, err := newAPIClient(); err == nil {
		if body, status, err := client.post("/api/galley/check", tools.CheckRequest{Command: command, Cwd: *cwd}); err == nil && status == http.StatusOK {
			decided = json.Unmarshal(body, &res) == nil
		}
	}
	if !decided {
		res = localCheck(command, *cwd)
	}

	if *jsonOut {
		data, _ := json.Marshal(res) //nolint:errcheck // plain struct
		fmt.Println(string(data))
	} else if res.Allowed {
		tui.PrintSuccess(fmt.Sprintf("Allowed: %s", command))
	} else {
		tui.PrintError(fmt.Sprintf("Denied: %s", res.Reason))
	}
	if !res.Allowed {
		os.Exit(1)
	}
}

// localCheck evaluates a command without a daemon, building the same
// validators the daemon would from the local configuration.
func localCheck(command, cwd string) tools.CheckResult {
	logger.SetGlobalLevelFromString("error")
	cfg := loadConfigOrDefault()

	root, err := cfg.ResolveWorkspaceRoot()
	if err != nil {
		return tools.CheckResult{Reason: err.Error()}
	}
	validator, err := workspace.NewValidator(root)
	if err != nil {
		return tools.CheckResult{Reason: err.Error()}
	}
	if cfg.Workspace.AllowTmp {
		_ = validator.AllowTemp()
	}
	list, err := allowlist.NewList(allowlist.Config{
		UserDir:        cfg.Commands.UserDir,
		DisableBuiltin: cfg.Commands.DisableBuiltin,
	})
	if err != nil {
		return tools.CheckResult{Reason: err.Error()}
	}

	target := cwd
	if target == "" {
		target = root
	}
	pathRes := validator.Validate(target)
	if !pathRes.Valid {
		return tools.CheckResult{Reason: fmt.Sprintf("path validation failed: %s", pathRes.Reason)}
	}
	cmdRes := allowlist.ValidateCommand(command, list, gatesFromConfig(cfg))
	if !cmdRes.Allowed {
		return tools.CheckResult{Reason: cmdRes.Reason, ResolvedCwd: pathRes.ResolvedPath}
	}
	return tools.CheckResult{Allowed: true, ResolvedCwd: pathRes.ResolvedPath}
}

// runSessions handles the sessions subcommand
func runSessions(args []string) {
	sessFlags := flag.NewFlagSet("sessions", flag.ExitOnError)
	jsonOut := sessFlags.Bool("json", false, "Output as JSON")
	activeOnly := sessFlags.Bool("active", false, "Show only running sessions")
	_ = sessFlags.Parse(args)

	client := mustAPIClient()
	path := "/api/galley/sessions"
	if *activeOnly {
		path += "?active=true"
	}
	body, status, err := client.get(path)
	if err != nil {
		tui.PrintError(err.Error())
		os.Exit(1)
	}
	if status != http.StatusOK {
		tui.PrintError(apiError(body, status).Error())
		os.Exit(1)
	}

	if *jsonOut {
		fmt.Println(string(body))
		return
	}

	var res tools.ListResult
	if err := json.Unmarshal(body, &res); err != nil {
		tui.PrintError(fmt.Sprintf("Bad API response: %v", err))
		os.Exit(1)
	}

	fmt.Printf("Sessions (%d active / %d max)\n\n", res.ActiveCount, res.MaxConcurrency)
	if len(res.Sessions) == 0 {
		fmt.Println("  (none)")
		fmt.Println("  Run one with: galley exec <command>")
		return
	}

	fmt.Printf("  %-8s  %-9s  %4s  %-12s  %s\n", "ID", "STATUS", "EXIT", "STARTED", "COMMAND")
	for _, s := range res.Sessions {
		exit := "-"
		if s.ExitCode != nil {
			exit = fmt.Sprintf("%d", *s.ExitCode)
		}
		// Pad inside Render so the escape codes don't break the columns.
		styled := tui.StatusStyle(string(s.Status)).Render(fmt.Sprintf("%-9s", s.Status))
		fmt.Printf("  %-8s  %s  %4s  %-12s  %s\n",
			shortID(s.SessionID), styled, exit, formatAge(time.Since(s.StartedAt)), truncateCmd(s.Command, 60))
	}
}

// runKill handles the kill subcommand
func runKill(args []string) {
	killFlags := flag.NewFlagSet("kill", flag.ExitOnError)
	reason := killFlags.String("reason", "", "Reason recorded for the cancellation")
	_ = killFlags.Parse(args)

	if killFlags.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: galley kill [--reason text] <session-id>")
		os.Exit(1)
	}
	id := killFlags.Arg(0)

	client := mustAPIClient()
	path := "/api/galley/sessions/" + url.PathEscape(id)
	if *reason != "" {
		path += "?reason=" + url.QueryEscape(*reason)
	}
	body, status, err := client.delete(path)
	if err != nil {
		tui.PrintError(err.Error())
		os.Exit(1)
	}
	if status != http.StatusOK {
		tui.PrintError(apiError(body, status).Error())
		os.Exit(1)
	}

	var res tools.KillResult
	if err := json.Unmarshal(body, &res); err != nil {
		tui.PrintError(fmt.Sprintf("Bad API response: %v", err))
		os.Exit(1)
	}
	if res.Killed {
		tui.PrintSuccess(fmt.Sprintf("Session %s killed", shortID(id)))
	} else {
		tui.PrintWarning(res.Message)
	}
}

// =============================================================================
// allowlist management
// =============================================================================

// runAllowAdd handles the allow-add subcommand
func runAllowAdd(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: galley allow-add <file.yaml>")
		os.Exit(1)
	}
	filePath := args[0]

	data, err := os.ReadFile(filePath) //nolint:gosec // user-supplied path is the point
	if err != nil {
		tui.PrintError(fmt.Sprintf("Cannot read %s: %v", filePath, err))
		os.Exit(1)
	}
	results, err := allowlist.LintYAML(data)
	if err != nil {
		tui.PrintError(fmt.Sprintf("Invalid allowlist file: %v", err))
		os.Exit(1)
	}
	bad := 0
	for _, r := range results {
		if !r.Valid {
			bad++
			fmt.Fprintf(os.Stderr, "  %s: %s\n", r.Pattern, r.Error)
		}
	}
	if bad > 0 {
		tui.PrintError(fmt.Sprintf("%d invalid entries, nothing added", bad))
		os.Exit(1)
	}

	cfg := loadConfigOrDefault()
	loader := allowlist.NewLoader(cfg.Commands.UserDir)
	dest, err := loader.AddFile(filePath)
	if err != nil {
		tui.PrintError(fmt.Sprintf("Failed to add file: %v", err))
		os.Exit(1)
	}
	tui.PrintSuccess(fmt.Sprintf("Allowlist file added: %s", dest))

	if client, err := newAPIClient(); err == nil {
		if _, status, err := client.post("/api/galley/allowlist/reload", nil); err == nil && status == http.StatusOK {
			fmt.Println("  Hot reload triggered")
			return
		}
	}
	fmt.Println("  Galley is not running; entries load on next start.")
}

// runAllowList handles the allow-list subcommand
func runAllowList(args []string) {
	listFlags := flag.NewFlagSet("allow-list", flag.ExitOnError)
	jsonOut := listFlags.Bool("json", false, "Output as JSON")
	source := listFlags.String("source", "", "Filter by source: builtin, user, config, cli")
	_ = listFlags.Parse(args)

	entries, count, err := fetchAllowlist(*source)
	if err != nil {
		tui.PrintError(fmt.Sprintf("Failed to load allowlist: %v", err))
		os.Exit(1)
	}

	if *jsonOut {
		data, err := json.MarshalIndent(map[string]any{"entries": entries, "count": count}, "", "  ")
		if err != nil {
			tui.PrintError(err.Error())
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	if err := entrylist.Render(entries, count); err != nil {
		tui.PrintError(fmt.Sprintf("Render error: %v", err))
		os.Exit(1)
	}
}

// fetchAllowlist prefers the daemon's view (live hit counters); with no
// daemon it loads entries from disk the way the daemon would.
func fetchAllowlist(source string) ([]allowlist.Entry, int, error) {
	if client, err := newAPIClient(); err == nil {
		path := "/api/galley/allowlist"
		if source != "" {
			path += "?source=" + url.QueryEscape(source)
		}
		if body, status, err := client.get(path); err == nil && status == http.StatusOK {
			var resp struct {
				Entries []allowlist.Entry `json:"entries"`
				Count   int               `json:"count"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, 0, fmt.Errorf("bad API response: %w", err)
			}
			return resp.Entries, resp.Count, nil
		}
	}

	logger.SetGlobalLevelFromString("error")
	cfg := loadConfigOrDefault()
	list, err := allowlist.NewList(allowlist.Config{
		UserDir:        cfg.Commands.UserDir,
		DisableBuiltin: cfg.Commands.DisableBuiltin,
	})
	if err != nil {
		return nil, 0, err
	}
	entries := list.Entries()
	if source != "" {
		filtered := make([]allowlist.Entry, 0, len(entries))
		for _, e := range entries {
			if e.Source == source {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	return entries, len(entries), nil
}

// runAllowReload handles the allow-reload subcommand
func runAllowReload() {
	client := mustAPIClient()
	body, status, err := client.post("/api/galley/allowlist/reload", nil)
	if err != nil {
		tui.PrintError(err.Error())
		os.Exit(1)
	}
	if status != http.StatusOK {
		tui.PrintError(apiError(body, status).Error())
		os.Exit(1)
	}

	var resp struct {
		Message string `json:"message"`
		Count   int    `json:"count"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Message != "" {
		tui.PrintSuccess(fmt.Sprintf("Allowlist reloaded (%d entries)", resp.Count))
	} else {
		fmt.Println(string(body))
	}
}

// runAllowLint handles the allow-lint subcommand - validates entry files
func runAllowLint(args []string) {
	lintFlags := flag.NewFlagSet("allow-lint", flag.ExitOnError)
	showValid := lintFlags.Bool("info", false, "Also list entries that pass")
	_ = lintFlags.Parse(args)

	var files []string
	if lintFlags.NArg() > 0 {
		files = lintFlags.Args()
	} else {
		cfg := loadConfigOrDefault()
		loader := allowlist.NewLoader(cfg.Commands.UserDir)
		names, err := loader.ListFiles()
		if err != nil {
			tui.PrintError(fmt.Sprintf("Cannot list user allowlist files: %v", err))
			os.Exit(1)
		}
		if len(names) == 0 {
			fmt.Println("No user allowlist files to lint.")
			fmt.Printf("Add one with: galley allow-add <file.yaml>\n")
			return
		}
		for _, name := range names {
			files = append(files, filepath.Join(loader.UserDir(), name))
		}
	}

	problems := 0
	for _, f := range files {
		data, err := os.ReadFile(f) //nolint:gosec // linting user-named files is the point
		if err != nil {
			tui.PrintError(fmt.Sprintf("%s: %v", f, err))
			problems++
			continue
		}
		results, err := allowlist.LintYAML(data)
		if err != nil {
			tui.PrintError(fmt.Sprintf("%s: %v", f, err))
			problems++
			continue
		}
		fmt.Printf("%s (%d entries)\n", f, len(results))
		for _, r := range results {
			if r.Valid {
				if *showValid {
					fmt.Printf("  %s %s\n", tui.StyleSuccess.Render(tui.IconCheck), r.Pattern)
				}
				continue
			}
			problems++
			fmt.Printf("  %s %s: %s\n", tui.StyleError.Render(tui.IconCross), r.Pattern, r.Error)
		}
	}

	fmt.Println()
	if problems > 0 {
		tui.PrintError(fmt.Sprintf("%d problem(s) found", problems))
		os.Exit(1)
	}
	tui.PrintSuccess("All entries valid")
}

// =============================================================================
// init / version / completion / uninstall
// =============================================================================

// runInit handles the init subcommand - interactive configuration
func runInit() {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}

	setupCfg, err := setup.RunSetup(cwd)
	if err != nil {
		tui.PrintError(fmt.Sprintf("Setup failed: %v", err))
		os.Exit(1)
	}
	if setupCfg.Canceled {
		fmt.Println("Setup canceled.")
		return
	}

	cfg := config.DefaultConfig()
	if !setupCfg.AutoRoot {
		cfg.Workspace.Root = setupCfg.WorkspaceRoot
	}
	cfg.Server.Port = setupCfg.Port
	cfg.Audit.Enabled = setupCfg.AuditEnabled
	cfg.Audit.RetentionDays = setupCfg.RetentionDays
	cfg.Commands.DisableBuiltin = setupCfg.DisableBuiltin
	cfg.Sessions.MaxConcurrency = setupCfg.MaxConcurrency

	path := config.DefaultConfigPath()
	if err := config.Save(cfg, path); err != nil {
		tui.PrintError(fmt.Sprintf("Failed to write config: %v", err))
		os.Exit(1)
	}

	fmt.Println()
	tui.PrintSuccess(fmt.Sprintf("Configuration written to %s", path))
	if setupCfg.EncryptionKey != "" {
		// The key is never stored; it has to arrive via the environment
		// on every start.
		tui.PrintInfo("Encryption key accepted (not stored). Start galley with:")
		fmt.Println("    DB_KEY=<your key> galley start")
	}
	fmt.Println()
	fmt.Println("Next: galley start")
}

// runVersion handles the version subcommand
func runVersion(args []string) {
	for _, a := range args {
		if a == "--json" || a == "-json" {
			data, _ := json.Marshal(map[string]string{"version": Version}) //nolint:errcheck // string map
			fmt.Println(string(data))
			return
		}
	}
	fmt.Printf("galley version %s\n", Version)
}

// runCompletion handles the completion subcommand
func runCompletion(args []string) {
	compFlags := flag.NewFlagSet("completion", flag.ExitOnError)
	installFlag := compFlags.Bool("install", false, "Install shell completion")
	uninstallFlag := compFlags.Bool("uninstall", false, "Uninstall shell completion")
	_ = compFlags.Parse(args)

	switch {
	case *installFlag && *uninstallFlag:
		fmt.Fprintln(os.Stderr, "Pick one of --install or --uninstall")
		os.Exit(1)
	case *installFlag:
		if completion.IsInstalled() {
			tui.PrintInfo("Shell completion is already installed")
			return
		}
		if err := completion.Install(); err != nil {
			tui.PrintError(fmt.Sprintf("Completion install failed: %v", err))
			os.Exit(1)
		}
		tui.PrintSuccess("Shell completion installed. Restart your shell to pick it up.")
	case *uninstallFlag:
		if err := completion.Uninstall(); err != nil {
			tui.PrintError(fmt.Sprintf("Completion uninstall failed: %v", err))
			os.Exit(1)
		}
		tui.PrintSuccess("Shell completion removed")
	default:
		if completion.IsInstalled() {
			fmt.Println("Shell completion: installed")
		} else {
			fmt.Println("Shell completion: not installed")
			fmt.Println("Install with: galley completion --install")
		}
	}
}

// runUninstall handles the uninstall subcommand
func runUninstall() {
	binaryPath := "/usr/local/bin/galley"
	dataDir := daemon.DataDir()

	fmt.Println("This will remove:")
	fmt.Printf("  - %s\n", binaryPath)
	fmt.Printf("  - %s/ (logs, allowlist, audit database)\n", dataDir)
	fmt.Println()

	// Prompt for confirmation
	fmt.Print("Continue? [y/N] ")
	var response string
	_, _ = fmt.Scanln(&response) //nolint:errcheck // empty input means no

	if response != "y" && response != "Y" {
		fmt.Println("Uninstall canceled.")
		return
	}

	// Stop galley if running
	if running, pid := daemon.IsRunning(); running {
		fmt.Printf("Stopping galley [PID %d]...\n", pid)
		if err := daemon.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to stop galley: %v\n", err)
		}
	}

	if completion.IsInstalled() {
		if err := completion.Uninstall(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to remove shell completion: %v\n", err)
		}
	}

	// Remove binary
	fmt.Println("Removing binary...")
	if err := os.Remove(binaryPath); err != nil {
		if os.IsPermission(err) {
			// Try with sudo
			cmd := exec.Command("sudo", "rm", "-f", binaryPath)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			cmd.Stdin = os.Stdin
			if err := cmd.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to remove binary: %v\n", err)
			}
		} else if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Failed to remove binary: %v\n", err)
		}
	}

	// Remove data directory
	fmt.Println("Removing data directory...")
	if err := os.RemoveAll(dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to remove data directory: %v\n", err)
	}

	fmt.Println()
	fmt.Println("Galley uninstalled.")
}

// =============================================================================
// small helpers
// =============================================================================

// shortID trims a session UUID for table display.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// truncateCmd bounds a command string for table display.
func truncateCmd(cmd string, max int) string {
	if len(cmd) <= max {
		return cmd
	}
	if max <= 3 {
		return cmd[:max]
	}
	return cmd[:max-3] + "..."
}

// formatAge renders an elapsed duration compactly.
func formatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds ago", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm ago", int(d.Hours()), int(d.Minutes())%60)
	}
}

const usageText = `Galley - Sandboxed command execution for AI agents

Usage:
  galley start [flags]           Start the galley daemon
  galley stop                    Stop the galley daemon
  galley status [--json]         Daemon status and metrics
  galley logs [-f] [-n N]        View logs (-f to follow, -n for line count)
  galley top                     Live session dashboard

  galley exec [flags] <cmd>      Run a command in the sandbox, stream its output
  galley check [flags] <cmd>     Dry-run: report whether a command would be allowed
  galley sessions [--json]       List sessions (--active for running only)
  galley kill <session-id>       Cancel a running session

  galley allow-add <file.yaml>   Add an allowlist entry file
  galley allow-list [--json]     List allowlist entries (--source to filter)
  galley allow-reload            Hot-reload user allowlist entries
  galley allow-lint [file.yaml]  Validate entry files without loading them

  galley init                    Interactive configuration setup
  galley completion --install    Install shell tab completion
  galley uninstall               Remove galley and its data
  galley help                    Show this help message
  galley version                 Show version

Start Flags:
  --config string        Path to configuration file (default ~/.galley/config.yaml)
  --workspace-root dir   Directory commands are confined to (default: current directory)
  --port int             Control API port (default 9191)
  --log-level string     Log level: trace, debug, info, warn, error
  --no-color             Disable colored output
  --disable-builtin      Start with an empty builtin allowlist
  --max-concurrency int  Concurrent session cap (default 5)
  --sanitize-env         Start sessions from a minimal environment
  --audit=false          Disable the audit execution history
  --retention-days int   Audit retention in days (0=forever)
  --db-key string        Audit DB encryption key (prefer DB_KEY env var)
  --foreground           Run in the foreground instead of daemonizing

Environment Variables:
  DB_KEY            Audit database encryption key (preferred over --db-key)
  GALLEY_DATA_DIR   Data directory override (default ~/.galley)

Examples:
  galley start                                 Start with defaults
  DB_KEY=$(openssl rand -hex 16) galley start  Start with an encrypted audit DB
  galley exec "go test ./..."                  Run a command in the sandbox
  galley check "rm -rf /"                      See why a command would be denied
  galley logs -f                               Follow logs`

func printUsage() {
	fmt.Println(usageText)
}
