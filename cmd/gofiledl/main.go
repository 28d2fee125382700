// gofiledl - recursive, resumable downloader for gofile.io shares
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ulukaya/gofiledl/internal/config"
	"github.com/ulukaya/gofiledl/internal/engine"
	"github.com/ulukaya/gofiledl/internal/gofile"
	"github.com/ulukaya/gofiledl/internal/hooks"
	"github.com/ulukaya/gofiledl/internal/integrity"
	"github.com/ulukaya/gofiledl/internal/tui"
	"github.com/ulukaya/gofiledl/internal/ui"
	"github.com/ulukaya/gofiledl/internal/version"
)

// Exit codes
const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitParseError    = 2
	ExitAuthError     = 3
	ExitNotFound      = 4
	ExitPasswordError = 5
	ExitInterrupted   = 6
)

// CLIConfig holds CLI configuration
type CLIConfig struct {
	OutputDir   string
	Password    string
	LimitRate   string
	Retries     int
	RetryDelay  time.Duration
	Timeout     time.Duration
	Incremental bool
	StripEmoji  bool
	Checksum    bool
	Verify      string
	TrackerDir  string
	Proxy       string
	SOCKS5      string
	HTTP3       bool
	NoCheckCert bool
	Progress    string // "bar", "minimal", "json", "none"
	TUI         bool
	NoColor     bool
	Quiet       bool
	Verbose     bool
	ConfigFile  string
	InitConfig  bool
	InputFile   string
	OnComplete  string
	OnError     string
	WebhookURL  string
	ShowVersion bool
	ShowHelp    bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Println(version.Full())
		os.Exit(ExitSuccess)
	}

	if cli.InitConfig {
		os.Exit(initConfig())
	}

	targets, err := collectTargets(flag.Args(), cli.InputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitParseError)
	}

	if cli.ShowHelp || len(targets) == 0 {
		printUsage()
		if len(targets) == 0 && !cli.ShowHelp {
			os.Exit(ExitParseError)
		}
		os.Exit(ExitSuccess)
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitGeneralError)
	}

	logger, err := buildLogger(cfg, cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitGeneralError)
	}
	defer logger.Sync()

	os.Exit(run(cli, cfg, logger, targets))
}

func parseFlags() CLIConfig {
	cli := CLIConfig{}

	flag.StringVar(&cli.OutputDir, "d", "", "Output directory")
	flag.StringVar(&cli.OutputDir, "dir", "", "Output directory")
	flag.StringVar(&cli.Password, "p", "", "Password for protected shares")
	flag.StringVar(&cli.Password, "password", "", "Password for protected shares")
	flag.StringVar(&cli.LimitRate, "limit-rate", "", "Limit download speed (e.g. 10M, 500K)")
	flag.IntVar(&cli.Retries, "retries", -1, "Extra attempts after a failed transfer")
	flag.DurationVar(&cli.RetryDelay, "retry-delay", 0, "Delay between attempts")
	flag.DurationVar(&cli.Timeout, "T", 0, "Connection timeout")
	flag.DurationVar(&cli.Timeout, "timeout", 0, "Connection timeout")
	flag.BoolVar(&cli.Incremental, "incremental", false, "Skip files recorded by a previous run")
	flag.BoolVar(&cli.StripEmoji, "strip-emoji", false, "Drop emoji from folder and file names")
	flag.BoolVar(&cli.Checksum, "checksum", false, "Verify reported md5 after each download")
	flag.StringVar(&cli.Verify, "verify", "", "Expected checksum for a single-file download (e.g. sha256:<hex>)")
	flag.StringVar(&cli.TrackerDir, "tracker-dir", "", "Directory for incremental-download records")
	flag.StringVar(&cli.Proxy, "proxy", "", "HTTP(S) proxy URL")
	flag.StringVar(&cli.SOCKS5, "socks5", "", "SOCKS5 proxy address (host:port)")
	flag.BoolVar(&cli.HTTP3, "http3", false, "Use HTTP/3")
	flag.BoolVar(&cli.NoCheckCert, "no-check-certificate", false, "Skip TLS certificate verification")
	flag.StringVar(&cli.Progress, "progress", "", "Progress style: bar, minimal, json, none")
	flag.BoolVar(&cli.TUI, "tui", false, "Interactive terminal interface (pause with p, quit with q)")
	flag.BoolVar(&cli.NoColor, "no-color", false, "Disable colored output")
	flag.BoolVar(&cli.Quiet, "q", false, "Quiet mode (no progress)")
	flag.BoolVar(&cli.Quiet, "quiet", false, "Quiet mode (no progress)")
	flag.BoolVar(&cli.Verbose, "v", false, "Verbose output")
	flag.BoolVar(&cli.Verbose, "verbose", false, "Verbose output")
	flag.StringVar(&cli.ConfigFile, "config", "", "Use custom config file")
	flag.BoolVar(&cli.InitConfig, "init-config", false, "Generate default config file")
	flag.StringVar(&cli.InputFile, "i", "", "Read share URLs from file (one per line)")
	flag.StringVar(&cli.InputFile, "input-file", "", "Read share URLs from file (one per line)")
	flag.StringVar(&cli.OnComplete, "on-complete", "", "Command to run after each completed file")
	flag.StringVar(&cli.OnError, "on-error", "", "Command to run after each failed file")
	flag.StringVar(&cli.WebhookURL, "webhook", "", "Webhook URL for download notifications")
	flag.BoolVar(&cli.ShowVersion, "V", false, "Show version")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version")
	flag.BoolVar(&cli.ShowHelp, "h", false, "Show help")
	flag.BoolVar(&cli.ShowHelp, "help", false, "Show help")

	flag.Usage = printUsage
	flag.Parse()

	if cli.Quiet {
		cli.Progress = "none"
		cli.TUI = false
	}

	return cli
}

// loadConfig loads the yaml config and lays the CLI flags over it.
func loadConfig(cli CLIConfig) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cli.ConfigFile != "" {
		cfg = config.DefaultConfig()
		err = cfg.LoadFile(cli.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if cli.OutputDir != "" {
		cfg.Download.Directory = cli.OutputDir
	}
	if cli.LimitRate != "" {
		cfg.Download.Throttle = cli.LimitRate
	}
	if cli.Retries >= 0 {
		cfg.General.Retries = cli.Retries
	}
	if cli.RetryDelay > 0 {
		cfg.General.RetryDelay = cli.RetryDelay
	}
	if cli.Timeout > 0 {
		cfg.General.Timeout = cli.Timeout
	}
	if cli.Incremental {
		cfg.Download.Incremental = true
	}
	if cli.StripEmoji {
		cfg.Download.StripEmoji = true
	}
	if cli.Checksum {
		cfg.Download.Checksum = true
	}
	if cli.TrackerDir != "" {
		cfg.Download.TrackerDir = cli.TrackerDir
	}
	if cli.Proxy != "" {
		cfg.Proxy.HTTP = cli.Proxy
	}
	if cli.SOCKS5 != "" {
		cfg.Proxy.SOCKS5 = cli.SOCKS5
	}
	if cli.HTTP3 {
		cfg.API.HTTP3 = true
	}
	if cli.NoCheckCert {
		cfg.API.Insecure = true
	}
	if cli.Progress != "" {
		cfg.Output.ProgressStyle = cli.Progress
	}
	if cli.NoColor {
		cfg.Output.Colors = false
	}

	return cfg, nil
}

func buildLogger(cfg *config.Config, cli CLIConfig) (*zap.Logger, error) {
	logCfg := cfg.Logging
	if cli.Verbose {
		logCfg.Level = "debug"
	}
	if cli.Quiet && !cli.Verbose {
		logCfg.Level = "error"
	}
	return config.NewLogger(logCfg)
}

// collectTargets merges positional arguments with the optional input file.
func collectTargets(args []string, inputFile string) ([]string, error) {
	targets := append([]string(nil), args...)

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("reading input file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			targets = append(targets, line)
		}
	}

	return targets, nil
}

func run(cli CLIConfig, cfg *config.Config, logger *zap.Logger, targets []string) int {
	throttleBPS, err := config.ParseBandwidth(cfg.Download.Throttle)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitParseError
	}

	sessionOpts := []gofile.SessionOption{
		gofile.WithAccountsURL(cfg.API.AccountsURL),
		gofile.WithAssetURL(cfg.API.AssetURL),
		gofile.WithSessionLogger(logger),
	}
	if cfg.API.Token != "" {
		sessionOpts = append(sessionOpts, gofile.WithToken(cfg.API.Token))
	}
	session := gofile.NewSession(sessionOpts...)

	transportOpts := []gofile.TransportOption{
		gofile.WithTimeout(cfg.General.Timeout),
		gofile.WithUserAgent(cfg.General.UserAgent),
		gofile.WithProxy(cfg.Proxy.HTTP),
		gofile.WithSOCKS5Proxy(cfg.Proxy.SOCKS5, nil),
		gofile.WithInsecureSkipVerify(cfg.API.Insecure),
		gofile.WithHTTP3(cfg.API.HTTP3),
	}
	transport := gofile.NewTransport(session, transportOpts...)

	client := gofile.NewClient(transport,
		gofile.WithAPIBase(cfg.API.Base),
		gofile.WithLogger(logger))

	transfer := engine.NewTransfer(transport,
		engine.WithChunkSize(cfg.General.ChunkSize),
		engine.WithRetries(cfg.General.Retries),
		engine.WithRetryDelay(cfg.General.RetryDelay),
		engine.WithThrottle(engine.NewThrottle(throttleBPS)),
		engine.WithTransferLogger(logger))

	walkerOpts := []engine.WalkerOption{
		engine.WithWalkerLogger(logger),
		engine.WithURLPrefix(cfg.API.URLPrefix),
		engine.WithTrackerDir(cfg.Download.TrackerDir),
		engine.WithRenamePatterns(cfg.Download.RenamePatterns),
	}
	switch {
	case cli.Verify != "":
		expected, err := integrity.Parse(cli.Verify)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitParseError
		}
		walkerOpts = append(walkerOpts, engine.WithVerifier(func(path, _ string) error {
			return integrity.VerifyFile(path, expected)
		}))
	case cfg.Download.Checksum:
		walkerOpts = append(walkerOpts, engine.WithVerifier(integrity.VerifyMD5))
	}
	walker := engine.NewWalker(client, transfer, walkerOpts...)

	hookMgr := hooks.NewManager()
	if cli.OnComplete != "" {
		hookMgr.AddCommand(cli.OnComplete, hooks.EventFileComplete)
	}
	if cli.OnError != "" {
		hookMgr.AddCommand(cli.OnError, hooks.EventFileFailed)
	}
	if cli.WebhookURL != "" {
		hookMgr.AddWebhook(cli.WebhookURL,
			hooks.EventRunStart, hooks.EventRunComplete, hooks.EventRunCancelled,
			hooks.EventFileComplete, hooks.EventFileFailed)
	}

	cancel := engine.NewSignal()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("interrupt received, stopping after the current chunk")
		cancel.Set()
	}()

	ctx := context.Background()

	if cli.TUI {
		runner := tui.NewRunner(cancel)
		cb := runner.Callbacks()

		codeCh := make(chan int, 1)
		go func() {
			code, err := downloadAll(ctx, walker, cfg, cli.Password, cb, hookMgr, cancel, logger, targets)
			runner.Finish(err)
			codeCh <- code
		}()

		if err := runner.Run(); err != nil {
			logger.Error("terminal interface failed", zap.Error(err))
			cancel.Set()
		}
		return <-codeCh
	}

	var cb engine.Callbacks
	if cfg.Output.ProgressStyle != "none" {
		printer := ui.NewPrinter(
			ui.WithStyle(ui.Style(cfg.Output.ProgressStyle)),
			ui.WithNoColor(!cfg.Output.Colors))
		cb = printer.Callbacks()
	}
	cb.Cancel = cancel

	code, _ := downloadAll(ctx, walker, cfg, cli.Password, cb, hookMgr, cancel, logger, targets)
	return code
}

// downloadAll walks every target in order, firing hooks and folding the
// per-target results into the worst exit code.
func downloadAll(ctx context.Context, walker *engine.Walker, cfg *config.Config,
	password string, cb engine.Callbacks, hookMgr *hooks.Manager, cancel *engine.Signal,
	logger *zap.Logger, targets []string) (int, error) {

	worst := ExitSuccess
	var lastErr error

	for _, target := range targets {
		req := engine.Request{
			Dir:         cfg.Download.Directory,
			Password:    password,
			Incremental: cfg.Download.Incremental,
			StripEmoji:  cfg.Download.StripEmoji,
		}
		if strings.HasPrefix(target, "http") {
			req.URL = target
		} else {
			req.ContentID = target
		}

		targetCB := withFileHooks(ctx, cb, hookMgr, target)

		hookMgr.ExecuteAsync(ctx, hooks.NewPayload(hooks.EventRunStart, target))
		start := time.Now()

		err := walker.Run(ctx, req, targetCB)

		event := hooks.EventRunComplete
		if cancel.IsSet() {
			event = hooks.EventRunCancelled
		}
		if hookErr := hookMgr.Execute(ctx, hooks.NewPayload(event, target).
			WithError(err).
			WithDuration(time.Since(start))); hookErr != nil {
			logger.Warn("hook execution failed", zap.Error(hookErr))
		}

		if err != nil {
			logger.Error("download failed",
				zap.String("target", target),
				zap.Error(err))
			lastErr = err
			if code := classifyError(err); code > worst {
				worst = code
			}
		}

		if cancel.IsSet() {
			if ExitInterrupted > worst {
				worst = ExitInterrupted
			}
			break
		}
	}

	return worst, lastErr
}

// withFileHooks layers hook dispatch over the per-file progress callback.
func withFileHooks(ctx context.Context, cb engine.Callbacks, hookMgr *hooks.Manager, target string) engine.Callbacks {
	if hookMgr.Count() == 0 {
		return cb
	}

	base := cb.FileProgress
	failed := make(map[string]bool)
	cb.FileProgress = func(path string, percent int, size int64) {
		if base != nil {
			base(path, percent, size)
		}
		switch {
		case percent == engine.ProgressFailed:
			failed[path] = true
			hookMgr.ExecuteAsync(ctx, hooks.NewPayload(hooks.EventFileFailed, target).
				WithFile(filepath.Base(path), path, size))
		case percent >= 100 && !failed[path]:
			// The engine's trailing 100 also follows a permanent failure;
			// only an unfailed path has actually completed.
			hookMgr.ExecuteAsync(ctx, hooks.NewPayload(hooks.EventFileComplete, target).
				WithFile(filepath.Base(path), path, size))
		}
	}
	return cb
}

func classifyError(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, engine.ErrCancelled):
		return ExitInterrupted
	case errors.Is(err, gofile.ErrPassword):
		return ExitPasswordError
	case errors.Is(err, gofile.ErrContentNotFound):
		return ExitNotFound
	case errors.Is(err, gofile.ErrAuthentication):
		return ExitAuthError
	case errors.Is(err, engine.ErrInvalidURL):
		return ExitParseError
	default:
		return ExitGeneralError
	}
}

func initConfig() int {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "Config file already exists: %s\n", path)
		return ExitGeneralError
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
	if err := os.WriteFile(path, []byte(config.GenerateDefaultConfig()), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	fmt.Printf("Created config file: %s\n", path)
	return ExitSuccess
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `gofiledl - recursive, resumable downloader for gofile.io shares

Usage:
  gofiledl [options] <share-url | content-id>...

Options:
  -d, -dir <path>          Output directory
  -p, -password <pass>     Password for protected shares
  -i, -input-file <file>   Read share URLs from file (one per line)
  --limit-rate <rate>      Limit download speed (e.g. 10M, 500K)
  --retries <n>            Extra attempts after a failed transfer
  --retry-delay <dur>      Delay between attempts (e.g. 2s)
  -T, -timeout <dur>       Connection timeout
  --incremental            Skip files recorded by a previous run
  --strip-emoji            Drop emoji from folder and file names
  --checksum               Verify reported md5 after each download
  --verify <checksum>      Expected checksum for a single-file download
  --tracker-dir <path>     Directory for incremental-download records
  --proxy <url>            HTTP(S) proxy URL
  --socks5 <addr>          SOCKS5 proxy address (host:port)
  --http3                  Use HTTP/3
  --no-check-certificate   Skip TLS certificate verification
  --progress <style>       Progress style: bar, minimal, json, none
  --tui                    Interactive interface (p pauses, q cancels)
  --no-color               Disable colored output
  -q, -quiet               Quiet mode
  -v, -verbose             Verbose output
  --config <file>          Use custom config file
  --init-config            Generate default config file
  --on-complete <cmd>      Command to run after each completed file
  --on-error <cmd>         Command to run after each failed file
  --webhook <url>          Webhook URL for download notifications
  -V, -version             Show version
  -h, -help                Show help

Examples:
  gofiledl https://gofile.io/d/AbC123
  gofiledl -d ~/Downloads -p secret https://gofile.io/d/AbC123
  gofiledl --incremental --strip-emoji --limit-rate 2M AbC123
  gofiledl --tui https://gofile.io/d/AbC123
`)
}
