package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jimmcbubbles/usertags/internal/config"
	"github.com/jimmcbubbles/usertags/internal/identity"
	"github.com/jimmcbubbles/usertags/internal/kv"
	"github.com/jimmcbubbles/usertags/internal/logger"
	"github.com/jimmcbubbles/usertags/internal/mcp"
	"github.com/jimmcbubbles/usertags/internal/tags"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"tag": true, "user": true, "search": true,
	"export": true, "import": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  usertags: tag users, filter them by tag expression

  Usage: usertags <command> [options]
         usertags --help

  MCP server mode requires piped input.`)
}

// env is everything a command needs. Commands that only print help run
// with a nil env.
type env struct {
	store *tags.Store
	dir   *identity.Directory
	cfg   *config.Config
	log   *slog.Logger
}

// openStorage opens the configured key-value backend under baseDir.
func openStorage(cfg *config.Config, baseDir string, log *slog.Logger) (kv.Storage, func() error, error) {
	switch cfg.Backend {
	case config.BackendBadger:
		b, err := kv.OpenBadger(filepath.Join(baseDir, "badger"))
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case config.BackendMemory:
		log.Warn("memory backend selected; nothing will be persisted")
		return kv.NewMemory(), func() error { return nil }, nil
	default:
		s, err := kv.OpenSQLite(baseDir)
		if err != nil {
			return nil, nil, err
		}
		s.ConfigurePool(cfg)
		return s, s.Close, nil
	}
}

// openEnv loads config, opens storage and builds the store and directory.
func openEnv(ctx context.Context, baseDir, workDir string) (*env, func() error, error) {
	cfg, err := config.LoadWithRepo(baseDir, workDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(logger.Config{
		Format: logger.ParseFormat(cfg.LogFormat),
		Level:  logger.ParseLevel(cfg.LogLevel),
	})
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.Warn("unknown types in disabled_types", "types", unknown)
	}

	storage, closeFn, err := openStorage(cfg, baseDir, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s storage: %w", cfg.Backend, err)
	}

	dir, err := identity.OpenDirectory(ctx, storage, cfg.Namespace)
	if err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("failed to open user directory: %w", err)
	}
	st, err := tags.Open(ctx, storage, tags.Options{
		Namespace: cfg.Namespace,
		Lookup:    dir,
		Locale:    cfg.Locale,
		Logger:    log,
	})
	if err != nil {
		_ = closeFn()
		return nil, nil, fmt.Errorf("failed to load tags: %w", err)
	}

	log.Debug("store opened", "backend", cfg.Backend, "namespace", cfg.Namespace, "revision", st.Revision())
	return &env{store: st, dir: dir, cfg: cfg, log: log}, closeFn, nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before opening storage
	if isHelpOrVersion() {
		if err := newCLIApp(nil).Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fail("could not determine home directory: %v", err)
	}
	workDir, err := os.Getwd()
	if err != nil {
		fail("could not determine working directory: %v", err)
	}

	e, closeFn, err := openEnv(context.Background(), filepath.Join(homeDir, config.DirName), workDir)
	if err != nil {
		fail("%v", err)
	}

	code := run(e)
	if err := closeFn(); err != nil {
		e.log.Error("close storage", "error", err)
	}
	os.Exit(code)
}

// run dispatches to the CLI or the MCP server and returns the exit code.
func run(e *env) int {
	if isCLIMode() {
		if err := newCLIApp(e).Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'usertags --help' for usage.\n")
		return 1
	}

	// MCP server mode (default)
	err := mcp.Run(mcp.Deps{Store: e.store, Directory: e.dir, Config: e.cfg, Logger: e.log}, Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
