package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/amirbrooks/vaulttasks/internal/config"
	"github.com/amirbrooks/vaulttasks/internal/store"
	"github.com/amirbrooks/vaulttasks/internal/task"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitConflict = 4
	ExitInternal = 10
)

type GlobalFlags struct {
	Root         string
	ConfigPath   string
	JSON         bool
	NDJSON       bool
	Plain        bool
	Format       string
	Quiet        bool
	Verbose      bool
	StdoutJSON   bool
	StdoutNDJSON bool
	ExportDir    string
}

// usageError marks bad invocations; it maps to ExitUsage.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

type app struct {
	gf     GlobalFlags
	stdin  io.Reader
	out    io.Writer
	errOut io.Writer
	now    func() time.Time

	cfg       *config.Config
	logger    *log.Logger
	engine    *store.Engine
	vaultRoot string
}

func Run(args []string) int {
	return run(args, os.Stdin, os.Stdout, os.Stderr, func() time.Time { return time.Now().UTC() })
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer, now func() time.Time) int {
	a := &app{stdin: stdin, out: stdout, errOut: stderr, now: now}
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if len(args) == 0 {
		_ = root.Help()
		return ExitUsage
	}
	cmd, err := root.ExecuteC()
	if err == nil {
		return ExitOK
	}
	name := "vaulttasks"
	if cmd != nil && cmd != root {
		name = cmd.Name()
	}
	a.printError(name, err)
	return exitCode(err)
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vaulttasks",
		Short: "Markdown task manager for project notes",
		Long: `vaulttasks manages checkbox tasks kept under a "## Tasks" heading in
markdown notes whose frontmatter declares type: Project.

Task line format:
  - [ ] text 📅 2024-01-01 (High) 🔖 bug 🔖 ui`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup()
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.gf.Root, "root", "", "Vault root (default: $"+config.EnvRoot+" or the working directory)")
	pf.StringVar(&a.gf.ConfigPath, "config", "", "Config file (default: <root>/"+config.FileName+")")
	pf.BoolVar(&a.gf.JSON, "json", false, "Write JSON output to the export directory")
	pf.BoolVar(&a.gf.NDJSON, "ndjson", false, "Write NDJSON output to the export directory")
	pf.BoolVar(&a.gf.StdoutJSON, "stdout-json", false, "Print JSON to stdout (requires --json)")
	pf.BoolVar(&a.gf.StdoutNDJSON, "stdout-ndjson", false, "Print NDJSON to stdout (requires --ndjson)")
	pf.StringVar(&a.gf.ExportDir, "export-dir", "", "Override export directory")
	pf.BoolVar(&a.gf.Plain, "plain", false, "TSV output without colors")
	pf.StringVar(&a.gf.Format, "format", "", "Listing format: human|telegram")
	pf.BoolVar(&a.gf.Quiet, "quiet", false, "Only log errors")
	pf.BoolVar(&a.gf.Verbose, "verbose", false, "Log debug output")

	root.AddCommand(
		a.newProjectsCmd(),
		a.newAddCmd(),
		a.newListCmd(),
		a.newCountsCmd(),
		a.newDoneCmd(),
		a.newToggleCmd(),
		a.newEditCmd(),
		a.newRemoveCmd(),
		a.newScratchpadCmd(),
		a.newTagsCmd(),
		a.newConfigCmd(),
		a.newWatchCmd(),
	)
	return root
}

func (a *app) setup() error {
	gf := &a.gf
	if gf.JSON && gf.NDJSON {
		return usagef("--json and --ndjson are mutually exclusive")
	}
	if gf.StdoutJSON && !gf.JSON {
		return usagef("--stdout-json requires --json")
	}
	if gf.StdoutNDJSON && !gf.NDJSON {
		return usagef("--stdout-ndjson requires --ndjson")
	}
	if gf.Quiet && gf.Verbose {
		return usagef("--quiet and --verbose are mutually exclusive")
	}
	gf.Format = strings.ToLower(strings.TrimSpace(gf.Format))
	switch gf.Format {
	case "", "human", "telegram":
	default:
		return usagef("unknown format %q (use human|telegram)", gf.Format)
	}

	root := gf.Root
	if strings.TrimSpace(root) == "" {
		root = config.DefaultRoot()
	}
	cfg, err := config.Load(root, gf.ConfigPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if gf.ExportDir == "" {
		gf.ExportDir = cfg.ExportDir
	}
	a.logger = newLogger(a.errOut, cfg.LogLevel, gf.Quiet, gf.Verbose)
	return nil
}

func newLogger(w io.Writer, level string, quiet, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          "vaulttasks",
		ReportTimestamp: verbose,
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	switch {
	case verbose:
		lvl = log.DebugLevel
	case quiet:
		lvl = log.ErrorLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// openEngine opens the vault on first use.
func (a *app) openEngine() (*store.Engine, error) {
	if a.engine != nil {
		return a.engine, nil
	}
	vault, err := store.OpenVault(a.cfg.Root, a.logger)
	if err != nil {
		return nil, err
	}
	a.engine = store.NewEngine(vault, store.Options{
		Logger:        a.logger,
		ReadBatchSize: a.cfg.ReadBatchSize,
		Extract:       task.ExtractOptions{CloseAtHeading: a.cfg.CloseSectionAtHeading},
		DefaultTags:   a.cfg.DefaultTags,
		Now:           a.now,
	})
	a.vaultRoot = vault.Root
	a.logger.Debug("opened vault", "root", vault.Root)
	return a.engine, nil
}

func exitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ue),
		errors.Is(err, store.ErrEmptyInput),
		errors.Is(err, store.ErrInvalid),
		errors.Is(err, config.ErrInvalid),
		strings.HasPrefix(err.Error(), "unknown command"):
		return ExitUsage
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrProjectNotFound):
		return ExitNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrAmbiguousOrMissingLine),
		errors.Is(err, errSessionLocked):
		return ExitConflict
	default:
		return ExitInternal
	}
}

func (a *app) printError(name string, err error) {
	var mc *store.MatchConflictError
	if errors.As(err, &mc) {
		fmt.Fprintf(a.errOut, "%s: %d tasks match; use <project>:<line>\n", name, len(mc.Matches))
		for _, r := range mc.Matches {
			fmt.Fprintf(a.errOut, "  %s\t%s\n", a.pathRef(r), r.SourceLine)
		}
		return
	}
	if err == store.ErrNotFound {
		fmt.Fprintf(a.errOut, "%s: no matching task\n", name)
		return
	}
	fmt.Fprintf(a.errOut, "%s: %v\n", name, err)
}

// pathRef renders r as "<vault-relative path>:<line>", which stays unique
// when several notes share a name.
func (a *app) pathRef(r task.Record) string {
	if r.Path == "" || a.vaultRoot == "" {
		return r.Ref()
	}
	rel, err := filepath.Rel(a.vaultRoot, r.Path)
	if err != nil {
		return r.Ref()
	}
	return fmt.Sprintf("%s:%d", strings.TrimSuffix(filepath.ToSlash(rel), ".md"), r.Line)
}

// emit writes payload as JSON or items as NDJSON when requested, and calls
// human otherwise.
func (a *app) emit(base string, payload any, items []any, human func(w io.Writer) error) error {
	gf := a.gf
	if gf.NDJSON {
		if gf.StdoutNDJSON {
			for _, item := range items {
				b, err := json.Marshal(item)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, string(b))
			}
			return nil
		}
		path, err := writeNDJSONExport(gf, base, items)
		if err != nil {
			return err
		}
		if !gf.Quiet {
			fmt.Fprintln(a.out, "Wrote NDJSON to:", path)
		}
		return nil
	}
	if gf.JSON {
		if gf.StdoutJSON {
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		}
		path, err := writeJSONExport(gf, base, payload)
		if err != nil {
			return err
		}
		if !gf.Quiet {
			fmt.Fprintln(a.out, "Wrote JSON to:", path)
		}
		return nil
	}
	return human(a.out)
}

func writeJSONExport(gf GlobalFlags, base string, payload any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return writeExportFile(gf.ExportDir, base, "json", data)
}

func writeNDJSONExport(gf GlobalFlags, base string, items []any) (string, error) {
	var b strings.Builder
	for _, item := range items {
		line, err := json.Marshal(item)
		if err != nil {
			return "", err
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	return writeExportFile(gf.ExportDir, base, "ndjson", []byte(b.String()))
}

// writeExportFile names exports <base>-<timestamp>-<ulid>.<ext>, so
// concurrent exports never collide.
func writeExportFile(dir, base, ext string, data []byte) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("export directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	id := ulid.Make().String()
	ts := time.Now().UTC().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("%s-%s-%s.%s", base, ts, strings.ToLower(id[len(id)-6:]), ext))
	tmp := filepath.Join(dir, ".tmp-"+id)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}
