package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/config"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/driver/desktop"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/driver/mock"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/executor"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/logger"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/report"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/validator"
)

var playCommand = &cli.Command{
	Name:      "play",
	Usage:     "Play a macro",
	ArgsUsage: "<macro.yaml>",
	Description: `Play a macro file on the desktop.

Step numbers start at 1, as printed by "macrotool labels".

Examples:
  macrotool play login.yaml
  macrotool play login.yaml --from 4
  macrotool play login.yaml --until 10
  macrotool play login.yaml --select 1,3,5-7
  macrotool play login.yaml -e USER=bob -e PASS=secret
  macrotool play login.yaml --dry-run
  macrotool play login.yaml --report run.json`,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "from",
			Usage: "Start at step `N`",
		},
		&cli.IntFlag{
			Name:  "until",
			Usage: "Stop after step `N`",
		},
		&cli.StringFlag{
			Name:  "select",
			Usage: "Play only these steps, e.g. 1,3,5-7",
		},
		&cli.StringSliceFlag{
			Name:    "var",
			Aliases: []string{"e"},
			Usage:   "Initial variables (KEY=VALUE)",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Play against an in-memory desktop and print the input it would send",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a JSON playback report to `FILE`",
		},
		&cli.BoolFlag{
			Name:  "skip-validation",
			Usage: "Play even if static validation reports problems",
		},
	},
	Action: runPlay,
}

// PlayConfig holds everything needed for one play invocation.
type PlayConfig struct {
	MacroPath      string
	Env            map[string]string
	From           int   // 1-based, 0 = unset
	Until          int   // 1-based, 0 = unset
	Select         []int // 1-based
	DryRun         bool
	SkipValidation bool
	ReportPath     string
	Config         *config.Config
	Out            io.Writer
}

func runPlay(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one macro file is required")
	}
	if c.IsSet("select") && (c.IsSet("from") || c.IsSet("until")) {
		return fmt.Errorf("--select cannot be combined with --from or --until")
	}
	if c.IsSet("from") && c.IsSet("until") {
		return fmt.Errorf("--from and --until are exclusive")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	selected, err := parseStepList(c.String("select"))
	if err != nil {
		return err
	}

	// CLI variables override the config file.
	env := make(map[string]string)
	for k, v := range cfg.Env {
		env[k] = v
	}
	for k, v := range parseEnvVars(c.StringSlice("var")) {
		env[k] = v
	}

	return executePlay(c.Context, &PlayConfig{
		MacroPath:      c.Args().First(),
		Env:            env,
		From:           c.Int("from"),
		Until:          c.Int("until"),
		Select:         selected,
		DryRun:         c.Bool("dry-run"),
		SkipValidation: c.Bool("skip-validation"),
		ReportPath:     c.String("report"),
		Config:         cfg,
		Out:            c.App.Writer,
	})
}

func executePlay(ctx context.Context, pc *PlayConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if pc.Out == nil {
		pc.Out = os.Stdout
	}

	path, err := resolveMacroPath(pc.MacroPath)
	if err != nil {
		return err
	}
	m, err := macro.ParseFile(path)
	if err != nil {
		return err
	}

	if !pc.SkipValidation {
		if result := validator.New(pc.Config.Player.MaxDepth).ValidateMacro(m); !result.IsValid() {
			printValidationErrors(pc.Out, result)
			return fmt.Errorf("%s has %d problem(s); use --skip-validation to play anyway", path, len(result.Errors))
		}
	}

	if err := checkStepRange(m, pc); err != nil {
		return err
	}

	deps, cleanup := createDeps(pc)
	defer cleanup()

	out := pc.Out
	fmt.Fprintf(out, "\n  %s%s%s (%s, %d steps)\n", color(colorBold), m.Name, color(colorReset), path, m.Len())
	fmt.Fprintln(out, strings.Repeat("─", 60))

	var rw *report.Writer
	if pc.ReportPath != "" {
		backend := "desktop"
		if pc.DryRun {
			backend = "mock"
		}
		rw, err = report.NewWriter(pc.ReportPath, m, report.Config{
			RunnerVersion: Version,
			Backend:       backend,
			Variables:     pc.Env,
		})
		if err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		rw.Start()
	}

	player := executor.NewPlayer(m, deps, executor.PlayerConfig{
		Runner: executor.RunnerConfigFrom(pc.Config.Player),
		Env:    pc.Env,
		OnStepStarted: func(index int, step macro.Step) {
			onStepStarted(out, index, step)
			if rw != nil {
				rw.StepStarted(index)
			}
		},
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var started bool
	switch {
	case len(pc.Select) > 0:
		started = player.PlaySelected(ctx, toIndices(pc.Select))
	case pc.From > 0:
		started = player.PlayFrom(ctx, pc.From-1)
	case pc.Until > 0:
		started = player.PlayUntil(ctx, pc.Until-1)
	default:
		started = player.Play(ctx)
	}
	if !started {
		return fmt.Errorf("player is busy")
	}

	result := player.Wait()
	if pc.DryRun {
		printDryRunEvents(out, deps.Input.(*mock.Desktop))
	}
	printRunSummary(out, result)
	if rw != nil {
		if err := rw.Finish(result); err != nil {
			logger.Warn("writing report: %v", err)
		}
		fmt.Fprintf(out, "  Report: %s\n", pc.ReportPath)
	}

	switch result.Status {
	case core.RunFailed:
		return result.Err
	case core.RunCancelled:
		return errors.New("playback cancelled")
	}
	return nil
}

// createDeps builds the collaborators. The cleanup function releases them.
func createDeps(pc *PlayConfig) (executor.Deps, func()) {
	if pc.DryRun {
		d := mock.New(mock.Config{Repository: macro.FileRepository{}})
		return executor.Deps{
			Input:      d,
			Screen:     d,
			Windows:    d,
			OCR:        d,
			Repository: d,
			Launcher:   d,
			TextInput:  d,
		}, func() {}
	}

	d := desktop.New()
	ocr := desktop.NewTesseract()
	deps := executor.Deps{
		Input:      d,
		Screen:     d,
		Windows:    d,
		OCR:        ocr,
		Repository: macro.FileRepository{},
		Launcher:   desktop.Launcher{},
		TextInput:  desktop.NewTextWatcher(d),
	}
	return deps, func() {
		if err := ocr.Close(); err != nil {
			logger.Warn("closing OCR: %v", err)
		}
	}
}

func checkStepRange(m *macro.Macro, pc *PlayConfig) error {
	check := func(flag string, n int) error {
		if n < 1 || n > m.Len() {
			return fmt.Errorf("--%s %d is out of range (macro has %d steps)", flag, n, m.Len())
		}
		return nil
	}
	if pc.From != 0 {
		if err := check("from", pc.From); err != nil {
			return err
		}
	}
	if pc.Until != 0 {
		if err := check("until", pc.Until); err != nil {
			return err
		}
	}
	for _, n := range pc.Select {
		if err := check("select", n); err != nil {
			return err
		}
	}
	return nil
}

func parseEnvVars(envs []string) map[string]string {
	result := make(map[string]string)
	for _, e := range envs {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}
	return result
}

// parseStepList parses "1,3,5-7" into sorted, de-duplicated step numbers.
func parseStepList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	seen := make(map[int]bool)
	var out []int
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid step %q", part)
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("invalid step range %q", part)
			}
		}
		if a > b {
			return nil, fmt.Errorf("invalid step range %q", part)
		}
		for n := a; n <= b; n++ {
			add(n)
		}
	}
	sort.Ints(out)
	return out, nil
}

func toIndices(steps []int) []int {
	out := make([]int, len(steps))
	for i, n := range steps {
		out[i] = n - 1
	}
	return out
}
