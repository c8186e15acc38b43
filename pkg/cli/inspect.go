package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/validator"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Check macros without playing them",
	ArgsUsage: "<macro-file-or-folder>...",
	Description: `Parse macros and every macro they embed, and report unknown labels,
repeat loops without a start label, missing templates, empty search areas,
invalid patterns and expressions, and circular embedding.`,
	Action: runValidate,
}

var labelsCommand = &cli.Command{
	Name:      "labels",
	Usage:     "List the steps of a macro",
	ArgsUsage: "<macro.yaml>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "all",
			Aliases: []string{"a"},
			Usage:   "Include unlabeled steps",
		},
	},
	Action: runLabels,
}

func runValidate(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("at least one macro file or folder is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	v := validator.New(cfg.Player.MaxDepth)
	out := c.App.Writer
	problems := 0
	for _, path := range c.Args().Slice() {
		result := v.Validate(path)
		for _, f := range result.Files {
			fmt.Fprintf(out, "  %s✓%s %s\n", color(colorGreen), color(colorReset), f)
		}
		printValidationErrors(out, result)
		problems += len(result.Errors)
	}

	if problems > 0 {
		return fmt.Errorf("%d problem(s) found", problems)
	}
	return nil
}

func runLabels(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one macro file is required")
	}
	path, err := resolveMacroPath(c.Args().First())
	if err != nil {
		return err
	}
	m, err := macro.ParseFile(path)
	if err != nil {
		return err
	}
	printSteps(c.App.Writer, m, c.Bool("all"))
	return nil
}

// printSteps lists labeled steps, or every step when all is set.
func printSteps(out io.Writer, m *macro.Macro, all bool) {
	for i, s := range m.Steps() {
		label := s.TrimmedLabel()
		if label == "" && !all {
			continue
		}
		if label != "" {
			label = color(colorCyan) + label + color(colorReset) + ": "
		}
		fmt.Fprintf(out, "%4d  %s%s\n", i+1, label, s.Describe())
	}
}

func printValidationErrors(out io.Writer, result *validator.Result) {
	for _, err := range result.Errors {
		fmt.Fprintf(out, "  %s✗%s %v\n", color(colorRed), color(colorReset), err)
	}
}
