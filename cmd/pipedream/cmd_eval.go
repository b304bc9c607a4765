package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pipedream/cmd/pipedream/ui"
	"pipedream/internal/output"
	"pipedream/internal/shell"
)

var evalJSON bool

// evalCmd evaluates a single expression and exits
var evalCmd = &cobra.Command{
	Use:   "eval [expression]",
	Short: "Evaluate one expression and print the result",
	Long: `Evaluates the arguments, joined by spaces, as one line and prints the
classified result as plain text, or as JSON with --json.

Examples:
  pipedream eval '1 + 2'
  pipedream eval '[]sh.Value{sh.Rec("a", 1), sh.Rec("b", 2)}'
  pipedream eval --json '!ls'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEval,
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	sess, err := shell.New(cfg.Shell, cfg.Execution)
	if err != nil {
		logger.Error("shell init failed", zap.Error(err))
		return err
	}

	line := strings.Join(args, " ")
	data, err := sess.Evaluate(line)
	if err != nil {
		logger.Debug("evaluation failed", zap.String("line", line), zap.Error(err))
		return err
	}

	out := output.Classify(data)
	logger.Debug("evaluated",
		zap.String("line", line),
		zap.String("output", output.Name(out)),
	)

	if evalJSON {
		return ui.JSON(cmd.OutOrStdout(), out)
	}
	return ui.Plain(cmd.OutOrStdout(), out, cfg.UI.NothingPlaceholder)
}
