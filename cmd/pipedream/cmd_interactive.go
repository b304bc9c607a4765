package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pipedream/cmd/pipedream/repl"
	"pipedream/internal/config"
	"pipedream/internal/logging"
	"pipedream/internal/shell"
)

// runInteractive starts the prompt. A session that fails to start is shown
// in place of the prompt rather than aborting.
func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	var sess repl.Evaluator
	s, initErr := shell.New(cfg.Shell, cfg.Execution)
	if initErr != nil {
		logging.SessionError("Shell init failed: %v", initErr)
	} else {
		sess = s
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var updates <-chan *config.Config
	watcher, err := config.NewWatcher(path)
	if err != nil {
		logging.BootWarn("Config watcher unavailable: %v", err)
	} else if err := watcher.Start(ctx); err != nil {
		logging.BootWarn("Config watcher failed to start: %v", err)
		watcher.Stop()
	} else {
		defer watcher.Stop()
		updates = watcher.Updates()
	}

	p := tea.NewProgram(
		repl.New(cfg, sess, initErr, updates),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err = p.Run()
	return err
}
