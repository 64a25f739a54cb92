package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newLogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "logs",
		Short:         "Stream the backend's live log feed (Ctrl-C to stop)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runLogs,
	}
}

func runLogs(cmd *cobra.Command, args []string) error {
	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = c.api.TailLogs(ctx, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
