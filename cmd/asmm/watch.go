package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"asmm-quoter/config"
)

func newWatchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Quote once, then re-quote whenever the config file changes",
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, v, cmd.OutOrStdout())
		},
	}
	quoteFlags(cmd.Flags())
	cmd.Flags().Duration("cooldown", 200*time.Millisecond, "两次重载之间的最小间隔")
	return cmd
}

func runWatch(ctx context.Context, v *viper.Viper, out io.Writer) error {
	path := v.GetString("config")
	if path == "" {
		return fmt.Errorf("config: watch needs a config file")
	}
	run, err := prepareQuote(v)
	if err != nil {
		return err
	}
	defer run.log.Close()

	if err := run.quote(out, ""); err != nil {
		return err
	}

	// 回调在 Start 所在 goroutine 上执行
	reloads := 0
	w := config.Watcher{Path: path, Cooldown: v.GetDuration("cooldown"), Logger: run.log}
	err = w.Start(ctx, func(app config.AppConfig) {
		if err := run.session.Reload(app); err != nil {
			return
		}
		reloads++
		fmt.Fprintf(out, "%-12s %d\n", "reload", reloads)
		if err := run.quote(out, ""); err != nil {
			run.log.Warn("re-quote after reload failed", zap.Error(err))
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
