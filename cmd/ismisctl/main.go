package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/config"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/logger"
)

// env carries what every subcommand needs once configuration is loaded.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "ismisctl",
		Short:         "Operations tooling for the ISMIS API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if level, _ := cmd.Flags().GetString("log-level"); level != "" {
				cfg.Log.Level = level
			}
			l, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			e.cfg, e.log = cfg, l
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}
	root.PersistentFlags().String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(newTokenCmd(e))
	root.AddCommand(newImportOFXCmd(e))
	root.AddCommand(newRecalcCmd(e))
	root.AddCommand(newCompareCmd(e))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
