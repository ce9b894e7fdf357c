package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rileyhilliard/barstat/internal/capability"
	"github.com/rileyhilliard/barstat/internal/clock"
	"github.com/rileyhilliard/barstat/internal/config"
	"github.com/rileyhilliard/barstat/internal/engine"
	"github.com/rileyhilliard/barstat/internal/logger"
	"github.com/rileyhilliard/barstat/internal/protocol"
	"github.com/spf13/cobra"
)

// newRootCmd builds the barstat command. env supplies the capabilities'
// dependencies; the zero value uses the real system.
func newRootCmd(env capability.Env) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "barstat",
		Short: "Stream system status blocks to i3bar or swaybar",
		Long: `barstat measures the blocks listed in its config file, all at the same
time, and writes one status line per refresh in the i3bar JSON protocol.

The config file is re-read before every refresh, so edits show up on the
next line without a restart.

Examples:
  barstat
  barstat --config ~/.config/barstat/laptop.yaml
  barstat --output term --interval 2s`,
		Args:          cobra.NoArgs,
		Version:       formatVersion(version),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFlags(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, configPath, env)
		},
	}
	cmd.SetVersionTemplate(versionText())
	addFlags(cmd, &configPath)
	return cmd
}

// run loads the config and streams until the command's context is done.
func run(cmd *cobra.Command, configPath string, env capability.Env) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.NewEnvLogger("[barstat]")

	loader := config.NewLoader(configPath, cmd.Flags())
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	log.Debug("loaded %d blocks from %s", cfg.Snapshot.Len(), loader.Path())

	registry := capability.Builtin(env)
	defer func() {
		if err := registry.Close(); err != nil {
			log.Debug("closing capabilities: %v", err)
		}
	}()

	encoder, err := protocol.New(cfg.General.Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	coordinator, err := engine.New(engine.Options{
		Source:   loader,
		Registry: registry,
		Encoder:  encoder,
		Clock:    clock.Real(),
		Logger:   logger.NewEnvLogger("[engine]"),
	}, cfg)
	if err != nil {
		return err
	}

	return coordinator.Run(ctx)
}

// Execute runs the root command and exits non-zero on failure. SIGINT and
// SIGTERM stop the stream cleanly with exit status 0.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(capability.Env{}).ExecuteContext(ctx)
	stop()
	if err != nil {
		msg := err.Error()
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		fmt.Fprint(os.Stderr, msg)
		os.Exit(1)
	}
}
