package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittopnfs/internal/logger"
	"github.com/marmos91/dittopnfs/pkg/config"
	"github.com/marmos91/dittopnfs/pkg/server"
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=..."
var (
	version = "dev"
	commit  = "none"
)

var (
	mainCmd = &cobra.Command{
		Use:           "dittopnfs",
		Short:         "pNFS device and layout manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}

			if path == "" {
				path, err = config.InitConfig(force)
				if err != nil {
					return err
				}
			} else if err := config.InitConfigToPath(path, force); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if _, err := config.ResolveDataServers(cmd.Context(), nil, cfg.PNFS.DataServers); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	}

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the device manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			watch, err := cmd.Flags().GetBool("watch")
			if err != nil {
				return err
			}
			return start(cmd.Context(), path, watch)
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dittopnfs %s (commit %s)\n", version, commit)
		},
	}
)

func init() {
	mainCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (default $XDG_CONFIG_HOME/dittopnfs/config.yaml)")
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing configuration file")
	startCmd.Flags().Bool("watch", false, "Reload data servers and log level when the configuration file changes")

	mainCmd.AddCommand(
		initCmd,
		validateCmd,
		startCmd,
		versionCmd,
	)
}

func start(ctx context.Context, path string, watch bool) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		cfg     *config.Config
		reloads chan *config.Config
		err     error
	)

	if watch {
		reloads = make(chan *config.Config, 1)
		cfg, err = config.Watch(path, func(next *config.Config) {
			// keep only the latest pending configuration
			select {
			case <-reloads:
			default:
			}
			reloads <- next
		})
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return err
	}

	srv, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}

	if reloads != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case next := <-reloads:
					if err := srv.Reload(ctx, next); err != nil {
						logger.Warn("Configuration reload failed: %v", err)
					}
				}
			}
		}()
	}

	logger.Info("dittopnfs %s starting", version)

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func main() {
	if err := mainCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
