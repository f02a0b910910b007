package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/tokenized/ckb-examples/internal/examples"
	"github.com/tokenized/ckb-examples/internal/platform/config"
	"github.com/tokenized/ckb-examples/internal/platform/logger"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	FlagDebugMode = "debug"
	FlagCommit    = "commit"
	FlagShort     = "short"
)

var build struct {
	version string
	date    string
	user    string
}

var ckbCmd = &cobra.Command{
	Use:           "ckbexamples",
	Short:         "CKB transaction examples for a dev chain",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetBuild records the build details printed by the version command.
func SetBuild(version, date, user string) {
	build.version = version
	build.date = date
	build.user = user
}

func Execute() {
	ckbCmd.PersistentFlags().Bool(FlagDebugMode, false, "Log debug messages")

	ckbCmd.AddCommand(cmdVersion)
	ckbCmd.AddCommand(cmdConfig)
	ckbCmd.AddCommand(cmdAddress)
	ckbCmd.AddCommand(cmdMine)
	ckbCmd.AddCommand(cmdTransfer)
	ckbCmd.AddCommand(cmdCustomScript)
	ckbCmd.AddCommand(cmdPrune)

	if err := ckbCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error : %s\n", err)
		os.Exit(1)
	}
}

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Prints the build version",
	RunE: func(c *cobra.Command, args []string) error {
		fmt.Printf("Build %s (%s on %s)\n", build.version, build.user, build.date)
		return nil
	},
}

// Context returns a context carrying a logger built from the config.
func Context(c *cobra.Command, cfg *config.Config) (context.Context, error) {
	debugMode, _ := c.Flags().GetBool(FlagDebugMode)

	log, err := logger.New(logger.Config{
		Format:      cfg.Log.Format,
		Development: cfg.Log.Development || debugMode,
	})
	if err != nil {
		return nil, errors.Wrap(err, "logger")
	}

	return logger.NewContextWithLogger(log), nil
}

// loadEnv reads the config and connects to the node.
func loadEnv(c *cobra.Command) (context.Context, *examples.Env, error) {
	cfg, err := config.Environment()
	if err != nil {
		return nil, nil, errors.Wrap(err, "config")
	}

	ctx, err := Context(c, cfg)
	if err != nil {
		return nil, nil, err
	}

	env, err := examples.NewEnv(ctx, cfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "env")
	}

	return ctx, env, nil
}
