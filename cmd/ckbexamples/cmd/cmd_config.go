package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/tokenized/ckb-examples/internal/examples"
	"github.com/tokenized/ckb-examples/internal/platform/config"
	"github.com/tokenized/ckb-examples/pkg/storage"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdConfig = &cobra.Command{
	Use:   "config",
	Short: "Prints the runtime config and the script config built from the manifest",
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := config.Environment()
		if err != nil {
			return errors.Wrap(err, "config")
		}

		ctx, err := Context(c, cfg)
		if err != nil {
			return err
		}

		cfgJSON, err := json.MarshalIndent(config.SafeConfig(*cfg), "", "    ")
		if err != nil {
			return errors.Wrap(err, "marshal config")
		}
		fmt.Printf("Config : %s\n", cfgJSON)

		hashes := storage.CreateStorage(examples.StorageConfig(cfg, cfg.Hashes.Bucket,
			cfg.Hashes.Root))
		registry, err := loadRegistry(ctx, hashes, cfg)
		if err != nil {
			return err
		}

		scriptConfig, err := registry.Get()
		if err != nil {
			return err
		}

		scriptsJSON, err := json.MarshalIndent(scriptConfig, "", "    ")
		if err != nil {
			return errors.Wrap(err, "marshal scripts")
		}
		fmt.Printf("Scripts : %s\n", scriptsJSON)
		return nil
	},
}
