package cmd

import (
	"context"
	"fmt"

	"github.com/tokenized/ckb-examples/internal/examples"
	"github.com/tokenized/ckb-examples/internal/platform/config"
	"github.com/tokenized/ckb-examples/pkg/capacitydiff"
	"github.com/tokenized/ckb-examples/pkg/scripts"
	"github.com/tokenized/ckb-examples/pkg/storage"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdAddress = &cobra.Command{
	Use:   "address [script name] [args hex]",
	Short: "Encodes the address of a configured script, or lists the example accounts",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return errors.New("Incorrect argument count")
		}

		cfg, err := config.Environment()
		if err != nil {
			return errors.Wrap(err, "config")
		}

		ctx, err := Context(c, cfg)
		if err != nil {
			return err
		}

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

		encode := scriptConfig.ScriptAddress
		if short, _ := c.Flags().GetBool(FlagShort); short {
			encode = scriptConfig.ShortScriptAddress
		}

		if len(args) == 2 {
			scriptArgs, err := hexutil.Decode(args[1])
			if err != nil {
				fmt.Printf("Invalid args hex : %s\n", err)
				return nil
			}

			address, err := encode(args[0], scriptArgs)
			if err != nil {
				fmt.Printf("Failed to encode address : %s\n", err)
				return nil
			}
			fmt.Printf("Address : %s\n", address)
			return nil
		}

		accounts := []struct {
			name   string
			script string
			args   string
		}{
			{"Miner", scripts.Secp256k1Blake160, cfg.Accounts.MinerLockArg},
			{"Alice", scripts.Secp256k1Blake160, cfg.Accounts.AliceLockArg},
			{"Custom", capacitydiff.ScriptName, "0x"},
		}

		for _, account := range accounts {
			if len(account.args) == 0 {
				fmt.Printf("%s : not configured\n", account.name)
				continue
			}

			scriptArgs, err := hexutil.Decode(account.args)
			if err != nil {
				fmt.Printf("%s : invalid lock arg : %s\n", account.name, err)
				continue
			}

			address, err := encode(account.script, scriptArgs)
			if err != nil {
				fmt.Printf("%s : %s\n", account.name, err)
				continue
			}
			fmt.Printf("%s : %s\n", account.name, address)
		}
		return nil
	},
}

func loadRegistry(ctx context.Context, hashes storage.Storage,
	cfg *config.Config) (*scripts.Registry, error) {

	registry, err := examples.LoadRegistry(ctx, hashes, cfg.Hashes.Key, cfg.Chain.Environment)
	if err != nil {
		return nil, errors.Wrap(err, "registry")
	}
	return registry, nil
}

func init() {
	cmdAddress.Flags().Bool(FlagShort, false, "Encode deprecated short format addresses")
}
