package cmd

import (
	"fmt"

	"github.com/tokenized/ckb-examples/internal/examples"
	"github.com/tokenized/ckb-examples/pkg/ckb"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdTransfer = &cobra.Command{
	Use:   "transfer [address] [amount CKB]",
	Short: "Transfers CKB from the miner, to alice and 100 CKB by default",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) > 2 {
			return errors.New("Incorrect argument count")
		}

		amount := examples.TransferAmount
		if len(args) == 2 {
			value, err := examples.ParseCKB(args[1])
			if err != nil {
				fmt.Printf("Invalid amount : %s\n", err)
				return nil
			}
			amount = value
		}

		ctx, env, err := loadEnv(c)
		if err != nil {
			return err
		}
		defer env.Close()

		var to string
		if len(args) > 0 {
			to = args[0]
		} else {
			to, err = env.AliceAddress()
			if err != nil {
				return err
			}
		}

		commit, _ := c.Flags().GetBool(FlagCommit)

		var hash ckb.Hash
		if commit {
			hash, err = env.FillAccount(ctx, to, amount)
		} else {
			hash, err = env.TransferCKB(ctx, to, amount)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Tx : %s\n", hash)
		return nil
	},
}

var cmdCustomScript = &cobra.Command{
	Use:   "custom-script",
	Short: "Fills the capacity diff lock from the miner and spends it back",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 0 {
			return errors.New("Incorrect argument count")
		}

		ctx, env, err := loadEnv(c)
		if err != nil {
			return err
		}
		defer env.Close()

		if !env.HasCustomScript {
			fmt.Printf("Capacity diff script is not deployed on this chain\n")
			return nil
		}

		hash, err := env.CustomScript(ctx)
		if err != nil {
			return err
		}

		commit, _ := c.Flags().GetBool(FlagCommit)
		if commit {
			if err := env.Miner.MineToCommitted(ctx, hash, env.Config.Miner.Step); err != nil {
				return errors.Wrap(err, "mine")
			}
		}

		fmt.Printf("Tx : %s\n", hash)
		return nil
	},
}

func init() {
	cmdTransfer.Flags().Bool(FlagCommit, false, "Mine until the transaction is committed")
	cmdCustomScript.Flags().Bool(FlagCommit, false, "Mine until the transaction is committed")
}
