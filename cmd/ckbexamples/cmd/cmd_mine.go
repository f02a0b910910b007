package cmd

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdMine = &cobra.Command{
	Use:   "mine [count]",
	Short: "Mines blocks on the dev chain and waits for the indexer",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) > 1 {
			return errors.New("Incorrect argument count")
		}

		count := 1
		if len(args) == 1 {
			var err error
			count, err = strconv.Atoi(args[0])
			if err != nil || count < 1 {
				fmt.Printf("Invalid block count : %s\n", args[0])
				return nil
			}
		}

		ctx, env, err := loadEnv(c)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Miner.Mine(ctx, count); err != nil {
			return errors.Wrap(err, "mine")
		}

		tip, err := env.Node.GetTipBlockNumber(ctx)
		if err != nil {
			return errors.Wrap(err, "tip")
		}
		fmt.Printf("Tip : %d\n", tip)
		return nil
	},
}
