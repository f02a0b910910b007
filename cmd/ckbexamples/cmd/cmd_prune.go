package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdPrune = &cobra.Command{
	Use:   "prune",
	Short: "Removes archived transactions that were rejected or dropped by the node",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 0 {
			return errors.New("Incorrect argument count")
		}

		ctx, env, err := loadEnv(c)
		if err != nil {
			return err
		}
		defer env.Close()

		removed, err := env.PruneArchive(ctx)
		if err != nil {
			return errors.Wrap(err, "prune")
		}

		for _, hash := range removed {
			fmt.Printf("Removed : %s\n", hash)
		}
		fmt.Printf("Removed %d archived transactions\n", len(removed))
		return nil
	},
}
