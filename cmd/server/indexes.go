package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctx.cfg.Database.Driver == "memory" {
				return errors.New("indexes: database.driver is memory, nothing to do")
			}
			st, err := openStores(ctx.cfg.Database)
			if err != nil {
				return err
			}
			defer st.close()

			if err := st.ensureIndexes(cmd.Context()); err != nil {
				return fmt.Errorf("ensure indexes: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexes are up to date")
			return nil
		},
	}
}
