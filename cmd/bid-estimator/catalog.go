package main

import (
	"fmt"

	"github.com/iwvelando/bid-estimator/pkg/constants"
	"github.com/iwvelando/bid-estimator/pkg/money"
	"github.com/spf13/cobra"
)

func newCatalogCmd(a *app) *cobra.Command {
	var trade string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the devices and default prices of a trade",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			cat, err := conf.Catalog()
			if err != nil {
				return fmt.Errorf("failed to build catalog: %w", err)
			}
			sub, err := cat.Trade(trade)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-28s %-32s %12s\n", "Key", "Device", "Unit Price")
			for _, entry := range sub.Entries() {
				fmt.Fprintf(w, "%-28s %-32s %12s\n", entry.Key, entry.DisplayName, money.Currency(entry.DefaultUnitPrice))
			}

			fmt.Fprintln(w)
			fmt.Fprintln(w, "Trades:")
			for _, t := range cat.Trades() {
				fmt.Fprintf(w, "  %-12s %s (%d devices)\n", t.Name, t.DisplayName, len(t.DeviceKeys))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&trade, "trade", constants.AllTrade, "trade to list")
	return cmd
}
