package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cargoport/internal/api"
	"cargoport/internal/config"
	"cargoport/internal/store"
)

func newNewsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "news",
		Short: "List stored news headlines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(_ *config.Config, st store.Backend) error {
				items, err := api.NewNewsService(st).Latest(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No news stored")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{item.PublishedAt.Local().Format(time.DateTime), item.Title, item.Link})
				}
				fmt.Fprintln(out, renderTable([]column{
					{Header: "Published"},
					{Header: "Title", MaxWidth: 60},
					{Header: "Link"},
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", api.DefaultNewsLimit, "Number of headlines")
	return cmd
}
