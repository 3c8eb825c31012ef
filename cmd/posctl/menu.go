// cmd/posctl/menu.go
package main

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

func (a *app) menuCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "menu", Short: "Browse the menu"}

	var f domain.MenuFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List menu items",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, page, err := a.client.ListMenu(cmd.Context(), f)
			if err != nil {
				return err
			}
			table := uitable.New()
			table.MaxColWidth = 40
			table.AddRow("ID", "NAME", "CATEGORY", "PRICE", "STOCK", "AVAILABLE")
			for _, it := range items {
				table.AddRow(it.ID, it.Name, it.Category, fmt.Sprintf("%.2f", it.Price), it.Stock, it.IsAvailable)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d items)\n", page.CurrentPage, page.LastPage, page.Total)
			return nil
		},
	}
	list.Flags().StringVar(&f.Category, "category", "", "only this category")
	list.Flags().StringVar(&f.Search, "search", "", "name contains")
	list.Flags().Int64Var(&f.Page.Page, "page", 1, "page number")
	list.Flags().Int64Var(&f.Limit, "limit", 20, "items per page")
	cmd.AddCommand(list)
	return cmd
}
