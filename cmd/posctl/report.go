// cmd/posctl/report.go
package main

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

func (a *app) reportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Sales reports"}
	dashboard := &cobra.Command{
		Use:   "dashboard",
		Short: "Today at a glance",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.client.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			summary := uitable.New()
			summary.AddRow("Today's sales:", fmt.Sprintf("%.2f", d.TodaySales))
			summary.AddRow("Today's orders:", d.TodayOrders)
			summary.AddRow("Low stock items:", d.LowStock)
			summary.AddRow("Users:", d.TotalUsers)
			summary.AddRow("Active shifts:", d.ActiveShifts)
			fmt.Fprintln(out, summary)

			if len(d.RecentOrders) > 0 {
				fmt.Fprintln(out, "\nRecent orders")
				recent := uitable.New()
				recent.AddRow("NUMBER", "TOTAL", "STATUS", "CREATED")
				for _, o := range d.RecentOrders {
					recent.AddRow(o.OrderNumber, fmt.Sprintf("%.2f", o.Total), o.Status, o.CreatedAt.Local().Format("15:04"))
				}
				fmt.Fprintln(out, recent)
			}
			if len(d.LowStockItems) > 0 {
				fmt.Fprintln(out, "\nLow stock")
				low := uitable.New()
				low.AddRow("ID", "NAME", "STOCK")
				for _, it := range d.LowStockItems {
					low.AddRow(it.ID, it.Name, it.Stock)
				}
				fmt.Fprintln(out, low)
			}
			return nil
		},
	}
	cmd.AddCommand(dashboard)
	return cmd
}
