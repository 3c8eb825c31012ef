// cmd/posctl/order.go
package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/cart"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

// parseLine reads an "id:qty" item flag; the quantity defaults to 1.
func parseLine(s string) (int64, int, error) {
	idPart, qtyPart, hasQty := strings.Cut(s, ":")
	id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, errors.NotValidf("item %q", s)
	}
	qty := 1
	if hasQty {
		qty, err = strconv.Atoi(strings.TrimSpace(qtyPart))
		if err != nil || qty <= 0 {
			return 0, 0, errors.NotValidf("quantity in %q", s)
		}
	}
	return id, qty, nil
}

func (a *app) orderCmd() *cobra.Command {
	var (
		lines    []string
		method   string
		customer string
		phone    string
		notes    string
	)
	cmd := &cobra.Command{
		Use:     "order",
		Short:   "Ring up an order",
		Example: "  posctl order --item 1:2 --item 4 --payment cash",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(lines) == 0 {
				return errors.NotValidf("order without --item")
			}
			ctx := cmd.Context()
			c := cart.New()
			for _, l := range lines {
				id, qty, err := parseLine(l)
				if err != nil {
					return err
				}
				item, err := a.client.GetMenuItem(ctx, id)
				if err != nil {
					return err
				}
				if err := c.AddQuantity(*item, qty); err != nil {
					return err
				}
			}
			req, err := c.Checkout(domain.PaymentMethod(method), customer, phone, notes)
			if err != nil {
				return err
			}
			order, err := a.client.CreateOrder(ctx, req)
			if err != nil {
				return err
			}
			printOrder(cmd, order)
			if order.Status == domain.StatusPending && order.PaymentMethod != domain.PaymentCash {
				p, err := a.client.CreatePayment(ctx, order.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Awaiting payment of %s, QR: %s (expires %s)\n",
					p.GrossAmount, p.QRString, p.ExpiresAt.Local().Format("15:04"))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&lines, "item", "i", nil, "menu item as id:qty, repeatable")
	cmd.Flags().StringVar(&method, "payment", string(domain.PaymentCash), "cash, card, digital or qr")
	cmd.Flags().StringVar(&customer, "customer", "", "customer name")
	cmd.Flags().StringVar(&phone, "phone", "", "customer phone")
	cmd.Flags().StringVar(&notes, "notes", "", "order notes")
	return cmd
}

func printOrder(cmd *cobra.Command, o *domain.Order) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Order %s (%s, %s)\n", o.OrderNumber, o.Status, o.PaymentMethod)
	table := uitable.New()
	table.AddRow("ITEM", "QTY", "PRICE", "SUBTOTAL")
	for _, it := range o.Items {
		table.AddRow(it.Name, it.Quantity, fmt.Sprintf("%.2f", it.Price), fmt.Sprintf("%.2f", it.Subtotal))
	}
	table.AddRow("", "", "TOTAL", fmt.Sprintf("%.2f", o.Total))
	fmt.Fprintln(out, table)
}

func (a *app) ordersCmd() *cobra.Command {
	var (
		f        domain.OrderFilter
		status   string
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Status = domain.OrderStatus(status)
			var start, end time.Time
			var err error
			if from != "" {
				if start, err = time.Parse("2006-01-02", from); err != nil {
					return errors.NotValidf("--from %q", from)
				}
			}
			if to != "" {
				if end, err = time.Parse("2006-01-02", to); err != nil {
					return errors.NotValidf("--to %q", to)
				}
			}
			orders, page, err := a.client.ListOrders(cmd.Context(), f, start, end)
			if err != nil {
				return err
			}
			table := uitable.New()
			table.AddRow("ID", "NUMBER", "CASHIER", "TOTAL", "PAYMENT", "STATUS", "CREATED")
			for _, o := range orders {
				table.AddRow(o.ID, o.OrderNumber, o.CashierName, fmt.Sprintf("%.2f", o.Total),
					o.PaymentMethod, o.Status, o.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d orders)\n", page.CurrentPage, page.LastPage, page.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "pending, processing, completed or cancelled")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().Int64Var(&f.Page.Page, "page", 1, "page number")
	cmd.Flags().Int64Var(&f.Limit, "limit", 20, "orders per page")
	return cmd
}
