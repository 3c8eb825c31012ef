// cmd/posctl/shift.go
package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/application"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/shift"
)

// cliNotifier prints shift warnings and records the expiry.
type cliNotifier struct {
	out     io.Writer
	once    sync.Once
	expired chan struct{}
}

func newCLINotifier(out io.Writer) *cliNotifier {
	return &cliNotifier{out: out, expired: make(chan struct{})}
}

func (n *cliNotifier) Warn(remaining time.Duration) {
	fmt.Fprintf(n.out, "\nWarning: your shift ends in %s\n", shift.FormatDuration(remaining))
}

func (n *cliNotifier) Expired() {
	n.once.Do(func() { close(n.expired) })
}

func (n *cliNotifier) hasExpired() bool {
	select {
	case <-n.expired:
		return true
	default:
		return false
	}
}

// session resumes the locally stored shift of the signed in cashier.
func (a *app) session(n shift.Notifier) (*shift.Session, error) {
	user, ok := a.client.CurrentUser()
	if !ok {
		return nil, errors.Unauthorizedf("not logged in, run `posctl login`")
	}
	if !user.IsCashier() {
		return nil, errors.Forbiddenf("only cashiers hold work shifts")
	}
	sess := shift.NewSession(shift.SessionConfig{User: user, Store: a.store, Notifier: n})
	if err := sess.Load(); err != nil {
		return nil, errors.Trace(err)
	}
	return sess, nil
}

// reconcile makes the local record follow the server, which owns the shift.
func reconcile(sess *shift.Session, st *application.ShiftState) error {
	if st.Active && st.StartTime != nil {
		return sess.StartAt(*st.StartTime)
	}
	return sess.End()
}

func (a *app) forceLogout(ctx context.Context, out io.Writer) {
	if err := a.client.Logout(ctx); err != nil {
		logger.Debugf("logout after shift end: %v", err)
	}
	fmt.Fprintln(out, "Shift has ended, please log in again.")
}

func printState(out io.Writer, st *application.ShiftState) {
	if !st.Active {
		fmt.Fprintln(out, "No active shift")
		return
	}
	fmt.Fprintf(out, "Shift started %s, %s remaining (ends %s)\n",
		st.StartTime.Local().Format("15:04:05"), st.Remaining, st.Deadline.Local().Format("15:04:05"))
}

func (a *app) shiftCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "shift", Short: "Clock in, clock out and follow the shift countdown"}

	start := &cobra.Command{
		Use:   "start",
		Short: "Clock in",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session(nil)
			if err != nil {
				return err
			}
			st, err := a.client.ClockIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := reconcile(sess, st); err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), st)
			return nil
		},
	}

	end := &cobra.Command{
		Use:   "end",
		Short: "Clock out",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session(nil)
			if err != nil {
				return err
			}
			sh, err := a.client.ClockOut(cmd.Context())
			if err != nil && !errors.Is(err, errors.NotFound) {
				return err
			}
			if err := sess.End(); err != nil {
				return err
			}
			if sh != nil && sh.EndTime != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Clocked out after %s\n", shift.FormatDuration(sh.EndTime.Sub(sh.StartTime)))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "No active shift")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current shift",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.client.CurrentShift(cmd.Context())
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), st)
			return nil
		},
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Follow the countdown and log out when the shift ends",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			n := newCLINotifier(out)
			sess, err := a.session(n)
			if err != nil {
				return err
			}
			if n.hasExpired() {
				a.forceLogout(ctx, out)
				return nil
			}
			st, err := a.client.CurrentShift(ctx)
			if err != nil {
				return err
			}
			if err := reconcile(sess, st); err != nil {
				return err
			}
			if !sess.Active() {
				fmt.Fprintln(out, "No active shift")
				return nil
			}

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- sess.Run(runCtx) }()

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case err := <-done:
					if n.hasExpired() {
						fmt.Fprintln(out)
						a.forceLogout(context.Background(), out)
						return nil
					}
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				case <-ticker.C:
					snap := sess.Snapshot()
					fmt.Fprintf(out, "\rShift time remaining %s", shift.FormatDuration(snap.Remaining))
				}
			}
		},
	}

	cmd.AddCommand(start, end, status, watch)
	return cmd
}
