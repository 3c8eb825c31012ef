// cmd/posctl/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/spf13/cobra"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/pkg/posclient"
)

var logger = loggo.GetLogger("posctl")

type app struct {
	apiURL    string
	storePath string
	logLevel  string

	store  *posclient.FileStore
	client *posclient.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "posctl",
		Short:         "Command line register for the coffee shop POS",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loggo.ConfigureLoggers(a.logLevel); err != nil {
				return errors.Annotate(err, "invalid --log-level")
			}
			if a.storePath == "" {
				p, err := posclient.DefaultStorePath()
				if err != nil {
					return err
				}
				a.storePath = p
			}
			a.store = posclient.NewFileStore(a.storePath)
			a.client = posclient.New(a.apiURL, a.store, posclient.WithUnauthorizedHandler(func() {
				fmt.Fprintln(cmd.ErrOrStderr(), "Session expired, run `posctl login` again.")
			}))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.apiURL, "api", envOr("POS_API_URL", posclient.DefaultBaseURL), "API base URL")
	root.PersistentFlags().StringVar(&a.storePath, "store", os.Getenv("POS_STORE"), "session file (default ~/.posctl/state.json)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "<root>=WARNING", "loggo logging config")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.menuCmd(),
		a.orderCmd(),
		a.ordersCmd(),
		a.shiftCmd(),
		a.reportCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
