package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/phrazzld/hdx-age-api/internal/client"
)

const (
	serverEnv     = "AGECTL_SERVER"
	defaultServer = "http://localhost:5000/v1"
)

type options struct {
	server  string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "agectl",
		Short:         "Query and update HDX dataset ages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv(serverEnv)
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server,
		"API base URL including prefix (env "+serverEnv+")")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "HTTP request timeout")

	root.AddCommand(
		newStatusCmd(opts),
		newTestCmd(opts),
		newUpdateCmd(opts),
		newResultCmd(opts),
		newDoubleCmd(opts),
		newDeleteCmd(opts),
		newResetCmd(opts),
	)
	return root
}

func (o *options) client() *client.Client {
	return client.New(o.server, &http.Client{Timeout: o.timeout})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to print response: %w", err)
	}
	return nil
}

func printDispatched(w io.Writer, d *client.Dispatched) error {
	if d.Queued() {
		return printJSON(w, d.Ticket)
	}
	return printJSON(w, d.Result)
}
