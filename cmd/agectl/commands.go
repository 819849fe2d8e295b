package main

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/phrazzld/hdx-age-api/internal/api"
	"github.com/phrazzld/hdx-age-api/internal/client"
)

func newStatusCmd(opts *options) *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := opts.client().Status(cmd.Context(), remote)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "CKAN instance to report")
	return cmd
}

func newTestCmd(opts *options) *cobra.Command {
	var sync bool
	cmd := &cobra.Command{
		Use:   "test [word]",
		Short: "Count the letters of a word",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var word string
			if len(args) == 1 {
				word = args[0]
			}
			out, err := opts.client().Test(cmd.Context(), word, sync)
			if err != nil {
				return err
			}
			return printDispatched(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&sync, "sync", false, "run inline instead of queueing a job")
	return cmd
}

func newUpdateCmd(opts *options) *cobra.Command {
	var (
		sync   bool
		remote string
		values = map[string]*int{}
	)
	cmd := &cobra.Command{
		Use:   "update [pid]",
		Short: "Update the age of one dataset or all datasets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pid string
			if len(args) == 1 {
				pid = args[0]
			}

			q := url.Values{}
			if remote != "" {
				q.Set("remote", remote)
			}
			for name, v := range values {
				if cmd.Flags().Changed(flagName(name)) {
					q.Set(name, strconv.Itoa(*v))
				}
			}

			out, err := opts.client().Update(cmd.Context(), pid, sync, q)
			if err != nil {
				return err
			}
			return printDispatched(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&sync, "sync", false, "run inline instead of queueing a job")
	cmd.Flags().StringVar(&remote, "remote", "", "list datasets from another CKAN instance")
	for _, name := range []string{"chunk_size", "row_limit", "mock", "timeout", "ttl"} {
		values[name] = cmd.Flags().Int(flagName(name), 0, "override the server's "+name)
	}
	return cmd
}

func newResultCmd(opts *options) *cobra.Command {
	var (
		wait     bool
		interval time.Duration
		deadline time.Duration
	)
	cmd := &cobra.Command{
		Use:   "result <job-id>",
		Short: "Show the state of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.client()
			var (
				res *api.ResultResponse
				err error
			)
			if wait {
				ctx := cmd.Context()
				if deadline > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, deadline)
					defer cancel()
				}
				res, err = c.WaitForResult(ctx, args[0], interval)
			} else {
				res, err = c.Result(cmd.Context(), args[0])
			}
			if res != nil {
				if printErr := printJSON(cmd.OutOrStdout(), res); printErr != nil && err == nil {
					err = printErr
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the job finishes or fails")
	cmd.Flags().DurationVar(&interval, "interval", client.DefaultPollInterval, "polling interval for --wait")
	cmd.Flags().DurationVar(&deadline, "deadline", 0, "give up waiting after this long (0 waits forever)")
	return cmd
}

func newDoubleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "double <n>",
		Short: "Double a number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := opts.client().Double(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"result": n})
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Evict a cached response, e.g. 'status/?remote=x'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := opts.client().Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"result": msg})
		},
	}
}

func newResetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear every cached response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := opts.client().Reset(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"result": msg})
		},
	}
}

// flagName turns a query parameter name into a flag name.
func flagName(param string) string {
	return strings.ReplaceAll(param, "_", "-")
}
