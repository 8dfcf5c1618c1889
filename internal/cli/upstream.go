package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/busscope/internal/servicecontrol"
)

// MessagesOptions holds flags for the messages command.
type MessagesOptions struct {
	*RootOptions
	Endpoint  string
	Page      int
	PageSize  int
	Search    string
	OrderBy   string
	Ascending bool
}

// NewEndpointsCommand creates the endpoints command.
func NewEndpointsCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "List endpoints known to the monitoring service",
		Long: `List endpoints grouped by logical name.

By default only monitored instances are shown.

Examples:
  busscope endpoints
  busscope endpoints --all --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, rootOpts)
			c, err := rootOpts.newClient()
			if err != nil {
				return err
			}
			groups, err := c.GetEndpoints(cmd.Context(), !all)
			if err != nil {
				return f.Fail(err)
			}
			if groups == nil {
				groups = []servicecontrol.EndpointGroup{}
			}
			return f.Emit(groups, func(w io.Writer) error { return renderEndpoints(w, groups) })
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include instances that are not monitored")
	return cmd
}

// NewMessagesCommand creates the messages command.
func NewMessagesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MessagesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "messages",
		Short: "List audited messages",
		Long: `List one page of audited messages, optionally restricted to one
receiving endpoint or filtered by a full-text search.

Examples:
  busscope messages
  busscope messages --endpoint Sales --page 2 --page-size 50
  busscope messages --search PlaceOrder --order-by time_sent --asc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMessages(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "restrict to one receiving endpoint")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number (1-based)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "messages per page (default from config)")
	cmd.Flags().StringVar(&opts.Search, "search", "", "full-text search query")
	cmd.Flags().StringVar(&opts.OrderBy, "order-by", "", "sort field, e.g. time_sent or processed_at")
	cmd.Flags().BoolVar(&opts.Ascending, "asc", false, "sort ascending (default descending)")
	return cmd
}

func runMessages(opts *MessagesOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)
	if opts.Page < 1 {
		return f.FailWith(CodeInput, ExitCommandError, fmt.Errorf("--page must be >= 1, got %d", opts.Page))
	}
	if opts.PageSize < 0 {
		return f.FailWith(CodeInput, ExitCommandError, fmt.Errorf("--page-size must be >= 0, got %d", opts.PageSize))
	}

	c, err := opts.newClient()
	if err != nil {
		return err
	}
	page, err := c.GetAuditMessages(cmd.Context(), servicecontrol.AuditQuery{
		Endpoint:  opts.Endpoint,
		Search:    opts.Search,
		Page:      opts.Page,
		PageSize:  opts.PageSize,
		OrderBy:   opts.OrderBy,
		Ascending: opts.Ascending,
	})
	if err != nil {
		return f.Fail(err)
	}
	return f.Emit(page, func(w io.Writer) error { return renderMessages(w, page, opts.Page) })
}

// NewBodyCommand creates the body command.
func NewBodyCommand(rootOpts *RootOptions) *cobra.Command {
	var bodyURL string

	cmd := &cobra.Command{
		Use:   "body <message-id>",
		Short: "Print a message body",
		Long: `Fetch and print the body of one message. JSON bodies are
pretty-printed; XML and anything else is printed as stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, rootOpts)
			c, err := rootOpts.newClient()
			if err != nil {
				return err
			}
			body, err := c.GetMessageBody(cmd.Context(), args[0], bodyURL)
			if err != nil {
				return f.Fail(err)
			}
			data := map[string]string{"message_id": args[0], "body": body}
			return f.Emit(data, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, body)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&bodyURL, "body-url", "", "body url as reported on the message (default messages/<id>/body)")
	return cmd
}

// NewRetryCommand creates the retry command.
func NewRetryCommand(rootOpts *RootOptions) *cobra.Command {
	var instance string

	cmd := &cobra.Command{
		Use:   "retry <message-id>",
		Short: "Ask the service to retry a failed message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, rootOpts)
			c, err := rootOpts.newClient()
			if err != nil {
				return err
			}
			if err := c.RetryMessage(cmd.Context(), args[0], instance); err != nil {
				return f.Fail(err)
			}
			data := map[string]string{"message_id": args[0], "status": "retry requested"}
			return f.Emit(data, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Retry requested for %s\n", args[0])
				return err
			})
		},
	}

	cmd.Flags().StringVar(&instance, "instance", "", "service instance that owns the failed message")
	return cmd
}

// NewSagaCommand creates the saga command.
func NewSagaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "saga <saga-id>",
		Short: "Print the recorded history of a saga",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, rootOpts)
			c, err := rootOpts.newClient()
			if err != nil {
				return err
			}
			raw, err := c.GetSaga(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			return f.Emit(raw, func(w io.Writer) error {
				pretty := servicecontrol.FormatBody(raw)
				_, err := fmt.Fprintln(w, pretty)
				return err
			})
		},
	}
}

// PingResult is the payload of the ping command.
type PingResult struct {
	URL       string                   `json:"url"`
	Reachable bool                     `json:"reachable"`
	Kind      servicecontrol.ErrorKind `json:"kind,omitempty"`
	Error     string                   `json:"error,omitempty"`
	ElapsedMS int64                    `json:"elapsed_ms"`
}

// NewPingCommand creates the ping command.
func NewPingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the monitoring service is reachable",
		Long: `Send one connectivity check to the monitoring service.

Exit codes:
  0 - Service reachable
  1 - Service unreachable`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, rootOpts)
			c, err := rootOpts.newClient()
			if err != nil {
				return err
			}

			start := time.Now()
			err = c.Ping(cmd.Context())
			res := PingResult{
				URL:       c.BaseURL(),
				Reachable: err == nil,
				ElapsedMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				res.Kind = servicecontrol.Classify(err)
				res.Error = err.Error()
			}

			if emitErr := f.Emit(res, func(w io.Writer) error {
				if res.Reachable {
					fmt.Fprintf(w, "%s reachable\n", res.URL)
					return nil
				}
				fmt.Fprintf(w, "%s unreachable [%s]: %s\n", res.URL, res.Kind, res.Error)
				return nil
			}); emitErr != nil {
				return emitErr
			}
			if err != nil {
				return WrapExitError(ExitFailure, "service unreachable", err)
			}
			return nil
		},
	}
}
