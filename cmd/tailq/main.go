// Command tailq provides a CLI for publishing to and inspecting tailq queues.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/tailq"
	"github.com/vnykmshr/tailq/internal/logging"
)

const version = "1.0.0"

func main() {
	var (
		dsn     string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:   "tailq",
		Short: "tailq queue CLI",
		Long:  "tailq is a durable, file-backed message queue. This CLI publishes, retrieves, and inspects queues.",
	}
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "queue DSN, e.g. file:///var/queues/orders?compress=true")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	open := func() (*tailq.Queue, error) {
		if dsn == "" {
			return nil, fmt.Errorf("--dsn is required")
		}
		var opts []tailq.Option
		if verbose {
			opts = append(opts, tailq.WithLogger(logging.New(slog.LevelDebug, os.Stderr)))
		}
		return tailq.Open(dsn, opts...)
	}

	var headerFlags []string
	publishCmd := &cobra.Command{
		Use:   "publish [body]",
		Short: "Publish a message (body from argument or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := open()
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			var body []byte
			if len(args) == 1 {
				body = []byte(args[0])
			} else {
				body, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
			}

			headers := make(map[string]string, len(headerFlags))
			for _, h := range headerFlags {
				k, v, ok := strings.Cut(h, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid header %q (want key=value)", h)
				}
				headers[k] = v
			}

			if err := q.Send(body, headers); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d bytes\n", len(body))
			return nil
		},
	}
	publishCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "message header key=value (repeatable)")
	rootCmd.AddCommand(publishCmd)

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Pop the most recently published message",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := open()
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			msg, err := q.Get()
			if err != nil {
				return err
			}
			if msg == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
				return nil
			}
			for k, v := range msg.Headers {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", k, v)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			_, _ = cmd.OutOrStdout().Write(msg.Body)
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	rootCmd.AddCommand(getCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show queue statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := open()
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			stats, err := q.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "directory:        %s\n", q.Dir())
			fmt.Fprintf(cmd.OutOrStdout(), "queued messages:  %d\n", stats.QueuedMessages)
			fmt.Fprintf(cmd.OutOrStdout(), "data bytes:       %d\n", stats.DataBytes)
			return nil
		},
	}
	rootCmd.AddCommand(statsCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tailq version %s\n", version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
