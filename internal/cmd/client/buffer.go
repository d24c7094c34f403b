package client

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// NewBufferCommand constructs the `buffer` command group and subcommands.
func NewBufferCommand(baseURL BaseURLFunc) *cobra.Command {
	bufferCmd := &cobra.Command{Use: "buffer", Short: "Buffer introspection"}

	bufferCmd.AddCommand(
		newBufferStateCommand(baseURL),
		newBufferDeadLettersCommand(baseURL),
		newBufferEventsCommand(baseURL),
	)

	return bufferCmd
}

// newBufferStateCommand constructs the `buffer state` subcommand.
func newBufferStateCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show queue lengths, pending retries and dead letters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := getJSON(baseURL() + "/v1/buffer/state")
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

// newBufferDeadLettersCommand constructs the `buffer dead-letters` subcommand.
func newBufferDeadLettersCommand(baseURL BaseURLFunc) *cobra.Command {
	dlCmd := &cobra.Command{
		Use:   "dead-letters",
		Short: "List dead letters, optionally narrowed by a CEL filter",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			u := baseURL() + "/v1/buffer/dead-letters"
			if filter != "" {
				u += "?filter=" + url.QueryEscape(filter)
			}
			res, err := getJSON(u)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	dlCmd.Flags().String("filter", "", `CEL filter, e.g. 'attempts >= 3 && scope_key == "alice"'`)
	return dlCmd
}

// newBufferEventsCommand constructs the `buffer events` subcommand.
func newBufferEventsCommand(baseURL BaseURLFunc) *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent buffer events, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			u := baseURL() + "/v1/buffer/events"
			if limit > 0 {
				u += fmt.Sprintf("?limit=%d", limit)
			}
			res, err := getJSON(u)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	eventsCmd.Flags().Int("limit", 0, "Maximum number of events")
	return eventsCmd
}
