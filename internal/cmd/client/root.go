// Package client contains Cobra CLI commands for the snippet service.
package client

import (
	"github.com/spf13/cobra"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// NewRoot constructs a root Cobra command for the client.
// It registers the snippet and buffer command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "reviewroom",
		Short: "Reviewroom client commands",
	}
	root.AddCommand(NewSnippetCommand(baseURL))
	root.AddCommand(NewBufferCommand(baseURL))
	return root
}
