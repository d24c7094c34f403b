package client

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

// NewSnippetCommand constructs the `snippet` command group and subcommands.
func NewSnippetCommand(baseURL BaseURLFunc) *cobra.Command {
	snippetCmd := &cobra.Command{Use: "snippet", Short: "Snippet operations"}

	snippetCmd.AddCommand(
		newSnippetSubmitCommand(baseURL),
		newSnippetFlushCommand(baseURL),
		newSnippetGetCommand(baseURL),
		newSnippetListCommand(baseURL),
	)

	return snippetCmd
}

// newSnippetSubmitCommand constructs the `snippet submit` subcommand.
func newSnippetSubmitCommand(baseURL BaseURLFunc) *cobra.Command {
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a snippet (queued, persisted asynchronously)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope, _ := cmd.Flags().GetString("scope")
			title, _ := cmd.Flags().GetString("title")
			language, _ := cmd.Flags().GetString("language")
			body, _ := cmd.Flags().GetString("body")
			file, _ := cmd.Flags().GetString("file")

			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				body = string(data)
			}
			if body == "" {
				return fmt.Errorf("provide --body or --file")
			}

			res, err := postJSON(baseURL()+"/v1/snippets/submit", map[string]string{
				"scope":    scope,
				"title":    title,
				"language": language,
				"body":     body,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	submitCmd.Flags().String("scope", "", "Scope (defaults to the server's default scope)")
	submitCmd.Flags().String("title", "", "Snippet title")
	submitCmd.Flags().String("language", "", "Snippet language")
	submitCmd.Flags().String("body", "", "Snippet body")
	submitCmd.Flags().String("file", "", "Read the body from a file")
	return submitCmd
}

// newSnippetFlushCommand constructs the `snippet flush` subcommand.
func newSnippetFlushCommand(baseURL BaseURLFunc) *cobra.Command {
	flushCmd := &cobra.Command{
		Use:   "flush",
		Short: "Force an immediate flush of a scope's queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope, _ := cmd.Flags().GetString("scope")
			res, err := postJSON(baseURL()+"/v1/snippets/flush", map[string]string{"scope": scope})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	flushCmd.Flags().String("scope", "", "Scope to flush")
	return flushCmd
}

// newSnippetGetCommand constructs the `snippet get` subcommand.
func newSnippetGetCommand(baseURL BaseURLFunc) *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Get a persisted snippet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope, _ := cmd.Flags().GetString("scope")
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			u := fmt.Sprintf("%s/v1/snippets/get?scope=%s&id=%s",
				baseURL(), url.QueryEscape(scope), url.QueryEscape(id))
			res, err := getJSON(u)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	getCmd.Flags().String("scope", "", "Scope")
	getCmd.Flags().String("id", "", "Snippet id")
	return getCmd
}

// newSnippetListCommand constructs the `snippet list` subcommand.
func newSnippetListCommand(baseURL BaseURLFunc) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted snippets in a scope, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope, _ := cmd.Flags().GetString("scope")
			limit, _ := cmd.Flags().GetInt("limit")
			u := fmt.Sprintf("%s/v1/snippets/list?scope=%s", baseURL(), url.QueryEscape(scope))
			if limit > 0 {
				u += fmt.Sprintf("&limit=%d", limit)
			}
			res, err := getJSON(u)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	listCmd.Flags().String("scope", "", "Scope")
	listCmd.Flags().Int("limit", 0, "Maximum number of snippets")
	return listCmd
}
