package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/radutopala/toolcatalog/internal/catalogclient"
)

type queryOptions struct {
	url     string
	command []string
}

// newQueryCmd groups commands that ask a running catalog server instead of
// reading records locally.
func newQueryCmd(opts *rootOptions) *cobra.Command {
	qopts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a catalog server over MCP",
		Long: "Query a catalog server over MCP, either at a streamable HTTP URL (--url) " +
			"or by starting one over stdio (--server-command).",
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&qopts.url, "url", "", "streamable HTTP endpoint of the server")
	flags.StringSliceVar(&qopts.command, "server-command", nil, "command and arguments starting a stdio server")

	connect := func(ctx context.Context) (*catalogclient.Client, error) {
		cfg := catalogclient.Config{URL: qopts.url}
		if len(qopts.command) > 0 {
			cfg.Command = qopts.command[0]
			cfg.Args = qopts.command[1:]
		}
		if cfg.URL == "" && cfg.Command == "" {
			return nil, errors.New("one of --url or --server-command is required")
		}
		return catalogclient.Connect(ctx, cfg, opts.logger)
	}

	var category string
	var listLimit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List tools on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			result, err := client.List(cmd.Context(), category, listLimit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	list.Flags().StringVar(&category, "category", "", "only list tools in this category")
	list.Flags().IntVar(&listLimit, "limit", 0, "maximum number of tools (default: server's)")

	var searchLimit int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search tools on the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			result, err := client.Search(cmd.Context(), strings.Join(args, " "), searchLimit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	search.Flags().IntVar(&searchLimit, "limit", 0, "maximum number of results (default: server's)")

	get := &cobra.Command{
		Use:   "get <id-or-name>",
		Short: "Fetch one tool from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			record, err := client.Get(cmd.Context(), args[0])
			var miss *catalogclient.NotFoundError
			if errors.As(err, &miss) {
				if werr := writeJSON(cmd.OutOrStdout(), miss.NotFound); werr != nil {
					return werr
				}
				return silentError{err: err}
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), record)
		},
	}

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List categories on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()
			result, err := client.Categories(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.AddCommand(list, search, get, categories)
	return cmd
}
