package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/radutopala/toolcatalog/internal/catalog"
	"github.com/radutopala/toolcatalog/internal/loader"
	"github.com/radutopala/toolcatalog/internal/tools"
)

// loadCatalog builds the catalog from the configured records once.
func loadCatalog(ctx context.Context, opts *rootOptions) (*catalog.Catalog, error) {
	source, err := loader.New(opts.cfg.Records)
	if err != nil {
		return nil, err
	}
	cat := catalog.New(source, catalog.Options{
		Logger:   opts.logger,
		Debounce: opts.cfg.Watch.Debounce,
	})
	if err := cat.Reload(ctx); err != nil {
		return nil, err
	}
	return cat, nil
}

func loadIndex(ctx context.Context, opts *rootOptions) (*tools.Index, error) {
	cat, err := loadCatalog(ctx, opts)
	if err != nil {
		return nil, err
	}
	return cat.Index()
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and index every record, reporting the first invalid one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := loadIndex(cmd.Context(), opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d tools, %d categories\n", idx.Len(), len(idx.Categories()))
			return err
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var category string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tools, optionally filtered by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := loadIndex(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), idx.List(category, orDefault(limit, opts.cfg.Limits.List)))
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list tools in this category")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of tools (default limits.list)")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search tools by keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := loadIndex(cmd.Context(), opts)
			if err != nil {
				return err
			}
			result, err := idx.Search(strings.Join(args, " "), orDefault(limit, opts.cfg.Limits.Search))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (default limits.search)")
	return cmd
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id-or-name>",
		Short: "Show the full record of one tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := loadIndex(cmd.Context(), opts)
			if err != nil {
				return err
			}
			record, ok := idx.Get(args[0])
			if !ok {
				miss := idx.NotFound(args[0])
				if err := writeJSON(cmd.OutOrStdout(), miss); err != nil {
					return err
				}
				return silentError{err: errors.New(miss.Error)}
			}
			return writeJSON(cmd.OutOrStdout(), record)
		},
	}
}

func newCategoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List every category in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := loadIndex(cmd.Context(), opts)
			if err != nil {
				return err
			}
			categories := idx.Categories()
			return writeJSON(cmd.OutOrStdout(), tools.CategoriesResult{
				Categories: categories,
				Total:      len(categories),
			})
		},
	}
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
