package main

import (
	"fmt"
	"strings"

	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/filter"
	"github.com/spf13/cobra"
)

func newListCommand(newApp appFactory) *cobra.Command {
	var status, priority, category, source, search, sortBy string
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drafts and the status counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("category") && category != "" {
				kind, err := domain.ParseKind(category)
				if err != nil {
					return fmt.Errorf("%w (want one of: %s)", err, kindNames())
				}
				category = string(kind)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			patch := filter.Patch{}
			setIf := func(dst **string, flag, value string) {
				if cmd.Flags().Changed(flag) {
					*dst = filter.Str(value)
				}
			}
			setIf(&patch.Status, "status", status)
			setIf(&patch.Priority, "priority", priority)
			setIf(&patch.Category, "category", category)
			setIf(&patch.Source, "source", source)
			setIf(&patch.Search, "search", search)
			setIf(&patch.SortBy, "sort", sortBy)
			if cmd.Flags().Changed("page") {
				patch.Page = filter.Int(page)
			}

			ctx := cmd.Context()
			if _, err = a.console.UpdateFilters(ctx, patch); err != nil {
				return err
			}
			if err = a.console.Load(ctx); err != nil {
				return err
			}

			snap := a.console.Snapshot()
			renderStats(a.out, snap.Stats.Value)
			renderList(a.out, snap.List.Value)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&status, "status", "", "pending, approved or rejected")
	f.StringVar(&priority, "priority", "", "high, medium or low")
	f.StringVar(&category, "category", "", "opportunity type: "+kindNames())
	f.StringVar(&source, "source", "", "source domain")
	f.StringVar(&search, "search", "", "title or description text")
	f.StringVar(&sortBy, "sort", "", "newest, oldest, priority, deadline or title")
	f.IntVar(&page, "page", 1, "page number")
	return cmd
}

func newStatsCommand(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show draft counts by status and priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err = a.console.Load(cmd.Context()); err != nil {
				return err
			}
			renderStats(a.out, a.console.Snapshot().Stats.Value)
			return nil
		},
	}
}

func newShowCommand(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			e, err := a.console.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			d, ok := e.Draft()
			if !ok {
				return fmt.Errorf("draft %s: not loaded", args[0])
			}
			renderDraft(a.out, d)
			return nil
		},
	}
}

func kindNames() string {
	kinds := domain.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
