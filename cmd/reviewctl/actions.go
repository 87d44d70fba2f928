package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonesrussell/north-cloud/draft-review/internal/domain"
	"github.com/jonesrussell/north-cloud/draft-review/internal/review"
	"github.com/spf13/cobra"
)

// reportRefetch prints a warning for a write that succeeded but whose
// follow-up reads failed, and returns any other error unchanged.
func reportRefetch(a *app, err error) error {
	var refetchErr *review.RefetchError
	if errors.As(err, &refetchErr) {
		fmt.Fprintf(a.out, "warning: %v\n", refetchErr)
		return nil
	}
	return err
}

func newApproveCommand(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "approve ID",
		Short: "Approve a pending draft and publish its opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err = a.console.Load(cmd.Context()); err != nil {
				return err
			}

			resp, err := a.console.Approve(cmd.Context(), args[0])
			if err = reportRefetch(a, err); err != nil {
				return err
			}
			fmt.Fprintln(a.out, resp.Message)
			if resp.Opportunity != nil {
				fmt.Fprintf(a.out, "opportunity: %s\n", resp.Opportunity.ID)
			}
			renderStats(a.out, a.console.Snapshot().Stats.Value)
			return nil
		},
	}
}

func newRejectCommand(newApp appFactory) *cobra.Command {
	var feedback string

	cmd := &cobra.Command{
		Use:   "reject ID",
		Short: "Reject a pending draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err = a.console.Load(cmd.Context()); err != nil {
				return err
			}

			resp, err := a.console.Reject(cmd.Context(), args[0], feedback)
			if err = reportRefetch(a, err); err != nil {
				return err
			}
			fmt.Fprintln(a.out, resp.Message)
			renderStats(a.out, a.console.Snapshot().Stats.Value)
			return nil
		},
	}
	cmd.Flags().StringVar(&feedback, "feedback", "", "reason for rejection")
	return cmd
}

func newEditCommand(newApp appFactory) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "edit ID --set field=value...",
		Short: "Edit the extracted fields of a pending draft",
		Long: "Edit the extracted fields of a pending draft. Fields: " +
			strings.Join(domain.EditableFields(), ", ") + ". List fields take newline or comma separated items.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(sets) == 0 {
				return fmt.Errorf("at least one --set is required")
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			e, err := a.console.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err = e.StartEdit(); err != nil {
				return err
			}
			for _, kv := range sets {
				field, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid --set %q: want field=value", kv)
				}
				if err = e.SetField(strings.TrimSpace(field), value); err != nil {
					return err
				}
			}

			d, err := e.SaveEdit(cmd.Context(), domain.Edits{})
			if err = reportRefetch(a, err); err != nil {
				return err
			}
			renderDraft(a.out, d)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value to change (repeatable)")
	return cmd
}

func newRegenerateCommand(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate ID",
		Short: "Re-run extraction for a draft",
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
			resp, err := e.Regenerate(cmd.Context())
			if err = reportRefetch(a, err); err != nil {
				return err
			}
			fmt.Fprintln(a.out, resp.Message)
			renderDraft(a.out, resp.Draft)
			return nil
		},
	}
}

func newDeleteCommand(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err = a.console.Load(cmd.Context()); err != nil {
				return err
			}

			resp, err := a.console.Delete(cmd.Context(), args[0])
			if err = reportRefetch(a, err); err != nil {
				return err
			}
			fmt.Fprintln(a.out, resp.Message)
			return nil
		},
	}
}

func newBulkReviewCommand(newApp appFactory) *cobra.Command {
	var action string

	cmd := &cobra.Command{
		Use:   "bulk-review --action approve|reject ID...",
		Short: "Approve or reject several drafts at once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err = a.console.Load(cmd.Context()); err != nil {
				return err
			}

			n, err := a.console.BulkReview(cmd.Context(), args, domain.ReviewAction(action))
			if err = reportRefetch(a, err); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d of %d drafts processed\n", n, len(args))
			renderStats(a.out, a.console.Snapshot().Stats.Value)
			return nil
		},
	}
	cmd.Flags().StringVar(&action, "action", string(domain.ActionApprove), "approve or reject")
	return cmd
}

func newBulkDeleteCommand(newApp appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-delete ID...",
		Short: "Delete several drafts at once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err = a.console.Load(cmd.Context()); err != nil {
				return err
			}

			n, err := a.console.BulkDelete(cmd.Context(), args)
			if err = reportRefetch(a, err); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d drafts deleted\n", n)
			return nil
		},
	}
}
