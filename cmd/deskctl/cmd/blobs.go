package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/studentdesk/complaints/internal/app"
)

func BlobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blobs",
		Short: "Attachment blob maintenance",
	}

	var (
		prefix string
		minAge time.Duration
		remove bool
	)
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "List blobs without an attachment record, optionally deleting them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				orphans, err := a.AttachmentService.FindOrphans(cmd.Context(), prefix, minAge, remove)
				for _, path := range orphans {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
				}
				if err != nil {
					return err
				}

				verb := "found"
				if remove {
					verb = "deleted"
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s %d orphaned blob(s)\n", verb, len(orphans))
				return nil
			})
		},
	}
	reconcileCmd.Flags().StringVar(&prefix, "prefix", "", "Only inspect blobs under this prefix (usually a principal id)")
	reconcileCmd.Flags().DurationVar(&minAge, "min-age", time.Hour, "Ignore blobs written more recently than this (uploads may still be recording them)")
	reconcileCmd.Flags().BoolVar(&remove, "delete", false, "Delete the orphans instead of only listing them")

	cmd.AddCommand(reconcileCmd)

	var age time.Duration
	unlinkedCmd := &cobra.Command{
		Use:   "unlinked",
		Short: "List uploads that were never attached to a complaint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				attachments, err := a.AttachmentService.Unlinked(cmd.Context(), age)
				if err != nil {
					return err
				}
				for _, attachment := range attachments {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
						attachment.ID,
						attachment.OwnerUserID,
						attachment.CreatedAt.UTC().Format(time.RFC3339),
						attachment.StoredPath,
					)
				}
				return nil
			})
		},
	}
	unlinkedCmd.Flags().DurationVar(&age, "older-than", 24*time.Hour, "Only list uploads at least this old")

	cmd.AddCommand(unlinkedCmd)
	return cmd
}
