package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studentdesk/complaints/internal/app"
	"github.com/studentdesk/complaints/internal/model"
	"github.com/studentdesk/complaints/internal/service"
)

func ProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Provision and retire profiles",
	}

	cmd.AddCommand(profileCreateCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "deactivate <principal-id>",
		Short: "Block a profile from using the desk, keeping its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				if err := a.IdentityService.Deactivate(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deactivated %s\n", args[0])
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <principal-id>",
		Short: "Delete a profile and, for students, their complaints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				if err := a.IdentityService.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	})

	return cmd
}

func profileCreateCmd() *cobra.Command {
	var in service.ProvisionInput
	var role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the profile for a principal issued by the auth provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Role = model.Role(role)
			return withApp(cmd.Context(), func(a *app.App) error {
				profile, err := a.IdentityService.Provision(cmd.Context(), in)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s %s <%s>\n", profile.Role, profile.ID, profile.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.ID, "id", "", "Principal id (the token subject)")
	cmd.Flags().StringVar(&in.Email, "email", "", "Contact email")
	cmd.Flags().StringVar(&in.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&role, "role", string(model.RoleStudent), "student or admin")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
