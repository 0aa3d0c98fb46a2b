package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/studentdesk/complaints/internal/config"
	"github.com/studentdesk/complaints/internal/service"
)

func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Development tokens",
	}

	var ttl time.Duration
	issueCmd := &cobra.Command{
		Use:   "issue <principal-id>",
		Short: "Mint a bearer token signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if ttl <= 0 {
				ttl = cfg.JWTExpiry
			}

			tokens := service.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry, cfg.SecureCookies())
			token, expiresAt, err := tokens.Issue(args[0], ttl)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	issueCmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default JWT_EXPIRY)")

	cmd.AddCommand(issueCmd)
	return cmd
}
