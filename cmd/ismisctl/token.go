package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
)

func newTokenCmd(e *env) *cobra.Command {
	var (
		sub   string
		role  string
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token signed with JWT_SECRET",
		Long: `Mint an access token for local testing or service accounts.

Examples:
  ismisctl token --sub admin-1 --role ADMIN
  ismisctl token --sub s-1042 --role STUDENT --ttl 30m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth := service.NewAuthService(nil, e.log, service.AuthConfig{
				AccessTokenSecret: e.cfg.JWT.Secret,
				AccessTokenExpiry: e.cfg.JWT.Expiration,
				Issuer:            e.cfg.JWT.Issuer,
			})
			token, expiresAt, err := auth.IssueToken(models.IssueTokenRequest{
				UserID: strings.TrimSpace(sub),
				Role:   models.UserRole(strings.ToUpper(strings.TrimSpace(role))),
				Email:  email,
			}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "", "user id (token subject)")
	cmd.Flags().StringVar(&role, "role", "", "ADMIN, ACCOUNTS_ADMIN, TEACHER or STUDENT")
	cmd.Flags().StringVar(&email, "email", "", "optional email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default JWT_EXPIRATION)")
	_ = cmd.MarkFlagRequired("sub")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
