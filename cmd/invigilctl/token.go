package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/service"
)

func newTokenCmd() *cobra.Command {
	var (
		secret string
		userID string
		role   string
		email  string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with the API secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := models.UserRole(strings.ToUpper(role))
			switch r {
			case models.RoleSuperAdmin, models.RoleAdmin, models.RoleStaff:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			token, expiresAt, err := service.NewTokenService(secret, ttl).Issue(userID, r, email, "")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "JWT secret (JWT_SECRET of the API)")
	cmd.Flags().StringVar(&userID, "user", "operator", "user id carried by the token")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "SUPERADMIN, ADMIN or STAFF")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}
