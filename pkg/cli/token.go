package cli

import (
	"fmt"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/server"
	"github.com/spf13/cobra"
)

func newTokenCommand(a *app) *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the dashboard API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := server.ParseRole(role)
			if err != nil {
				return err
			}
			tok, err := server.SignToken(a.cfg.Server.JWTSecret, r, ttl)
			if err != nil {
				return fmt.Errorf("set server.jwt_secret (or FLOOD_SERVER_JWT_SECRET) first: %w", err)
			}
			fmt.Fprintln(a.out, tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(server.RoleSurveyor), "Role claim (surveyor or admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}
