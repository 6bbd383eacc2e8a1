package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hamidoujand/usersadmin/internal/auth"
	"github.com/hamidoujand/usersadmin/pkg/keystore"
	"github.com/spf13/cobra"
)

var (
	tokenKeysDir string
	tokenKid     string
	tokenIssuer  string
	tokenSubject string
	tokenRoles   []string
	tokenTTL     time.Duration
)

func init() {
	rootCommand.AddCommand(gentokenCommand)

	gentokenCommand.Flags().StringVarP(&tokenKeysDir, "dir", "d", "zarf/keys", "Directory holding the private keys.")
	gentokenCommand.Flags().StringVar(&tokenKid, "kid", "", "Key id to sign with.")
	gentokenCommand.Flags().StringVar(&tokenIssuer, "issuer", "usersadmin", "Issuer the service expects.")
	gentokenCommand.Flags().StringVarP(&tokenSubject, "subject", "s", "", "Operator the token is issued to.")
	gentokenCommand.Flags().StringSliceVarP(&tokenRoles, "role", "r", []string{auth.RoleViewer}, "Operator roles, admin or viewer.")
	gentokenCommand.Flags().DurationVar(&tokenTTL, "ttl", 8*time.Hour, "Token lifetime.")

	_ = gentokenCommand.MarkFlagRequired("kid")
	_ = gentokenCommand.MarkFlagRequired("subject")
}

var gentokenCommand = &cobra.Command{
	Use:   "gentoken",
	Short: "issues an operator token",
	Long: `Sign a bearer token for an operator of the console.

Examples:
  admin gentoken --kid=<kid> --subject=ops@example.com --role=admin`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		for _, role := range tokenRoles {
			if role != auth.RoleAdmin && role != auth.RoleViewer {
				return fmt.Errorf("unknown role %q, expected %s or %s", role, auth.RoleAdmin, auth.RoleViewer)
			}
		}

		if tokenTTL <= 0 {
			return fmt.Errorf("ttl must be positive")
		}

		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		ks := keystore.New()
		if _, err := ks.LoadFromFileSystem(os.DirFS(tokenKeysDir)); err != nil {
			return fmt.Errorf("loadFromFileSystem: %w", err)
		}

		a := auth.New(ks, tokenIssuer)

		now := time.Now()
		claims := auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    tokenIssuer,
				Subject:   tokenSubject,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			},
			Roles: tokenRoles,
		}

		token, err := a.GenerateToken(tokenKid, claims)
		if err != nil {
			return fmt.Errorf("generateToken: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
