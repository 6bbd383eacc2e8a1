package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hamidoujand/usersadmin/pkg/keystore"
	"github.com/spf13/cobra"
)

var (
	keysDir string
	keyBits int
)

func init() {
	rootCommand.AddCommand(genkeyCommand)

	genkeyCommand.Flags().StringVarP(&keysDir, "dir", "d", "zarf/keys", "Directory the private key is written to.")
	genkeyCommand.Flags().IntVar(&keyBits, "bits", 2048, "RSA key size in bits.")
}

var genkeyCommand = &cobra.Command{
	Use:   "genkey",
	Short: "generates a token signing key",
	Long: `Generate a new RSA private key and store it as <kid>.pem.

Examples:
  admin genkey --dir=/etc/rsa-keys`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kid, pemBytes, err := keystore.GenerateKey(keyBits)
		if err != nil {
			return fmt.Errorf("generateKey: %w", err)
		}

		if err := os.MkdirAll(keysDir, 0o700); err != nil {
			return fmt.Errorf("mkdirAll: %w", err)
		}

		path := filepath.Join(keysDir, kid+".pem")
		if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
			return fmt.Errorf("writeFile: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "kid: %s\nfile: %s\n", kid, path)
		return nil
	},
}
