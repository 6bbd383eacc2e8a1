package cli

import (
	"fmt"

	"github.com/hamidoujand/usersadmin/internal/migrate"
	"github.com/hamidoujand/usersadmin/internal/sqldb"
	"github.com/spf13/cobra"
)

// Database connection flags.
var (
	dbuser     string
	dbpass     string
	host       string
	name       string
	disableTLS bool
	steps      int
)

func init() {
	rootCommand.AddCommand(migrateCommand)

	migrateCommand.Flags().StringVarP(&dbuser, "user", "u", "postgres", "Database username.")
	migrateCommand.Flags().StringVarP(&dbpass, "pass", "p", "postgres", "Database password.")
	migrateCommand.Flags().StringVar(&host, "host", "localhost:5432", "Database host:port.")
	migrateCommand.Flags().StringVarP(&name, "name", "n", "postgres", "Database name to migrate.")
	migrateCommand.Flags().BoolVar(&disableTLS, "disable-tls", true, "Connect without TLS.")
	migrateCommand.Flags().IntVar(&steps, "steps", 0, "Apply n migrations, negative values roll back. Zero migrates to the latest version.")
}

var migrateCommand = &cobra.Command{
	Use:   "migrate",
	Short: "performs migration",
	Long: `Execute database migrations.

Examples:
  admin migrate --user=myuser --pass=mypass --host=localhost:5432 --name=mydb
  admin migrate --steps=-1`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if dbuser == "" {
			return fmt.Errorf("database user is required (--user)")
		}

		if host == "" {
			return fmt.Errorf("database host is required (--host)")
		}

		if name == "" {
			return fmt.Errorf("database name is required (--name)")
		}

		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := sqldb.Open(sqldb.Config{
			User:       dbuser,
			Password:   dbpass,
			Host:       host,
			Name:       name,
			DisableTLS: disableTLS,
		})
		if err != nil {
			return fmt.Errorf("open connection: %w", err)
		}

		defer db.Close()

		if steps != 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "applying %d migration steps...\n", steps)
			if err := migrate.Steps(db, name, steps); err != nil {
				return fmt.Errorf("steps: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration completed!")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), "applying migrations...")

		version, err := migrate.Migrate(db, name)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "migration completed, schema version %d\n", version)
		return nil
	},
}
