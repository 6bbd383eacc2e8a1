// Package cli holds the operator commands of the admin binary.
package cli

import "github.com/spf13/cobra"

var rootCommand = &cobra.Command{
	Use:   "admin",
	Short: "admin cli for the usersadmin console",
	Long:  "admin cli to migrate the database, generate signing keys and issue operator tokens for usersadmin",
	Run: func(cmd *cobra.Command, args []string) {
		//show help if no sub-command is provided
		_ = cmd.Help()
	},
}

func Execute() error {
	return rootCommand.Execute()
}
