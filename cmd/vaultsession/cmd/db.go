package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/vaultsession/database"
)

var (
	dbMount string
	dbJSON  bool
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database secrets engine",
}

var dbCredsCmd = &cobra.Command{
	Use:   "creds ROLE",
	Short: "Generate database credentials for a role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := session(cmd)
		if err != nil {
			return err
		}
		creds, err := database.GetCredentialsAt(cmd.Context(), client, dbMount, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if dbJSON {
			return printJSON(out, map[string]any{
				"username":       creds.Username,
				"password":       creds.Password,
				"lease_id":       creds.LeaseID,
				"lease_duration": int64(creds.Duration.Seconds()),
				"renewable":      creds.Renewable,
			})
		}
		fmt.Fprintf(out, "Username:  %s\n", creds.Username)
		fmt.Fprintf(out, "Password:  %s\n", creds.Password)
		fmt.Fprintf(out, "Lease:     %s\n", creds.LeaseID)
		fmt.Fprintf(out, "Duration:  %s\n", creds.Duration)
		fmt.Fprintf(out, "Renewable: %t\n", creds.Renewable)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbCredsCmd)
	dbCredsCmd.Flags().StringVar(&dbMount, "mount", database.DefaultMount, "Database secrets engine mount path")
	dbCredsCmd.Flags().BoolVar(&dbJSON, "json", false, "Output as JSON")
}
