package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	loginPrintToken bool
	loginJSON       bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in once and describe the issued token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := session(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if loginPrintToken {
			fmt.Fprintln(out, client.Token())
			return nil
		}
		if loginJSON {
			return printJSON(out, client.Status())
		}
		printStatus(out, client.Status(), time.Now())
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect the session token",
}

var tokenStatusJSON bool

var tokenStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session token's lifetime and renewability",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := session(cmd)
		if err != nil {
			return err
		}
		if err := client.EnsureValid(cmd.Context()); err != nil {
			return err
		}
		if tokenStatusJSON {
			return printJSON(cmd.OutOrStdout(), client.Status())
		}
		printStatus(cmd.OutOrStdout(), client.Status(), time.Now())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&loginPrintToken, "print-token", false, "Print only the token value")
	loginCmd.Flags().BoolVar(&loginJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenStatusCmd)
	tokenStatusCmd.Flags().BoolVar(&tokenStatusJSON, "json", false, "Output as JSON")
}
