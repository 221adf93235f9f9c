package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/vaultsession/approle"
)

var (
	approleMount         string
	approlePolicies      []string
	approleTokenTTL      int
	approleTokenMaxTTL   int
	approleSecretIDTTL   string
	approleBindSecretID  bool
	approleSecretIDUses  int
	approleTokenType     string
	approleTokenBoundIPs []string
)

var approleCmd = &cobra.Command{
	Use:   "approle",
	Short: "Manage AppRole roles",
}

var approleWriteCmd = &cobra.Command{
	Use:   "write ROLE",
	Short: "Create or update an AppRole role",
	Long: `Create or update an AppRole role. Only the flags you pass are sent;
Vault keeps its current value for the rest.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts approle.RoleOptions
		flags := cmd.Flags()
		if flags.Changed("policies") {
			opts.TokenPolicies = approlePolicies
		}
		if flags.Changed("token-ttl") {
			opts.TokenTTL = &approleTokenTTL
		}
		if flags.Changed("token-max-ttl") {
			opts.TokenMaxTTL = &approleTokenMaxTTL
		}
		if flags.Changed("secret-id-ttl") {
			opts.SecretIDTTL = approleSecretIDTTL
		}
		if flags.Changed("bind-secret-id") {
			opts.BindSecretID = &approleBindSecretID
		}
		if flags.Changed("secret-id-num-uses") {
			opts.SecretIDNumUses = &approleSecretIDUses
		}
		if flags.Changed("token-type") {
			opts.TokenType = approleTokenType
		}
		if flags.Changed("token-bound-cidrs") {
			opts.TokenBoundCIDRs = approleTokenBoundIPs
		}

		client, err := session(cmd)
		if err != nil {
			return err
		}
		if err := approle.CreateOrUpdateAt(cmd.Context(), client, approleMount, args[0], opts); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote role %s on auth/%s\n", args[0], approleMount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(approleCmd)
	approleCmd.AddCommand(approleWriteCmd)
	f := approleWriteCmd.Flags()
	f.StringVar(&approleMount, "mount", "approle", "AppRole auth mount path")
	f.StringSliceVar(&approlePolicies, "policies", nil, "Token policies")
	f.IntVar(&approleTokenTTL, "token-ttl", 0, "Token TTL in seconds")
	f.IntVar(&approleTokenMaxTTL, "token-max-ttl", 0, "Token max TTL in seconds")
	f.StringVar(&approleSecretIDTTL, "secret-id-ttl", "", "Secret ID TTL, e.g. 24h")
	f.BoolVar(&approleBindSecretID, "bind-secret-id", true, "Require a secret ID at login")
	f.IntVar(&approleSecretIDUses, "secret-id-num-uses", 0, "Logins allowed per secret ID (0 for unlimited)")
	f.StringVar(&approleTokenType, "token-type", "", "Token type: service, batch or default")
	f.StringSliceVar(&approleTokenBoundIPs, "token-bound-cidrs", nil, "CIDRs the token may be used from")
}
