package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/vaultsession/kv2"
)

var (
	kvMount    string
	kvVersion  int
	kvCAS      int
	kvData     string
	kvVersions []int

	kvMaxVersions        int
	kvCASRequired        bool
	kvDeleteVersionAfter string
)

var kvCmd = &cobra.Command{
	Use:   "kv",
	Short: "Read and write KV version 2 secrets",
}

func kvClient(cmd *cobra.Command) (*kv2.Client, error) {
	client, err := session(cmd)
	if err != nil {
		return nil, err
	}
	return kv2.New(client, kvMount), nil
}

var kvGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Print a secret's data as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := kvClient(cmd)
		if err != nil {
			return err
		}
		data, err := kv2.Get[map[string]any](cmd.Context(), kv, args[0], kvVersion)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

var kvPutCmd = &cobra.Command{
	Use:   "put NAME [KEY=VALUE...]",
	Short: "Write a new version of a secret",
	Long: `Write a new version of a secret from KEY=VALUE pairs or, with --data,
from a JSON object.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseKVData(kvData, args[1:])
		if err != nil {
			return err
		}
		kv, err := kvClient(cmd)
		if err != nil {
			return err
		}
		var opts []kv2.PutOption
		if cmd.Flags().Changed("cas") {
			opts = append(opts, kv2.WithCAS(kvCAS))
		}
		meta, err := kv.Put(cmd.Context(), args[0], data, opts...)
		if err != nil {
			return err
		}
		if meta != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s/%s version %d\n", kv.Mount(), args[0], meta.Version)
		}
		return nil
	},
}

// parseKVData builds the secret body from a JSON object or KEY=VALUE pairs.
func parseKVData(raw string, pairs []string) (map[string]any, error) {
	if raw != "" && len(pairs) > 0 {
		return nil, fmt.Errorf("use either --data or KEY=VALUE pairs")
	}
	if raw != "" {
		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, fmt.Errorf("--data must be a JSON object: %w", err)
		}
		return data, nil
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no data given")
	}
	data := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid pair %q, want KEY=VALUE", p)
		}
		data[k] = v
	}
	return data, nil
}

var kvDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Soft-delete the latest version, or --versions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := kvClient(cmd)
		if err != nil {
			return err
		}
		if len(kvVersions) > 0 {
			if err := kv.DeleteVersions(cmd.Context(), args[0], kvVersions); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted versions %s of %s/%s\n", versionsString(kvVersions), kv.Mount(), args[0])
			return nil
		}
		if err := kv.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted latest version of %s/%s\n", kv.Mount(), args[0])
		return nil
	},
}

var kvUndeleteCmd = &cobra.Command{
	Use:   "undelete NAME --versions N[,N...]",
	Short: "Restore soft-deleted versions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(kvVersions) == 0 {
			return fmt.Errorf("--versions is required")
		}
		kv, err := kvClient(cmd)
		if err != nil {
			return err
		}
		if err := kv.UndeleteVersions(cmd.Context(), args[0], kvVersions); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored versions %s of %s/%s\n", versionsString(kvVersions), kv.Mount(), args[0])
		return nil
	},
}

var kvDestroyCmd = &cobra.Command{
	Use:   "destroy NAME --versions N[,N...]",
	Short: "Permanently remove versions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(kvVersions) == 0 {
			return fmt.Errorf("--versions is required")
		}
		kv, err := kvClient(cmd)
		if err != nil {
			return err
		}
		if err := kv.DestroyVersions(cmd.Context(), args[0], kvVersions); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Destroyed versions %s of %s/%s\n", versionsString(kvVersions), kv.Mount(), args[0])
		return nil
	},
}

var kvMetadataDeleteCmd = &cobra.Command{
	Use:   "metadata-delete NAME",
	Short: "Remove a secret and all of its versions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := kvClient(cmd)
		if err != nil {
			return err
		}
		if err := kv.DeleteMetadataAllVersions(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s/%s and all of its versions\n", kv.Mount(), args[0])
		return nil
	},
}

var kvConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the mount configuration, or change it with flags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := kvClient(cmd)
		if err != nil {
			return err
		}
		var cfg kv2.Configuration
		changed := false
		if cmd.Flags().Changed("max-versions") {
			cfg.MaxVersions, changed = &kvMaxVersions, true
		}
		if cmd.Flags().Changed("cas-required") {
			cfg.CASRequired, changed = &kvCASRequired, true
		}
		if cmd.Flags().Changed("delete-version-after") {
			cfg.DeleteVersionAfter, changed = &kvDeleteVersionAfter, true
		}
		if changed {
			return kv.Configure(cmd.Context(), cfg)
		}
		current, err := kv.GetConfiguration(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), current)
	},
}

func init() {
	rootCmd.AddCommand(kvCmd)
	kvCmd.PersistentFlags().StringVar(&kvMount, "mount", kv2.DefaultMount, "KV v2 mount path")

	kvCmd.AddCommand(kvGetCmd, kvPutCmd, kvDeleteCmd, kvUndeleteCmd, kvDestroyCmd, kvMetadataDeleteCmd, kvConfigCmd)

	kvGetCmd.Flags().IntVar(&kvVersion, "version", 0, "Version to read (0 for the latest)")
	kvPutCmd.Flags().IntVar(&kvCAS, "cas", 0, "Only write if the current version matches")
	kvPutCmd.Flags().StringVar(&kvData, "data", "", "Secret data as a JSON object")
	for _, c := range []*cobra.Command{kvDeleteCmd, kvUndeleteCmd, kvDestroyCmd} {
		c.Flags().IntSliceVar(&kvVersions, "versions", nil, "Comma-separated version numbers")
	}
	kvConfigCmd.Flags().IntVar(&kvMaxVersions, "max-versions", 0, "Versions kept per secret")
	kvConfigCmd.Flags().BoolVar(&kvCASRequired, "cas-required", false, "Require --cas on every write")
	kvConfigCmd.Flags().StringVar(&kvDeleteVersionAfter, "delete-version-after", "", "Age after which versions are deleted, e.g. 720h")
}

func versionsString(vs []int) string {
	s := make([]string, len(vs))
	for i, v := range vs {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}
