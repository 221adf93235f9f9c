package cmd

// Version is set at build time with
// -ldflags "-X github.com/jmcleod/vaultsession/cmd/vaultsession/cmd.Version=...".
var Version = "dev"
