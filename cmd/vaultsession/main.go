package main

import "github.com/jmcleod/vaultsession/cmd/vaultsession/cmd"

func main() {
	cmd.Execute()
}
