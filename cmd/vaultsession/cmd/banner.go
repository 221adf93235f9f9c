package cmd

import (
	"fmt"
	"io"
)

const banner = `
                _ _                       _
__   ____ _ _  _| | |_ ___  ___  ___ ___(_) ___  _ __
\ \ / / _` + "`" + ` | | | | | __/ __|/ _ \/ __/ __| |/ _ \| '_ \
 \ V / (_| | |_| | | |_\__ \  __/\__ \__ \ | (_) | | | |
  \_/ \__,_|\__,_|_|\__|___/\___||___/___/_|\___/|_| |_|
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Vault Session Agent - Version %s\x1b[0m\n\n", Version)
}
