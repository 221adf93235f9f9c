package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmcleod/vaultsession/vault"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStatus(w io.Writer, st vault.Status, now time.Time) {
	fmt.Fprintf(w, "Backend:     %s\n", st.Backend)
	fmt.Fprintf(w, "Address:     %s\n", st.Address)
	fmt.Fprintf(w, "Policy:      %s\n", st.Policy)
	if st.Fingerprint != "" {
		fmt.Fprintf(w, "Fingerprint: %s\n", st.Fingerprint)
	}
	if st.Accessor != "" {
		fmt.Fprintf(w, "Accessor:    %s\n", st.Accessor)
	}
	if len(st.Policies) > 0 {
		fmt.Fprintf(w, "Policies:    %v\n", st.Policies)
	}
	fmt.Fprintf(w, "TTL:         %s\n", time.Duration(st.TTLSeconds)*time.Second)
	fmt.Fprintf(w, "Renewable:   %t\n", st.Renewable)
	switch {
	case st.Expired:
		fmt.Fprintf(w, "Expires:     expired %s\n", humanize.RelTime(st.ExpiresAt, now, "ago", "from now"))
	case !st.ExpiresAt.IsZero():
		fmt.Fprintf(w, "Expires:     %s (%s)\n", st.ExpiresAt.Format(time.RFC3339), humanize.RelTime(st.ExpiresAt, now, "ago", "from now"))
	}
}
