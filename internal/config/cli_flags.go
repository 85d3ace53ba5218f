package config

import "github.com/spf13/cobra"

// RegisterFlags binds the global flags every command shares. Command
// specific flags live with their command.
func RegisterFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.BoolP("quiet", "q", false, "Only log errors")
	pf.Bool("json", false, "Log as JSON instead of console output")
	pf.String("proxy", "", "HTTP or SOCKS5 proxy URL")
	pf.String("timeout", "30s", "Timeout per HTTP request")
	pf.String("user-agent", "", "Override the User-Agent header")
}
