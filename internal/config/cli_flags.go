package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Emit JSON logs")
	cmd.PersistentFlags().String("config", "", "Path to the YAML plan file")

	cmd.PersistentFlags().String("city", "", "City to harvest")
	cmd.PersistentFlags().String("districts", "", "Comma-separated district list")
	cmd.PersistentFlags().String("categories", "", "Comma-separated category list")

	cmd.PersistentFlags().String("store", "", "Store driver: postgres or memory")
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")
	cmd.PersistentFlags().String("addr", "", "HTTP API listen address")

	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().String("proxy", "", "HTTP/SOCKS5 proxy (e.g., http://localhost:8080)")
	cmd.PersistentFlags().String("chrome-path", "", "Path to the Chrome executable")
	cmd.PersistentFlags().String("nav-timeout", "", "Hard timeout per navigation (e.g., 60s)")
	cmd.PersistentFlags().Bool("headed", false, "Run the browser with a visible window")
}
