// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "groundlink",
	Short: "GroundLink - amateur-band ground station for small spacecraft",
	Long: `GroundLink is the ground segment of an amateur-band spacecraft link.
It frames and authenticates telecommands, verifies and acknowledges
telemetry downlinks over a windowed ARQ protocol, and renders every
frame crossing the link for the operator.

The radio side speaks either KISS over a TNC socket pair or the
Lithium-1 serial framing directly. Commands are read line by line from
standard input while a session is running.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/groundlink/config.yml",
		"config file path")
}
