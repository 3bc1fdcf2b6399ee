package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cygnusgs/groundlink/internal/boot"
	"github.com/cygnusgs/groundlink/internal/config"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a ground station session",
	Long: `
Start a ground station session against the configured radio.

Examples:
  groundlink start                          # Use the default config path
  groundlink start -c config.yml            # Use config.yml
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		return boot.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
