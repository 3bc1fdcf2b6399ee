package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cygnusgs/groundlink/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and print the effective values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		redacted := *cfg
		redacted.Keys = config.KeysConfig{
			SpacecraftMAC: redact(cfg.Keys.SpacecraftMAC),
			GroundMAC:     redact(cfg.Keys.GroundMAC),
			OpenAccess:    redact(cfg.Keys.OpenAccess),
			Cipher:        redact(cfg.Keys.Cipher),
			CipherIV:      redact(cfg.Keys.CipherIV),
		}
		fmt.Printf("config OK: %s\n", configFile)
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(&redacted)
	},
}

func redact(key string) string {
	if key == "" {
		return ""
	}
	return "<set>"
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
