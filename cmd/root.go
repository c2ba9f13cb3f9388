package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/followup-cli/internal/config"
)

var cfg *config.Config

var (
	rootConfigFile string
	rootProvider   string
	rootLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "followup-cli",
	Short: "Follow-up resolution and AI advisory for CRM exports",
	Long: `Reads a CRM spreadsheet export, finds the next follow-up for each lead,
asks a language model for a diagnosis, strategy and next action, and reports
the results per salesperson.

Settings come from config.yaml, FOLLOWUP_* environment variables and .env.`,
	Example: `  followup-cli analyze --file export.xlsx --owner Ana -o ana.md
  followup-cli analyze --file export.csv --offline --format json
  followup-cli serve --port 5000 --provider gemini`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFile(rootConfigFile)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if rootProvider != "" {
			c.Advisor.Provider = rootProvider
		}
		if rootLogLevel != "" {
			c.Log.Level = rootLogLevel
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootConfigFile, "config", "", "config file (default ./config.yaml)")
	f.StringVar(&rootProvider, "provider", "", "advisor provider override: anthropic or gemini")
	f.StringVar(&rootLogLevel, "log-level", "", "log level override: debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
