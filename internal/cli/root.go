package cli

import (
	"fmt"
	"os"

	"player-trade/internal/client"
	"player-trade/internal/config"
	"player-trade/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once the root command has run.
type app struct {
	configPath string
	serverURL  string
	output     string
	verbose    bool

	client client.RestClientInterface
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tradectl",
		Short: "CLI tool for the player trade API",
		Long: `tradectl manages players and submits trades against a running player-trade server.

The stress command fires many concurrent trades between two players to show
that balances stay conserved under contention.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.client != nil {
				return nil
			}
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return fmt.Errorf("could not load config: %w", err)
			}
			if a.serverURL != "" {
				cfg.Client.BaseURL = a.serverURL
			}

			level := "warn"
			if a.verbose {
				level = "debug"
			}
			log, err := logger.NewLogger(level, "console", zap.Fields(zap.String("component", "tradectl")))
			if err != nil {
				return err
			}
			a.client = client.NewRestClient(&cfg.Client, log)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "./configs", "Directory holding config.yml")
	rootCmd.PersistentFlags().StringVar(&a.serverURL, "server", "", "Server URL, overrides client.base_url (env: CLIENT_BASE_URL)")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(newHealthCmd(a))
	rootCmd.AddCommand(newPlayersCmd(a))
	rootCmd.AddCommand(newTradeCmd(a))
	rootCmd.AddCommand(newTradesCmd(a))
	rootCmd.AddCommand(newStressCmd(a))

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Health(cmd.Context()); err != nil {
				return err
			}
			newOutput(cmd.OutOrStdout(), a.output).Message("OK")
			return nil
		},
	}
}
