package main

import (
	"fmt"
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/careerpilot/agentcore/config"
	"github.com/careerpilot/agentcore/logging"
	"github.com/careerpilot/agentcore/model"
	"github.com/careerpilot/agentcore/model/anthropic"
	"github.com/careerpilot/agentcore/model/openai"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "agentcore",
		Short:         "Agent orchestration core for the career platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (yaml)")
	cmd.AddCommand(newRunCmd(), newEventsCmd(), newDrainCmd())
	return cmd
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func buildLogger(cfg *config.Config) *logging.OrchestratorLogger {
	level := logging.LogLevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = logging.LogLevelDebug
	case "warn":
		level = logging.LogLevelWarn
	case "error":
		level = logging.LogLevelError
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
}

// buildModel selects the reasoning model from config. API keys come from
// the SDKs' standard environment variables.
func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Model.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) { o.Model = cfg.Model.OpenAI }), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) { o.Model = anthropicsdk.Model(cfg.Model.Anthropic) }), nil
	case "mock":
		m := model.NewMockModel("mock")
		m.SetFallback("{}")
		return m, nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}
