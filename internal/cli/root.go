package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"talentscan/cv-screener/internal/config"
	"talentscan/cv-screener/internal/logger"
)

const app = "talentscan"

// Actual version can be specified in build command.
var version = "unknown"

// Execute runs the talentscan command tree.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree on its own viper instance.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:          app,
		Short:        "talentscan screens résumés against a job description with Gemini",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(v, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is talentscan.yaml in current directory)")
	root.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	root.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	mustBind(v.BindPFlag("debug", root.PersistentFlags().Lookup("debug")))
	mustBind(v.BindPFlag("json", root.PersistentFlags().Lookup("json")))

	bindEnv(v)

	root.AddCommand(newScreenCommand(v))
	root.AddCommand(newDriveAuthCommand(v))
	root.AddCommand(newVersionCommand())

	return root
}

func bindEnv(v *viper.Viper) {
	envs := map[string]string{
		"gemini.api-key":       "GEMINI_API_KEY",
		"gemini.model":         "GEMINI_MODEL",
		"gemini.backend":       "GEMINI_BACKEND",
		"gemini.project":       "GOOGLE_CLOUD_PROJECT",
		"gemini.location":      "GOOGLE_CLOUD_LOCATION",
		"gemini.temperature":   "GEMINI_TEMPERATURE",
		"screening.page-limit": "SCREENING_PAGE_LIMIT",
		"screening.delay":      "SCREENING_REQUEST_DELAY",
		"screening.backoff":    "SCREENING_RATE_LIMIT_BACKOFF",
		"drive.credentials":    "DRIVE_CREDENTIALS_FILE",
		"drive.token":          "DRIVE_TOKEN_FILE",
	}
	for key, env := range envs {
		mustBind(v.BindEnv(key, env))
	}

	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.backend", "gemini")
	v.SetDefault("gemini.location", "us-central1")
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.embed-model", "text-embedding-004")
	v.SetDefault("screening.page-limit", 3)
	v.SetDefault("screening.delay", time.Second)
	v.SetDefault("screening.backoff", 10*time.Second)
	v.SetDefault("screening.log-preview", 200)
	v.SetDefault("drive.credentials", "credentials.json")
	v.SetDefault("drive.token", "token.json")
}

func mustBind(err error) {
	if err != nil {
		panic(fmt.Sprintf("binding config key: %v", err))
	}
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(app)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// The config file is optional unless named explicitly.
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func newLogger(v *viper.Viper) (*zap.Logger, error) {
	return logger.New(v.GetBool("json"), v.GetBool("debug"))
}

func geminiConfig(v *viper.Viper) config.GeminiConfig {
	return config.GeminiConfig{
		APIKey:      v.GetString("gemini.api-key"),
		Model:       v.GetString("gemini.model"),
		EmbedModel:  v.GetString("gemini.embed-model"),
		Backend:     v.GetString("gemini.backend"),
		Project:     v.GetString("gemini.project"),
		Location:    v.GetString("gemini.location"),
		Temperature: float32(v.GetFloat64("gemini.temperature")),
	}
}

func validateGemini(cfg config.GeminiConfig) error {
	switch cfg.Backend {
	case "gemini":
		if cfg.APIKey == "" {
			return errors.New("a Gemini API key is required: set GEMINI_API_KEY or gemini.api-key")
		}
	case "vertex":
		if cfg.Project == "" {
			return errors.New("GOOGLE_CLOUD_PROJECT is required for the vertex backend")
		}
	default:
		return fmt.Errorf("unsupported gemini backend %q", cfg.Backend)
	}
	return nil
}
