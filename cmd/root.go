package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/ngmihq/ngmi/internal/extract"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "ngmi"

	defaultDatabaseURL = "postgres://localhost:5432/ngmi?sslmode=disable"
)

type Config struct {
	Database *DatabaseConfig `mapstructure:"database"`
	Docstore *DocstoreConfig `mapstructure:"docstore"`
	Extract  *ExtractConfig  `mapstructure:"extract"`
	AI       *AIConfig       `mapstructure:"ai"`
	Events   *EventsConfig   `mapstructure:"events"`
	Pipeline *PipelineConfig `mapstructure:"pipeline"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type DocstoreConfig struct {
	Backend string    `mapstructure:"backend"`
	Path    string    `mapstructure:"path"`
	S3      *S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket              string `mapstructure:"bucket"`
	Region              string `mapstructure:"region"`
	Endpoint            string `mapstructure:"endpoint"`
	AccessKeyID         string `mapstructure:"access-key-id"`
	SecretAccessKey     string `mapstructure:"secret-access-key"`
	SecretAccessKeyFile string `mapstructure:"secret-access-key-file"`
}

type ExtractConfig struct {
	MaxSizeBytes   int64  `mapstructure:"max-size-bytes"`
	VocabularyFile string `mapstructure:"vocabulary-file"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey         string        `mapstructure:"api-key"`
	APIKeyFile     string        `mapstructure:"api-key-file"`
	Model          string        `mapstructure:"model"`
	MaxAttempts    int           `mapstructure:"max-attempts"`
	AttemptTimeout time.Duration `mapstructure:"attempt-timeout"`
	MaxLogLength   int           `mapstructure:"max-log-length"`
}

type EventsConfig struct {
	URL string `mapstructure:"url"`
}

type PipelineConfig struct {
	OnPending  string        `mapstructure:"on-pending"`
	StaleAfter time.Duration `mapstructure:"stale-after"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "ngmi scores resumes against job postings and tells you how cooked you are",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("database.url", "NGMI_DATABASE_URL"); err != nil {
		log.Fatalf("binding NGMI_DATABASE_URL environment variable: %v", err)
	}

	if err := viper.BindEnv("ai.gemini.api-key", "GEMINI_API_KEY"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY environment variable: %v", err)
	}

	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	if err := viper.BindEnv("events.url", "NGMI_AMQP_URL"); err != nil {
		log.Fatalf("binding NGMI_AMQP_URL environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is ngmi.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Secrets such as GEMINI_API_KEY may live in a local .env file.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Running without a config file is fine: every key has a default
		// or an environment binding. An explicitly named file must exist.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return withDefaults(config), nil
}

// withDefaults fills the holes viper leaves: absent sections become empty
// structs and environment-bound keys that never appeared in a config file
// are pulled from viper directly.
func withDefaults(config *Config) *Config {
	if config == nil {
		config = &Config{}
	}

	if config.Database == nil {
		config.Database = &DatabaseConfig{}
	}
	if config.Database.URL == "" {
		config.Database.URL = viper.GetString("database.url")
	}
	if config.Database.URL == "" {
		config.Database.URL = defaultDatabaseURL
	}

	if config.Docstore == nil {
		config.Docstore = &DocstoreConfig{}
	}
	if config.Docstore.Backend == "" {
		config.Docstore.Backend = "fs"
	}
	if config.Docstore.Path == "" {
		config.Docstore.Path = "uploads"
	}

	if config.Extract == nil {
		config.Extract = &ExtractConfig{}
	}
	if config.Extract.MaxSizeBytes <= 0 {
		config.Extract.MaxSizeBytes = extract.DefaultMaxSize
	}

	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Provider == "" {
		config.AI.Provider = "gemini"
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.AI.Gemini.APIKey == "" {
		config.AI.Gemini.APIKey = viper.GetString("ai.gemini.api-key")
	}
	if config.AI.Gemini.APIKeyFile == "" {
		config.AI.Gemini.APIKeyFile = viper.GetString("ai.gemini.api-key-file")
	}

	if config.Events == nil {
		config.Events = &EventsConfig{}
	}
	if config.Events.URL == "" {
		config.Events.URL = viper.GetString("events.url")
	}

	if config.Pipeline == nil {
		config.Pipeline = &PipelineConfig{}
	}
	if config.Pipeline.StaleAfter <= 0 {
		config.Pipeline.StaleAfter = 15 * time.Minute
	}

	return config
}
