package cmd

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/ngmihq/ngmi/internal/ai"
	"github.com/ngmihq/ngmi/internal/ai/gemini"
	"github.com/ngmihq/ngmi/internal/docstore"
	"github.com/ngmihq/ngmi/internal/events"
	"github.com/ngmihq/ngmi/internal/extract"
	"github.com/ngmihq/ngmi/internal/logger"
	"github.com/ngmihq/ngmi/internal/pipeline"
	"github.com/ngmihq/ngmi/internal/secrets"
	"github.com/ngmihq/ngmi/internal/store"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func mustLogger() *zap.Logger {
	lg, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return lg
}

func mustConfig(lg *zap.Logger) *Config {
	config, err := getConfig()
	if err != nil {
		lg.Fatal("getting a config", zap.Error(err))
	}
	return config
}

func openStore(ctx context.Context, lg *zap.Logger, config *Config) *store.Store {
	st, err := store.Open(ctx, config.Database.URL)
	if err != nil {
		lg.Fatal("connecting to the database",
			zap.Error(err),
			zap.String("hint", "set database.url in the config file or the NGMI_DATABASE_URL environment variable"),
		)
	}
	return st
}

func newVocabulary(lg *zap.Logger, config *Config) *extract.Vocabulary {
	if config.Extract.VocabularyFile == "" {
		return extract.DefaultVocabulary()
	}

	f, err := os.Open(config.Extract.VocabularyFile)
	if err != nil {
		lg.Fatal("opening the vocabulary file", zap.Error(err))
	}
	defer f.Close()

	vocab, err := extract.ParseVocabulary(f)
	if err != nil {
		lg.Fatal("parsing the vocabulary file", zap.Error(err))
	}

	lg.Debug("loaded a custom vocabulary",
		zap.String("file", config.Extract.VocabularyFile),
		zap.Int("terms", vocab.Len()),
	)

	return vocab
}

func newExtractor(lg *zap.Logger, config *Config) *extract.Extractor {
	return extract.New(config.Extract.MaxSizeBytes, newVocabulary(lg, config))
}

func newDocstore(ctx context.Context, lg *zap.Logger, config *Config) docstore.Store {
	switch strings.ToLower(strings.TrimSpace(config.Docstore.Backend)) {
	case "", "fs":
		docs, err := docstore.NewFS(config.Docstore.Path)
		if err != nil {
			lg.Fatal("preparing the upload directory", zap.Error(err))
		}
		return docs
	case "s3":
		s3cfg := config.Docstore.S3
		if s3cfg == nil {
			lg.Fatal("docstore.s3 configuration is required for the s3 backend")
		}

		secret := s3cfg.SecretAccessKey
		if s3cfg.SecretAccessKeyFile != "" {
			loaded, err := secrets.Load(secrets.Source{
				Name:  "s3 secret access key",
				Value: s3cfg.SecretAccessKey,
				File:  s3cfg.SecretAccessKeyFile,
			})
			if err != nil {
				lg.Fatal("loading the s3 secret access key", zap.Error(err))
			}
			secret = loaded
		}

		docs, err := docstore.NewS3(ctx, docstore.S3Options{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: secret,
		})
		if err != nil {
			lg.Fatal("connecting to the object store", zap.Error(err))
		}
		return docs
	default:
		lg.Fatal("unsupported docstore backend", zap.String("backend", config.Docstore.Backend))
		return nil
	}
}

func newGenerator(ctx context.Context, lg *zap.Logger, config *Config) *gemini.Generator {
	provider := strings.TrimSpace(strings.ToLower(config.AI.Provider))
	if provider != "" && provider != "gemini" {
		lg.Fatal("unsupported ai provider", zap.String("provider", config.AI.Provider))
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.AI.Gemini.APIKey,
		File:  config.AI.Gemini.APIKeyFile,
	})
	if err != nil {
		lg.Fatal("loading the gemini api key",
			zap.Error(err),
			zap.String("hint", "set ai.gemini.api-key, GEMINI_API_KEY or GEMINI_API_KEY_FILE"),
		)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, config.AI.Gemini.Model)
	if err != nil {
		lg.Fatal("building the gemini client", zap.Error(err))
	}

	return generator
}

func newEvaluator(ctx context.Context, lg *zap.Logger, config *Config) ai.Evaluator {
	generator := newGenerator(ctx, lg, config)

	evalLogger := logger.WithFields(lg, logger.CommonFields("gemini", generator.Model())...)

	return gemini.NewEvaluator(
		generator,
		evalLogger,
		config.AI.Gemini.MaxAttempts,
		config.AI.Gemini.AttemptTimeout,
		config.AI.Gemini.MaxLogLength,
	)
}

func newPublisher(lg *zap.Logger, config *Config) events.Publisher {
	if strings.TrimSpace(config.Events.URL) == "" {
		lg.Debug("event publishing disabled", zap.String("reason", "events.url is not set"))
		return events.Noop{}
	}

	publisher, err := events.NewAMQP(config.Events.URL, lg)
	if err != nil {
		lg.Fatal("connecting to the message broker", zap.Error(err))
	}

	return publisher
}

func pendingPolicy(config *Config) pipeline.PendingPolicy {
	if strings.EqualFold(config.Pipeline.OnPending, string(pipeline.Wait)) {
		return pipeline.Wait
	}
	return pipeline.Reject
}
