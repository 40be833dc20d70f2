// Command intentcore runs the intent orchestration core: the deterministic
// classification cascade, guided dialog, risk assessment, and HITL
// approval lifecycle described in the core's configuration.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/opsintent/intentcore/pkg/api"
	"github.com/opsintent/intentcore/pkg/checkpoint"
	"github.com/opsintent/intentcore/pkg/checkpoint/filestore"
	"github.com/opsintent/intentcore/pkg/checkpoint/redisstore"
	"github.com/opsintent/intentcore/pkg/checkpoint/sqlstore"
	"github.com/opsintent/intentcore/pkg/classifier/llm"
	"github.com/opsintent/intentcore/pkg/classifier/pattern"
	"github.com/opsintent/intentcore/pkg/classifier/semantic"
	"github.com/opsintent/intentcore/pkg/completeness"
	"github.com/opsintent/intentcore/pkg/config"
	"github.com/opsintent/intentcore/pkg/dialog"
	"github.com/opsintent/intentcore/pkg/embedding"
	"github.com/opsintent/intentcore/pkg/gateway"
	"github.com/opsintent/intentcore/pkg/hitl"
	"github.com/opsintent/intentcore/pkg/metrics"
	"github.com/opsintent/intentcore/pkg/models"
	"github.com/opsintent/intentcore/pkg/notify"
	"github.com/opsintent/intentcore/pkg/risk"
	"github.com/opsintent/intentcore/pkg/router"
	"github.com/opsintent/intentcore/pkg/slack"
	"github.com/opsintent/intentcore/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	var configDir string

	root := &cobra.Command{
		Use:   "intentcore",
		Short: "Deterministic IT-request intent orchestration core",
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")

	root.AddCommand(newServeCmd(&configDir))
	root.AddCommand(newClassifyCmd(&configDir))
	root.AddCommand(newMigrateCmd(&configDir))

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func loadEnv(configDir string) {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}
}

// components bundles every wired C1-C9 piece, shared between serve and
// classify so both commands assemble the core identically.
type components struct {
	cfg       *config.Config
	store     checkpoint.Store
	gateway   *gateway.Gateway
	router    *router.Router
	risk      *risk.Assessor
	dialog    *dialog.Engine
	hitl      *hitl.Controller
	metrics   *metrics.Registry
	sweeper   *checkpoint.Sweeper
}

func build(ctx context.Context, configDir string) (*components, error) {
	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	reg := metrics.New()

	store, err := buildCheckpointStore(cfg.Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("building checkpoint store: %w", err)
	}

	patternMatcher := pattern.New(cfg.PatternRules)
	completenessChecker := completeness.New(cfg.CompletenessRules)
	riskAssessor := risk.New(cfg.RiskAdjusters)

	embedClient, err := buildEmbeddingClient(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("building embedding client: %w", err)
	}
	semanticRouter := semantic.New(embedClient, cfg.Thresholds.SemanticSimilarity, reg)
	if err := semanticRouter.Load(ctx, cfg.SemanticRoutes); err != nil {
		return nil, fmt.Errorf("loading semantic routes: %w", err)
	}

	llmClassifier, err := buildLLMClassifier(cfg)
	if err != nil {
		return nil, fmt.Errorf("building LLM classifier: %w", err)
	}

	intentRouter := router.New(
		patternMatcher,
		semanticRouter,
		llmClassifier,
		completenessChecker,
		riskAssessor,
		cfg.Thresholds.PatternConfidence,
		cfg.Thresholds.SemanticSimilarity,
		reg,
	)

	userHandler := gateway.NewUserInputHandler(intentRouter)
	serviceNowHandler := gateway.NewServiceNowHandler(cfg.ServiceNowTable, patternMatcher)
	prometheusHandler := gateway.NewPrometheusHandler(cfg.PrometheusTable)
	gw := gateway.New(userHandler, serviceNowHandler, prometheusHandler, reg)

	dialogEngine, err := dialog.New(store, intentRouter, completenessChecker, cfg.RefinementRules, cfg.QuestionTemplates, cfg.Dialog.IdleTTL, reg)
	if err != nil {
		return nil, fmt.Errorf("building dialog engine: %w", err)
	}

	dispatcher := buildNotifyDispatcher()
	hitlController := hitl.New(store, dispatcher, "slack", cfg.HITL.ApprovalTTL, cfg.HITL.EscalationCap, cfg.HITL.SweepInterval, reg)

	sweeper := checkpoint.NewSweeper(store, cfg.Checkpoint.SweepInterval, cfg.Checkpoint.SweepInterval/10)

	return &components{
		cfg:     cfg,
		store:   store,
		gateway: gw,
		router:  intentRouter,
		risk:    riskAssessor,
		dialog:  dialogEngine,
		hitl:    hitlController,
		metrics: reg,
		sweeper: sweeper,
	}, nil
}

func buildCheckpointStore(cfg *config.CheckpointConfig) (checkpoint.Store, error) {
	switch cfg.Backend {
	case config.CheckpointBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.DSN})
		return redisstore.New(client, "intentcore"), nil
	case config.CheckpointBackendSQL:
		db, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres connection: %w", err)
		}
		if err := sqlstore.Migrate(db); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		return sqlstore.New(db), nil
	case config.CheckpointBackendFile:
		return filestore.New(cfg.FileRoot)
	default:
		return checkpoint.NewMemoryStore(), nil
	}
}

func buildEmbeddingClient(cfg *config.EmbeddingConfig) (semantic.EmbeddingEngine, error) {
	if cfg == nil {
		return embedding.New("", "", "", 10*time.Second), nil
	}
	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return embedding.New("", apiKey, cfg.Model, timeout), nil
}

func buildLLMClassifier(cfg *config.Config) (*llm.Classifier, error) {
	provider, err := cfg.LLMProviderRegistry.Get("classifier")
	if err != nil {
		return nil, err
	}
	apiKey := ""
	if provider.APIKeyEnv != "" {
		apiKey = os.Getenv(provider.APIKeyEnv)
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if provider.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(provider.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	budget := provider.Timeout
	if budget == 0 {
		budget = 2 * time.Second
	}
	return llm.New(client, provider.Model, budget, llm.WithAllowedPairs(cfg.PatternRules)), nil
}

func buildNotifyDispatcher() *notify.Dispatcher {
	var channels []notify.Channel

	if svc := slack.NewService(slack.ServiceConfig{
		Token:        os.Getenv("SLACK_BOT_TOKEN"),
		Channel:      os.Getenv("SLACK_APPROVAL_CHANNEL"),
		DashboardURL: os.Getenv("DASHBOARD_URL"),
	}); svc != nil {
		channels = append(channels, notify.NewSlackChannel(svc))
	}
	if webhook := os.Getenv("TEAMS_WEBHOOK_URL"); webhook != "" {
		channels = append(channels, notify.NewTeamsChannel(webhook))
	}

	return notify.NewDispatcher(channels...)
}

func newServeCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			loadEnv(*configDir)
			ctx := context.Background()

			comps, err := build(ctx, *configDir)
			if err != nil {
				return err
			}

			comps.hitl.StartSweeper(ctx)
			defer comps.hitl.StopSweeper()
			comps.sweeper.Start(ctx)
			defer comps.sweeper.Stop()

			gin.SetMode(getEnv("GIN_MODE", "release"))
			engine := gin.Default()
			server := api.New(comps.gateway, comps.dialog, comps.risk, comps.hitl, comps.metrics)
			server.Mount(engine, "/v1")

			httpPort := getEnv("HTTP_PORT", "8080")
			slog.Info("intentcore listening", "port", httpPort, "version", version.Full())
			return engine.Run(":" + httpPort)
		},
	}
}

func newClassifyCmd(configDir *string) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a single piece of text and print the routing decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			loadEnv(*configDir)
			ctx := context.Background()

			comps, err := build(ctx, *configDir)
			if err != nil {
				return err
			}

			decision := comps.router.Route(ctx, text, models.RequestContext{})
			fmt.Printf("category=%s sub_intent=%s confidence=%.2f risk=%s layer=%s sufficient=%v\n",
				decision.IntentCategory, decision.SubIntent, decision.Confidence,
				decision.RiskLevel, decision.LayerUsed, decision.Completeness.IsSufficient)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "text to classify")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func newMigrateCmd(configDir *string) *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run the SQL checkpoint store's schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			loadEnv(*configDir)
			db, err := sql.Open("pgx", dsn)
			if err != nil {
				return fmt.Errorf("opening postgres connection: %w", err)
			}
			defer db.Close()
			return sqlstore.Migrate(db)
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", getEnv("CHECKPOINT_DSN", ""), "postgres DSN")
	return cmd
}
