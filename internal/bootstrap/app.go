package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"budget-backend/internal/analysis"
	"budget-backend/internal/llm"
	openai "budget-backend/internal/llm/openai"
	"budget-backend/internal/profile"
	"budget-backend/internal/questionnaire"
	"budget-backend/internal/services/health"
	"budget-backend/internal/shared/apperr"
	"budget-backend/internal/shared/config"
	"budget-backend/internal/shared/server"
	"budget-backend/internal/shared/storage/db"
	"budget-backend/internal/shared/storage/object"
	localstore "budget-backend/internal/shared/storage/object/local"
	s3store "budget-backend/internal/shared/storage/object/s3"
	"budget-backend/internal/shared/telemetry"
	"budget-backend/internal/statements"
	"budget-backend/internal/trends"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	LLM    llm.Client

	ProfilesRepo   profile.Repo
	StatementsRepo statements.Repo
	TrendsRepo     trends.Repo
	AnalysisRepo   analysis.Repo

	StatementsService    *statements.Service
	TrendsService        *trends.Service
	QuestionnaireService *questionnaire.Service
	Controller           *analysis.Controller
	Runner               *analysis.Runner
}

// Build prepares every dependency and the router. dbOpts sizes the pool for the calling process.
func Build(ctx context.Context, cfg config.Config, dbOpts db.Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg, dbOpts)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, DB: sqlDB, Store: store, LLM: client}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:               cfg,
		Health:               health.NewService(pinger(sqlDB), cfg.ObjectStoreType, cfg.LLMProvider),
		StatementsHandler:    statements.NewHandler(app.StatementsService),
		TrendsHandler:        trends.NewHandler(app.TrendsService),
		QuestionnaireHandler: questionnaire.NewHandler(app.QuestionnaireService),
		AnalysisHandler:      analysis.NewHandler(app.Runner),
	})
	return app, nil
}

// Close waits for background completions and releases the database.
func (a *App) Close() error {
	if a.QuestionnaireService != nil {
		a.QuestionnaireService.Wait()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config, opts db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(opts))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{
				"reason": "database connect failed",
				"error":  apperr.Sanitize(err),
			})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider != "openai" {
		telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"provider": cfg.LLMProvider})
		return llm.PlaceholderClient{}, nil
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" && isDevLike(cfg.Env) {
		telemetry.Warn("bootstrap.llm_placeholder", map[string]any{"reason": "OPENAI_API_KEY empty"})
		return llm.PlaceholderClient{}, nil
	}
	return openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, openai.Options{
		TextTimeout:      cfg.TextTimeout,
		DocumentTimeout:  cfg.DocumentTimeout,
		MaxDocumentBytes: cfg.MaxDocumentBytes,
	})
}

func buildServices(app *App) {
	cfg := app.Config
	if app.DB != nil {
		app.ProfilesRepo = &profile.PGRepo{DB: app.DB}
		app.StatementsRepo = &statements.PGRepo{DB: app.DB}
		app.TrendsRepo = &trends.PGRepo{DB: app.DB}
		app.AnalysisRepo = &analysis.PGRepo{DB: app.DB}
	} else {
		app.ProfilesRepo = profile.NewMemoryRepo()
		app.StatementsRepo = statements.NewMemoryRepo()
		app.TrendsRepo = trends.NewMemoryRepo()
		app.AnalysisRepo = analysis.NewMemoryRepo()
	}

	app.TrendsService = trends.NewService(app.TrendsRepo)
	app.StatementsService = statements.NewService(
		app.StatementsRepo,
		app.TrendsService,
		profile.IncomeSource{Repo: app.ProfilesRepo},
		app.Store,
		app.LLM,
		statements.Options{
			MaxDocumentBytes: cfg.MaxDocumentBytes,
			InlineDocuments:  cfg.InlineDocuments,
			MaxOutputTokens:  cfg.MaxOutputTokens,
			Temperature:      cfg.Temperature,
		},
	)
	app.Controller = analysis.NewController(app.AnalysisRepo, app.LLM, analysis.Options{
		Timeout:         cfg.TextTimeout,
		Tolerance:       cfg.AllocationTolerance,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Temperature:     cfg.Temperature,
	})
	app.Runner = &analysis.Runner{
		Ctrl:       app.Controller,
		Profiles:   app.ProfilesRepo,
		Statements: app.StatementsRepo,
	}
	app.QuestionnaireService = questionnaire.NewService(app.ProfilesRepo, app.Runner, nil)
}

// pinger avoids handing health a typed-nil *sql.DB.
func pinger(sqlDB *sql.DB) health.Pinger {
	if sqlDB == nil {
		return nil
	}
	return sqlDB
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
