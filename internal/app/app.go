package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/coursepilot-ai/coursepilot/internal/config"
	"github.com/coursepilot-ai/coursepilot/internal/core"
	db "github.com/coursepilot-ai/coursepilot/internal/core/database"
	"github.com/coursepilot-ai/coursepilot/internal/core/ingestion"
	"github.com/coursepilot-ai/coursepilot/internal/core/llm"
	"github.com/coursepilot-ai/coursepilot/internal/core/objectstore"
	"github.com/coursepilot-ai/coursepilot/internal/core/retrieval"
	"github.com/coursepilot-ai/coursepilot/internal/services"
)

// App holds the wired application: clients, services and the HTTP server.
type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Embedder     *llm.GeminiEmbedder
	LLM          *llm.GeminiLLM
	Server       *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objClient, err := objectstore.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}
	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel, llm.GenerationSettings{
		Temperature:     float32(cfg.GenTemperature),
		MaxOutputTokens: int32(cfg.GenMaxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the language model: %w", err)
	}

	pipeline := ingestion.NewPipeline(
		ingestion.NewDocconvExtractor(),
		embedder,
		dbClient,
		&ingestion.Config{
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
			MaxFileBytes: cfg.MaxFileBytes,
		},
	)

	retriever := retrieval.NewRetriever(embedder, dbClient, cfg.TopK)
	composer := retrieval.NewComposer(llmProvider, cfg.LLMRetries)

	userService := services.NewUserService(dbClient)
	quizService := services.NewQuizService(dbClient, llmProvider, cfg.LLMRetries)
	courseService := services.NewCourseService(dbClient, objClient, pipeline, quizService, cfg.MaxFileBytes)
	chatService := services.NewChatService(dbClient, retriever, composer)

	server := NewServer(cfg, userService, courseService, chatService, quizService)

	return &App{
		DBClient:     dbClient,
		ObjectClient: objClient,
		Embedder:     embedder,
		LLM:          llmProvider,
		Server:       server,
	}, nil
}

func (a *App) Close() {
	if a.LLM != nil {
		_ = a.LLM.Close()
	}
	if a.Embedder != nil {
		_ = a.Embedder.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
