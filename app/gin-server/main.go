package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/couchly/sofa-advisor/config"
	"github.com/couchly/sofa-advisor/internal/agent"
	"github.com/couchly/sofa-advisor/internal/api/handlers"
	"github.com/couchly/sofa-advisor/internal/api/middleware"
	"github.com/couchly/sofa-advisor/internal/api/routes"
	"github.com/couchly/sofa-advisor/internal/cache"
	"github.com/couchly/sofa-advisor/internal/logger"
	"github.com/couchly/sofa-advisor/internal/providers/embedding"
	"github.com/couchly/sofa-advisor/internal/providers/llm"
	pgrepo "github.com/couchly/sofa-advisor/internal/repositories/postgres"
	"github.com/couchly/sofa-advisor/internal/retrieval"
	"github.com/couchly/sofa-advisor/internal/storage"
)

func main() {
	_ = godotenv.Load()

	l := logger.New()
	ctx := context.Background()

	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	l.Info("PostgreSQL connected")

	// Embedding provider, with the Redis cache in front when available.
	var embedder embedding.Provider
	ds, err := embedding.NewDashScope(embedding.DashScopeConfig{})
	if err != nil {
		log.Fatalf("embedding init error: %v", err)
	}
	embedder = ds

	if err := config.InitRedis(); err != nil {
		l.WithError(err).Warn("Redis unavailable, running without embedding cache")
	} else {
		l.Info("Redis connected")
		embedder = embedding.NewCached(ds, cache.NewRedisCache(config.RedisClient, "sofa"), 24*time.Hour)
	}

	// Generation provider.
	var provider llm.Provider
	switch os.Getenv("LLM_PROVIDER") {
	case "vertex":
		provider, err = llm.NewVertexGemini(ctx,
			os.Getenv("VERTEX_PROJECT_ID"),
			os.Getenv("VERTEX_LOCATION"),
			os.Getenv("VERTEX_MODEL"))
	default:
		provider, err = llm.NewDashScope(llm.DashScopeConfig{Model: os.Getenv("LLM_MODEL")})
	}
	if err != nil {
		log.Fatalf("LLM init error: %v", err)
	}
	defer provider.Close()

	topK := 5
	if s := os.Getenv("RETRIEVAL_TOP_K"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			topK = n
		}
	}

	repo := pgrepo.NewProductRepo(config.PostgresDB)
	engine := retrieval.NewEngine(repo, embedder, topK, l)

	textWeight := 0.3
	if s := os.Getenv("HYBRID_TEXT_WEIGHT"); s != "" {
		if w, err := strconv.ParseFloat(s, 64); err == nil {
			textWeight = w
		}
	}

	conv := agent.New(provider, engine, l, agent.Config{
		TextWeight:  textWeight,
		StreamDelay: 20 * time.Millisecond,
	})

	var uploader storage.Uploader
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		gcs, err := storage.NewGCSUploader(ctx, bucket)
		if err != nil {
			log.Fatalf("GCS init error: %v", err)
		}
		defer gcs.Close()
		uploader = gcs
	} else {
		l.Warn("GCS_BUCKET not set, image upload disabled")
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(l), gin.Recovery())

	routes.RegisterRoutes(r, routes.Deps{
		Chat: handlers.NewChatHandler(conv, uploader),
		WS:   handlers.NewWSHandler(conv),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
