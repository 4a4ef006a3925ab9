package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"whatsapp-ai-assistant/internal/config"
	"whatsapp-ai-assistant/internal/domain/ports/adapter"
	aiAdapters "whatsapp-ai-assistant/internal/infra/adapters/ai"
	docAdapters "whatsapp-ai-assistant/internal/infra/adapters/document"
	waAdapters "whatsapp-ai-assistant/internal/infra/adapters/whatsapp"
	pg "whatsapp-ai-assistant/internal/infra/db/postgres"
	"whatsapp-ai-assistant/internal/infra/logging"
	"whatsapp-ai-assistant/internal/infra/metrics"
	red "whatsapp-ai-assistant/internal/infra/redis"
	"whatsapp-ai-assistant/internal/infra/web"
	"whatsapp-ai-assistant/internal/infra/worker"
	"whatsapp-ai-assistant/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop adapters allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Stores ----
	convLog := red.NewConversationLog(redisClient, cfg.Queue, logger)
	chunkStore := red.NewChunkStore(redisClient, cfg.Queue.ChunkTTL, logger)
	mediaStore := red.NewMediaStore(redisClient, cfg.Queue.ChunkTTL)
	historyRepo := pg.NewHistoryRepo(pool)

	// ---- Adapters ----
	agent, err := buildAgent(ctx, cfg)
	if err != nil {
		log.Fatalf("agent adapter: %v", err)
	}

	var wa adapter.WhatsAppAdapter = waAdapters.NewNoopClient()
	if cfg.WhatsApp.BridgeURL != "" {
		wa, err = waAdapters.NewBridgeClient(cfg.WhatsApp.BridgeURL, cfg.WhatsApp.Timeout)
		if err != nil {
			log.Fatalf("whatsapp bridge: %v", err)
		}
	}

	var ingester adapter.DocumentIngester = docAdapters.NewNoopIngester()
	if cfg.KB.ServiceURL != "" {
		ingester, err = docAdapters.NewServiceIngester(cfg.KB.ServiceURL, cfg.KB.Timeout)
		if err != nil {
			log.Fatalf("document ingester: %v", err)
		}
	}

	// ---- Use cases ----
	enqueueUC := usecase.NewEnqueueUseCase(convLog, historyRepo, mediaStore, logger)
	statusUC := usecase.NewJobStatusReader(chunkStore)
	executor := usecase.NewJobExecutor(historyRepo, chunkStore, mediaStore, agent, ingester, wa, cfg.History, logger)

	// ---- Workers ----
	workerPool := worker.NewPool(cfg.Queue.PoolWorkers, logger)
	workerPool.Start(ctx)
	supervisor := worker.NewSupervisor(convLog, executor, workerPool, cfg.Queue, logger)

	// ---- HTTP ----
	server := web.NewServer(cfg.Web.Port, enqueueUC, statusUC, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return supervisor.Run(gctx)
	})
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error().Err(err).Msg("shutdown with error")
	}
	workerPool.Stop()
	logger.Info().Msg("shutdown complete")
}

func buildAgent(ctx context.Context, cfg *config.Config) (adapter.AgentAdapter, error) {
	switch cfg.Agent.Provider {
	case "gemini":
		return aiAdapters.NewGeminiAdapter(ctx, cfg.Agent.GeminiKey, cfg.Agent.GeminiURL, cfg.Agent.Model, cfg.Agent.MaxOutputTokens)
	case "noop":
		return aiAdapters.NewNoopAgentAdapter(), nil
	default:
		return aiAdapters.NewOpenAIAdapter(cfg.Agent.OpenAIKey, cfg.Agent.Model, cfg.Agent.MaxOutputTokens)
	}
}
