// Worker-only entry point: runs the supervisor and conversation runners
// without the HTTP API, for scaling job processing independently of the
// enqueue surface.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"whatsapp-ai-assistant/internal/config"
	"whatsapp-ai-assistant/internal/domain/ports/adapter"
	aiAdapters "whatsapp-ai-assistant/internal/infra/adapters/ai"
	docAdapters "whatsapp-ai-assistant/internal/infra/adapters/document"
	waAdapters "whatsapp-ai-assistant/internal/infra/adapters/whatsapp"
	pg "whatsapp-ai-assistant/internal/infra/db/postgres"
	"whatsapp-ai-assistant/internal/infra/logging"
	"whatsapp-ai-assistant/internal/infra/metrics"
	red "whatsapp-ai-assistant/internal/infra/redis"
	"whatsapp-ai-assistant/internal/infra/worker"
	"whatsapp-ai-assistant/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	convLog := red.NewConversationLog(redisClient, cfg.Queue, logger)
	chunkStore := red.NewChunkStore(redisClient, cfg.Queue.ChunkTTL, logger)
	mediaStore := red.NewMediaStore(redisClient, cfg.Queue.ChunkTTL)
	historyRepo := pg.NewHistoryRepo(pool)

	var agent adapter.AgentAdapter
	switch cfg.Agent.Provider {
	case "gemini":
		agent, err = aiAdapters.NewGeminiAdapter(ctx, cfg.Agent.GeminiKey, cfg.Agent.GeminiURL, cfg.Agent.Model, cfg.Agent.MaxOutputTokens)
	case "noop":
		agent = aiAdapters.NewNoopAgentAdapter()
	default:
		agent, err = aiAdapters.NewOpenAIAdapter(cfg.Agent.OpenAIKey, cfg.Agent.Model, cfg.Agent.MaxOutputTokens)
	}
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

	executor := usecase.NewJobExecutor(historyRepo, chunkStore, mediaStore, agent, ingester, wa, cfg.History, logger)

	workerPool := worker.NewPool(cfg.Queue.PoolWorkers, logger)
	workerPool.Start(ctx)
	supervisor := worker.NewSupervisor(convLog, executor, workerPool, cfg.Queue, logger)

	if err := supervisor.Run(ctx); err != nil && err != context.Canceled {
		logger.Error().Err(err).Msg("supervisor stopped with error")
	}
	workerPool.Stop()
	logger.Info().Msg("worker shutdown complete")
}
