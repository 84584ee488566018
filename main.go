package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	orchestratorx "github.com/PH536-UI/mr-dom-ph-copilot/agent/agents/orchestrator"
	specialistx "github.com/PH536-UI/mr-dom-ph-copilot/agent/agents/specialist"
	memoryx "github.com/PH536-UI/mr-dom-ph-copilot/agent/memory"
	toolx "github.com/PH536-UI/mr-dom-ph-copilot/agent/tool"
	apix "github.com/PH536-UI/mr-dom-ph-copilot/pkg/api"
	configx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/config"
	_ "github.com/PH536-UI/mr-dom-ph-copilot/pkg/logger/autoload"
	mauticx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/mautic"
	openrouterx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/openrouter"
	vtigerx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/vtiger"
	webhookx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/webhook"
)

func main() {
	ctx := context.Background()

	vtigerCfg := configx.MustNew[vtigerx.Config]("VTIGER")
	crm, err := vtigerx.NewClient(*vtigerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize vtiger client")
	}

	mauticCfg := configx.MustNew[mauticx.Config]("MAUTIC")
	marketing, err := mauticx.NewClient(*mauticCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize mautic client")
	}

	catalog := toolx.NewCatalog(crm, marketing)

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	openRouterClient := openrouterx.NewClient(*openRouterCfg)
	if openRouterClient == nil {
		log.Fatal().Msg("initialize openrouter sdk client")
	}
	_ = openRouterClient

	registry, err := specialistx.NewRegistry(ctx, *openRouterCfg, catalog)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize agent registry")
	}

	opts := []orchestratorx.Option{}

	if url := strings.TrimSpace(os.Getenv("MEMORY_URL")); url != "" {
		storeCfg := configx.MustNew[memoryx.UpstashRedisConfig]("MEMORY")
		store, err := memoryx.NewUpstashRedisStore(*storeCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("initialize journal store")
		}
		opts = append(opts, orchestratorx.WithStore(store))
	}

	if dsn := strings.TrimSpace(os.Getenv("ARCHIVE_DSN")); dsn != "" {
		archive, err := memoryx.NewArchive(memoryx.ArchiveConfig{DSN: dsn})
		if err != nil {
			log.Fatal().Err(err).Msg("initialize conversation archive")
		}
		defer archive.Close()
		if err := archive.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("prepare archive schema")
		}
		opts = append(opts, orchestratorx.WithArchive(archive))
	}

	if url := strings.TrimSpace(os.Getenv("N8N_URL")); url != "" {
		webhookCfg := configx.MustNew[webhookx.Config]("N8N")
		opts = append(opts, orchestratorx.WithNotifier(webhookx.MustNew(*webhookCfg)))
	}

	orchestrator, err := orchestratorx.New(registry, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize orchestrator")
	}

	apiCfg := configx.MustNew[apix.Config]("API")
	server := apix.NewServer(*apiCfg, apix.NewRouter(apix.NewHandlers(orchestrator)))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
