package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	enginex "github.com/signalscape/rf-intent-agent/agent/engine"
	llmx "github.com/signalscape/rf-intent-agent/agent/llm"
	reasonerx "github.com/signalscape/rf-intent-agent/agent/reasoner"
	routerx "github.com/signalscape/rf-intent-agent/agent/router"
	configx "github.com/signalscape/rf-intent-agent/pkg/config"
	logx "github.com/signalscape/rf-intent-agent/pkg/logger"
	openrouterx "github.com/signalscape/rf-intent-agent/pkg/openrouter"
	"github.com/signalscape/rf-intent-agent/rulestore"
)

type AppConfig struct {
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
	MaxIterations int    `envconfig:"MAX_ITERATIONS" default:"5"`
	SeedDemoData  bool   `envconfig:"SEED_DEMO_DATA" default:"true"`
}

func main() {
	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	appCfg := configx.MustNew[AppConfig]("AGENT")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")

	openRouterClient := openrouterx.NewClient(llmCfg.OpenRouterFor(llmx.RolePlanner))
	if openRouterClient == nil {
		log.Fatal().Msg("failed to initialize openrouter client, check OPENROUTER_API_KEY")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := newStore(*appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize rule store")
	}
	defer cleanup()

	agents, err := reasonerx.New(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize reasoner")
	}

	service, err := routerx.New(agents, store, enginex.WithMaxIterations(appCfg.MaxIterations))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize router")
	}

	runPromptLoop(ctx, service)
}

// newStore picks Postgres when a DSN is configured and falls back to the
// seeded in-memory store otherwise.
func newStore(cfg AppConfig) (rulestore.Store, func(), error) {
	if dsn := strings.TrimSpace(cfg.PostgresDSN); dsn != "" {
		store, err := rulestore.NewBunStore(dsn)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("using postgres rule store")
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("closing postgres store")
			}
		}, nil
	}

	store := rulestore.NewMemoryStore()
	if cfg.SeedDemoData {
		store.SeedDemoData()
		log.Info().Msg("using in-memory rule store with demo data")
	} else {
		log.Info().Msg("using empty in-memory rule store")
	}
	return store, func() {}, nil
}

func runPromptLoop(ctx context.Context, service *routerx.Service) {
	fmt.Println("RF intent agent ready. Type a request, or \"quit\" to exit.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "quit" || query == "exit" {
			return
		}

		reply, err := service.Handle(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				log.Warn().Msg("shutting down")
				return
			}
			log.Error().Err(err).Msg("request failed")
			continue
		}
		fmt.Println(reply)
	}
}
