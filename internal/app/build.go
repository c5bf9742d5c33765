package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ent0n29/folio/internal/aboutme"
	"github.com/ent0n29/folio/internal/capability"
	"github.com/ent0n29/folio/internal/chat"
	"github.com/ent0n29/folio/internal/config"
	"github.com/ent0n29/folio/internal/conversation"
	"github.com/ent0n29/folio/internal/gateway"
	"github.com/ent0n29/folio/internal/generation"
	"github.com/ent0n29/folio/internal/httpapi"
	"github.com/ent0n29/folio/internal/memory"
	"github.com/ent0n29/folio/internal/observability"
	"github.com/ent0n29/folio/internal/profile"
	"github.com/ent0n29/folio/internal/session"
)

const janitorInterval = 5 * time.Second

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Sessions  *session.Manager
	Chat      *chat.Service
	Metrics   *observability.Metrics
	Generator string
	LogStore  string

	// Cleanup should be called on shutdown to stop the janitor and close the transcript log.
	Cleanup func() error
}

// Build wires the chat service from cfg. Metrics register against the default
// Prometheus registry unless metrics is non-nil.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*BuildResult, error) {
	if metrics == nil {
		metrics = observability.NewMetrics(cfg.MetricsNamespace)
	}

	prof, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("profile load failed: %w", err)
	}

	gen, err := generation.NewGenerator(generation.Config{
		Mode:          cfg.GeneratorMode,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
		HTTPURL:       cfg.GeneratorHTTPURL,
		HTTPTimeout:   cfg.GatewayTimeout,
		MaxToolRounds: cfg.GeneratorMaxToolRounds,
		Retries:       cfg.GeneratorRetries,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("generator init failed: %w", err)
	}

	policy := gateway.DefaultCommandPolicy()
	gw, err := gateway.New(gateway.Config{
		Generator:      gen,
		Capabilities:   capability.Defaults(time.Now),
		OwnerName:      prof.Owner.Name,
		ProfileContext: prof.Context(),
		Policy:         &policy,
		Timeout:        cfg.GatewayTimeout,
		Logger:         logger,
		Metrics:        metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway init failed: %w", err)
	}

	logStore, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("transcript log init failed: %w", err)
	}

	sessions := session.NewManager(session.Config{
		InactivityTimeout: cfg.SessionInactivityTimeout,
		Seeds:             conversation.Seeds{Greeting: prof.Greeting()},
		SubmitRate:        rate.Limit(cfg.SubmitRate),
		SubmitBurst:       cfg.SubmitBurst,
		Logger:            logger,
	})
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvent("expired")
		metrics.SetActiveSessions(sessions.ActiveCount())
	})

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	if err := sessions.StartJanitor(janitorCtx, janitorInterval); err != nil {
		stopJanitor()
		_ = logStore.Close()
		return nil, err
	}

	chatService := chat.NewService(sessions, gw, logStore, metrics, logger)
	storeKind := logStoreKind(cfg.DatabaseURL)

	api := httpapi.New(cfg, httpapi.Deps{
		Sessions:  sessions,
		Chat:      chatService,
		AboutMe:   aboutme.New(gen, cfg.GatewayTimeout, logger, metrics),
		Profile:   prof,
		Commands:  policy.Surface,
		Generator: gen.Name(),
		LogStore:  storeKind,
		Metrics:   metrics,
		Logger:    logger,
	})

	cleanup := func() error {
		stopJanitor()
		if err := logStore.Close(); err != nil {
			return fmt.Errorf("close transcript log: %w", err)
		}
		return nil
	}

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Sessions:  sessions,
		Chat:      chatService,
		Metrics:   metrics,
		Generator: gen.Name(),
		LogStore:  storeKind,
		Cleanup:   cleanup,
	}, nil
}

func logStoreKind(databaseURL string) string {
	url := strings.TrimSpace(databaseURL)
	switch {
	case url == "":
		return "memory"
	case strings.HasPrefix(url, "postgres"):
		return "postgres"
	default:
		return "sqlite"
	}
}
