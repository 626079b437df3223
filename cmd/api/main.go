package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/chat-relay/backend/internal/config"
	"github.com/zhouzirui/chat-relay/backend/internal/handler"
	"github.com/zhouzirui/chat-relay/backend/internal/metrics"
	"github.com/zhouzirui/chat-relay/backend/internal/service/ai"
	"github.com/zhouzirui/chat-relay/backend/internal/service/analysis"
	"github.com/zhouzirui/chat-relay/backend/internal/service/speech"
	"github.com/zhouzirui/chat-relay/backend/internal/service/tenant"
	"github.com/zhouzirui/chat-relay/backend/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	metrics.Init()

	// Tenant document stores are constructed lazily, one per tenant,
	// from the credential bundles sessions present.
	tenantResolver := tenant.NewResolver()
	defer tenantResolver.Close()

	// Initialize AI service
	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - 请检查 Ark 模型相关环境变量")
		} else {
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，跳过 AI 功能初始化")
	}

	// Post-session analysis shares the chat model; without one it falls
	// back to failure-marked records.
	var chatModelForAnalysis model.ChatModel
	if aiService != nil {
		chatModelForAnalysis = aiService.GetChatModel()
	}
	analysisSvc, err := analysis.NewService(ctx, chatModelForAnalysis)
	if err != nil {
		log.Printf("warning: failed to initialize analysis service: %v", err)
		analysisSvc = nil
	} else if analysisSvc.Enabled() {
		log.Println("Conversation analysis service enabled")
	} else {
		log.Println("Conversation analysis disabled, chat logs will be failure-marked")
	}

	// Initialize Speech service
	var speechService *speech.Service
	if cfg.Speech.Enabled {
		speechService = speech.NewService(cfg.Speech)
		log.Println("Speech service initialized successfully")
	} else {
		log.Println("语音服务凭证未配置，跳过语音功能初始化")
	}

	deps := session.Deps{
		Tenants:       tenantSource{tenantResolver},
		LogCollection: cfg.Relay.LogCollection,
		TypingDelay:   cfg.Relay.TypingDelay,
	}
	if aiService != nil {
		deps.Completer = aiService
	}
	if analysisSvc != nil {
		deps.Analyzer = analysisSvc
	}
	if speechService != nil {
		deps.Transcriber = speechService
		deps.Synthesizer = speechService
	}

	router := handler.NewRouter(deps, cfg.Relay)

	startServer(ctx, cfg.Server, router)
}

// tenantSource adapts the concrete resolver to the session engine's
// resolver interface.
type tenantSource struct {
	resolver *tenant.Resolver
}

func (s tenantSource) Resolve(ctx context.Context, bundle json.RawMessage) (session.TenantStore, error) {
	client, err := s.resolver.Resolve(ctx, bundle)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Chat relay backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
