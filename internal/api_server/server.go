package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/synchq/scheduler/internal/calendar"
	"github.com/synchq/scheduler/internal/config"
	"github.com/synchq/scheduler/internal/continuation"
	"github.com/synchq/scheduler/internal/events"
	"github.com/synchq/scheduler/internal/extractor"
	handlers "github.com/synchq/scheduler/internal/handlers/v1alpha1"
	"github.com/synchq/scheduler/internal/service"
	"github.com/synchq/scheduler/internal/store"
	"github.com/synchq/scheduler/internal/telephony"
	"github.com/synchq/scheduler/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg      *config.Config
	store    store.Store
	listener net.Listener
	evWriter *events.EventProducer
}

// New returns a new instance of the scheduler API server.
func New(
	cfg *config.Config,
	store store.Store,
	ew *events.EventProducer,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		evWriter: ew,
		listener: listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router := chi.NewRouter()
	router.Use(
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			MaxAge:         300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	completionClient := openai.NewClient(option.WithAPIKey(s.cfg.Model.ApiKey))
	composioClient := calendar.NewComposioClient(s.cfg.Composio.ApiKey, s.cfg.Composio.BaseUrl)

	orchestrator := service.NewOrchestrator(
		s.store,
		telephony.NewTwilioCaller(s.cfg.Twilio.AccountSID, s.cfg.Twilio.AuthToken, s.cfg.Twilio.VoiceWebhookUrl),
		calendar.NewReader(s.store, composioClient),
		calendar.NewWriter(s.store, composioClient),
		extractor.NewModelExtractor(&completionClient, func(o *extractor.Options) {
			o.Model = s.cfg.Model.Name
		}),
		continuation.NewHTTPTrigger(s.cfg.Service.BaseUrl),
		service.NewNotifier(s.store, s.evWriter),
	)

	h := handlers.NewSchedulingHandler(service.NewJobService(s.store), orchestrator)
	h.RegisterRoutes(router)

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
