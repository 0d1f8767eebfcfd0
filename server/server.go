package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/techagentng/wastewatch/config"
	"github.com/techagentng/wastewatch/db"
	"github.com/techagentng/wastewatch/models"
	"github.com/techagentng/wastewatch/realtime"
	"github.com/techagentng/wastewatch/services"
)

// Server holds every dependency the HTTP layer needs.
type Server struct {
	Config         *config.Config
	Logger         *slog.Logger
	Gatherer       prometheus.Gatherer
	AuthRepository db.AuthRepository

	ReportService       services.ReportService
	NotificationService services.NotificationService
	RewardService       services.RewardService
	AuthorityService    services.AuthorityService
	CitizenService      services.CitizenService
	MediaService        services.MediaService

	Hub *realtime.Hub

	translator ut.Translator
}

func (s *Server) setupTranslator() {
	if s.translator != nil {
		return
	}
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	trans, err := models.NewTranslator(v)
	if err != nil {
		s.Logger.Warn("validation messages fall back to defaults", "error", err)
		return
	}
	s.translator = trans
}

// Handler builds the router. It is what Start serves and what tests drive.
func (s *Server) Handler() http.Handler {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	s.setupTranslator()
	return s.setupRouter()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests and
// closes websocket clients.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("server started", "addr", srv.Addr, "env", s.Config.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		s.Logger.Info("shutting down server", "signal", sig.String())
	}

	timeout := s.Config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.Hub != nil {
		s.Hub.Close()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.Logger.Info("server exiting")
	return nil
}
