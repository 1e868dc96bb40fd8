// Package server provides the HTTP server of the notes service. It builds the gin engine from
// the service settings and a set of controllers, runs lifespan hooks, and shuts down gracefully.
// The same engine can be served over a socket or bridged to AWS Lambda events.
package server

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/animalet/notes-api/pkg/controller"
	"github.com/animalet/notes-api/pkg/server/middleware"
	"github.com/animalet/notes-api/pkg/settings"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server instance. It encapsulates the settings, the gin engine,
// lifespan hooks and signal handling for graceful shutdown.
type Server struct {
	settings        *settings.Settings
	controllers     []controller.IController
	httpServer      *http.Server
	listener        net.Listener
	startupHooks    []func(ctx context.Context) error
	shutdownHooks   []func() error
	shutdownChannel chan os.Signal

	engineOnce sync.Once
	engine     *gin.Engine
	engineErr  error

	// lifespan is canceled on shutdown so background work started by hooks stops
	lifespan context.Context
	cancel   context.CancelFunc
}

// New creates a server for the given settings and controllers. The settings are copied.
func New(s *settings.Settings, controllers ...controller.IController) *Server {
	lifespan, cancel := context.WithCancel(context.Background())
	return &Server{
		settings:    s.Snapshot(),
		controllers: controllers,
		lifespan:    lifespan,
		cancel:      cancel,
	}
}

// AddStartupHook registers a function run before the server accepts requests. Hooks receive
// a context that lives until shutdown; a hook error aborts Start.
func (s *Server) AddStartupHook(hook func(ctx context.Context) error) {
	s.startupHooks = append(s.startupHooks, hook)
}

// AddShutdownHook registers a function run after the HTTP server has drained.
func (s *Server) AddShutdownHook(hook func() error) {
	s.shutdownHooks = append(s.shutdownHooks, hook)
}

// Engine returns the gin engine, building it on first use.
func (s *Server) Engine() (*gin.Engine, error) {
	s.engineOnce.Do(func() {
		s.engine, s.engineErr = s.buildEngine()
	})
	return s.engine, s.engineErr
}

func (s *Server) buildEngine() (*gin.Engine, error) {
	if gin.Mode() != gin.TestMode {
		if zerolog.GlobalLevel() <= zerolog.DebugLevel {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	}

	engine := gin.New()
	if gin.IsDebugging() {
		log.Info().Msg("Running in debug mode")
		engine.Use(bodyLogMiddleware, gin.ErrorLogger())
	} else {
		if err := engine.SetTrustedProxies(nil); err != nil {
			return nil, err
		}
		engine.Use(gin.ErrorLoggerT(gin.ErrorTypePrivate))
	}

	engine.Use(
		middleware.RequestLogger(),
		gin.Recovery(),
		middleware.SecurityHeaders(middleware.SecurityConfig{}),
	)
	if len(s.settings.CORSOrigins) > 0 {
		log.Info().Strs("origins", s.settings.CORSOrigins).Msg("CORS enabled")
		engine.Use(middleware.CORS(s.settings.CORSOrigins))
	}
	if s.settings.RateLimitRPS > 0 {
		log.Info().Float64("rps", s.settings.RateLimitRPS).Int("burst", s.settings.RateLimitBurst).Msg("Rate limiting enabled")
		engine.Use(middleware.RateLimit(s.settings.RateLimitRPS, s.settings.RateLimitBurst))
	}

	api := engine.Group("/api")
	for _, c := range s.controllers {
		if err := c.Bind(api); err != nil {
			return nil, errors.Wrapf(err, "failed to bind controller %T", c)
		}
		s.AddShutdownHook(c.Close)
	}
	return engine, nil
}

// RunStartupHooks runs the registered startup hooks in order.
func (s *Server) RunStartupHooks() error {
	for _, hook := range s.startupHooks {
		if err := hook(s.lifespan); err != nil {
			return errors.Wrap(err, "startup hook failed")
		}
	}
	return nil
}

// StartAndWaitForSignal starts the HTTP server and waits for SIGINT or SIGTERM to gracefully
// shut it down.
func (s *Server) StartAndWaitForSignal() error {
	if err := s.Start(); err != nil {
		return err
	}
	return s.waitForSignal()
}

// Start runs the startup hooks, builds the engine and starts listening on the configured address.
func (s *Server) Start() error {
	if err := s.RunStartupHooks(); err != nil {
		return err
	}
	engine, err := s.Engine()
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.settings.Address())
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.settings.Address())
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: engine}

	log.Info().Str("address", listener.Addr().String()).Msg("Starting server")
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Listen error")
		}
	}()
	return nil
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) waitForSignal() error {
	s.shutdownChannel = make(chan os.Signal, 1)
	// kill (no params) by default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	signal.Notify(s.shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
	log.Info().Msgf("Shutdown signal received (%s)", <-s.shutdownChannel)

	ctx, cancel := context.WithTimeout(context.Background(), s.settings.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown gracefully shuts down the server, waiting for active connections to complete
// within ctx, then executes the shutdown hooks.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down server...")
	s.cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return errors.Wrap(err, "forced shutdown")
		}
	}

	log.Info().Msg("Executing shutdown hooks...")
	for _, hook := range s.shutdownHooks {
		if err := hook(); err != nil {
			log.Error().Err(err).Msg("Error during shutdown hook")
		}
	}

	log.Info().Msg("Server exited gracefully")
	return nil
}

type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func bodyLogMiddleware(c *gin.Context) {
	blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
	c.Writer = blw
	c.Next()
	log.Debug().Msgf("Response body: %s", blw.body.String())
}
