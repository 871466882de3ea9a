// Package handlers provides the HTTP and gRPC servers: the backend's auth
// and table API plus the planning API on a grpc-gateway mux, and the gRPC
// health service that the HTTP /healthz endpoint proxies.
package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gartstein/arctecfox/internal/arctecfox/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Path prefixes that require a bearer token.
var protectedPrefixes = []string{
	"/auth/v1/logout",
	"/auth/v1/user",
	"/rest/v1/",
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer   *grpc.Server
	httpServer   *http.Server
	health       *health.Server
	gatewayConn  *grpc.ClientConn
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string

	checks        []HealthCheck
	checkInterval time.Duration
	stopChecks    chan struct{}
	stopOnce      sync.Once
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
func NewServer(
	grpcPort int,
	httpPort int,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	grpcServer := grpc.NewServer(grpcOpts...)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return &Server{
		grpcServer: grpcServer,
		httpServer: &http.Server{
			ReadHeaderTimeout: 10 * time.Second,
		},
		health:       healthServer,
		logger:       logger.Named("server"),
		grpcEndpoint: fmt.Sprintf(":%d", grpcPort),
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
		stopChecks:   make(chan struct{}),
	}
}

// MonitorDependencies makes the health status follow checks, re-evaluated
// every interval once the server starts. Any failing check reports
// NOT_SERVING. Call it before Start.
func (s *Server) MonitorDependencies(interval time.Duration, checks ...HealthCheck) {
	s.checks = checks
	s.checkInterval = interval
}

func (s *Server) updateHealth() {
	timeout := s.checkInterval
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	status := healthpb.HealthCheckResponse_SERVING
	for _, check := range s.checks {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := check(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("Dependency check failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
			break
		}
	}
	s.health.SetServingStatus("", status)
}

func (s *Server) watchDependencies() {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopChecks:
			return
		case <-ticker.C:
			s.updateHealth()
		}
	}
}

// RegisterHTTPGateway builds the HTTP handler: API routes on a gateway mux
// whose /healthz queries the gRPC health service over dialOpts.
func (s *Server) RegisterHTTPGateway(ctx context.Context, dialOpts []grpc.DialOption, api *APIHandler, corsOrigins []string) error {
	conn, err := grpc.NewClient(s.grpcEndpoint, dialOpts...)
	if err != nil {
		return fmt.Errorf("dial gRPC endpoint: %w", err)
	}

	handler, err := NewHTTPHandler(healthpb.NewHealthClient(conn), api, corsOrigins)
	if err != nil {
		_ = conn.Close()
		return err
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	s.gatewayConn = conn
	s.httpServer.Handler = handler
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

// NewHTTPHandler assembles the middleware chain around the gateway mux.
func NewHTTPHandler(healthClient healthpb.HealthClient, api *APIHandler, corsOrigins []string) (http.Handler, error) {
	mux := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthClient))
	if err := api.Register(mux); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(CORS(corsOrigins))
	r.Mount("/", auth.HTTPMiddleware(mux, api.auth, protectedPrefixes...))
	return r, nil
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first error.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	wg.Add(2)
	errChan := make(chan error, 2)

	// Start gRPC Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting gRPC server", zap.String("endpoint", s.grpcEndpoint))
		lis, err := net.Listen("tcp", s.grpcEndpoint)
		if err != nil {
			errChan <- fmt.Errorf("gRPC listen error: %w", err)
			return
		}
		s.updateHealth()
		if len(s.checks) > 0 && s.checkInterval > 0 {
			go s.watchDependencies()
		}
		if err := s.grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("gRPC serve error: %w", err)
		}
	}()

	// Start HTTP Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully shuts down both gRPC and HTTP servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")
	s.stopOnce.Do(func() { close(s.stopChecks) })
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	s.grpcServer.GracefulStop()
	if s.gatewayConn != nil {
		_ = s.gatewayConn.Close()
	}

	s.logger.Info("Servers stopped")
}
