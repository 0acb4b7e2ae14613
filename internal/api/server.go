package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// Serve runs the gRPC and HTTP servers for svc until ctx is done or one of
// them fails. An empty address disables that server; at least one is required.
func Serve(ctx context.Context, svc *Service, httpAddr, grpcAddr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpAddr == "" && grpcAddr == "" {
		return errors.New("no listen address configured for the history API")
	}

	errCh := make(chan error, 2)

	var grpcServer *grpc.Server
	if grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
		}
		grpcServer = grpc.NewServer()
		RegisterHistoryServer(grpcServer, svc)

		go func() {
			logger.Info("gRPC API server starting", zap.String("addr", lis.Addr().String()))
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
	}

	var httpServer *http.Server
	if httpAddr != "" {
		lis, err := net.Listen("tcp", httpAddr)
		if err != nil {
			if grpcServer != nil {
				grpcServer.Stop()
			}
			return fmt.Errorf("failed to listen on %s: %w", httpAddr, err)
		}
		httpServer = &http.Server{
			Handler:           NewHTTPHandler(svc),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info("HTTP API server starting", zap.String("addr", lis.Addr().String()))
			if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("HTTP server: %w", err)
			}
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}
	logger.Info("API servers shutting down")

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := httpServer.Shutdown(shutdownCtx); serr != nil && err == nil {
			err = fmt.Errorf("HTTP server shutdown: %w", serr)
		}
	}

	logger.Info("API servers exited")
	return err
}
