package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oshokin/catpoint/internal/api/admin"
	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/camera"
	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/events"
	"github.com/oshokin/catpoint/internal/image"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/metrics"
	repository "github.com/oshokin/catpoint/internal/repository/security"
	"github.com/oshokin/catpoint/internal/service/security"
)

const (
	// shutdownTimeout bounds the admin HTTP graceful shutdown.
	shutdownTimeout = 5 * time.Second
	// readHeaderTimeout protects the admin endpoint from slow clients.
	readHeaderTimeout = 10 * time.Second
)

// registry is a Prometheus registry that can also be gathered.
type registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// app holds the assembled server components.
type app struct {
	// settings is the validated configuration.
	settings *config.Config
	// store persists the state.
	store repository.Store
	// service is the alarm state machine.
	service *security.Service
	// registry holds the metrics collectors.
	registry registry
	// publisher sends events to Redis; nil when disabled.
	publisher *events.Publisher
	// grpcServer serves the SecurityService API.
	grpcServer *grpc.Server
}

// newRegistry creates a metrics registry with the Go runtime and process collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// newApp opens the store, seeds the configured sensors and assembles the service.
func newApp(ctx context.Context, settings *config.Config, reg registry) (*app, error) {
	store, err := repository.Open(ctx, settings.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &app{
		settings: settings,
		store:    store,
		registry: reg,
	}

	if err = a.seedSensors(ctx); err != nil {
		a.close(ctx)

		return nil, err
	}

	classifier, err := image.New(settings.Classifier.Mode)
	if err != nil {
		a.close(ctx)

		return nil, fmt.Errorf("create classifier: %w", err)
	}

	metricsListener := metrics.NewListener(reg)

	current, err := store.AlarmStatus(ctx)
	if err != nil {
		a.close(ctx)

		return nil, fmt.Errorf("read alarm status: %w", err)
	}

	metricsListener.SetAlarmStatus(current)

	listeners := []security.StatusListener{metricsListener}

	if settings.Redis.Addr != "" {
		// The alarm keeps working without Redis; only events are lost.
		a.publisher, err = events.Connect(ctx, settings.Redis)
		if err != nil {
			logger.WarnKV(ctx, "Event publishing disabled", "error", err)
		} else {
			listeners = append(listeners, a.publisher)
		}
	}

	a.service = security.New(store, classifier,
		security.WithConfidenceThreshold(settings.ConfidenceThreshold),
		security.WithListeners(listeners...))

	a.grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(auditInterceptor))
	api.RegisterSecurityServiceServer(a.grpcServer, api.NewServer(a.service, store))

	return a, nil
}

// seedSensors registers configured sensors that are missing from the store.
func (a *app) seedSensors(ctx context.Context) error {
	for _, configured := range a.settings.Sensors {
		sensor, err := configured.ToDomain()
		if err != nil {
			return fmt.Errorf("configured sensor %q: %w", configured.Name, err)
		}

		err = a.store.AddSensor(ctx, sensor)

		switch {
		case err == nil:
			logger.InfoKV(ctx, "Sensor registered", "sensor", sensor.Key().String())
		case errors.Is(err, repository.ErrSensorExists):
		default:
			return fmt.Errorf("register sensor %s: %w", sensor.Key(), err)
		}
	}

	return nil
}

// run serves gRPC on lis plus the optional admin HTTP endpoint and camera watcher.
// It returns when ctx is cancelled or any component fails.
func (a *app) run(ctx context.Context, lis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		a.grpcServer.GracefulStop()

		return nil
	})

	if a.settings.HTTPAddress != "" {
		g.Go(func() error {
			return a.serveAdmin(gctx)
		})
	}

	if a.settings.Camera.Dir != "" {
		watcher := camera.NewWatcher(a.settings.Camera.Dir, a.service,
			camera.WithRate(a.settings.Camera.Rate, a.settings.Camera.Burst))

		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	err := g.Wait()

	logger.Info(ctx, "Security server stopped")

	return err
}

// serveAdmin runs the admin HTTP endpoint until ctx is cancelled.
func (a *app) serveAdmin(ctx context.Context) error {
	opts := admin.Options{
		State:    a.service,
		Gatherer: a.registry,
	}

	if a.publisher != nil {
		opts.Events = a.publisher
	}

	srv := &http.Server{
		Addr:              a.settings.HTTPAddress,
		Handler:           admin.NewRouter(opts),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.InfoKV(ctx, "Admin endpoint listening", "http_address", a.settings.HTTPAddress)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve admin HTTP: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown admin HTTP: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve admin HTTP: %w", err)
	}

	return nil
}

// close releases the store and the Redis connection.
func (a *app) close(ctx context.Context) {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			logger.WarnKV(ctx, "Failed to close event publisher", "error", err)
		}
	}

	if err := a.store.Close(); err != nil {
		logger.WarnKV(ctx, "Failed to close storage", "error", err)
	}
}
