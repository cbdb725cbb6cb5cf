package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/artmarket-backend/pkg/logger"
)

const heartbeatInterval = time.Minute

type pinger interface {
	Ping(context.Context) error
}

type consumerRunner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger   *logger.Logger
	DB       pinger
	Redis    pinger
	PubSub   pinger
	Consumer consumerRunner
}

// Service keeps the notification consumer running until the context ends.
type Service struct {
	logg     *logger.Logger
	deps     map[string]pinger
	consumer consumerRunner
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("notification consumer is required")
	}

	return &Service{
		logg: params.Logger,
		deps: map[string]pinger{
			"database": params.DB,
			"redis":    params.Redis,
			"pubsub":   params.PubSub,
		},
		consumer: params.Consumer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	var errs error
	for _, name := range []string{"database", "redis", "pubsub"} {
		errs = multierr.Append(errs, pingDependency(ctx, s.logg, name, s.deps[name].Ping))
	}
	if errs != nil {
		return errs
	}
	s.logg.Info(ctx, "all notification worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.consumer.Run(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "notification worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "notification consumer stopped unexpectedly", err)
				return err
			}
			if err == nil {
				return errors.New("notification consumer exited")
			}
			return err
		case <-ticker.C:
			s.logg.Debug(ctx, "notification_worker.heartbeat")
		}
	}
}
