package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

const heartbeatInterval = 30 * time.Second

type pinger interface {
	Ping(context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger               *logger.Logger
	DB                   pinger
	Redis                pinger
	PubSub               pinger
	NotificationConsumer consumer
}

type dependency struct {
	name string
	pinger
}

// Service starts the notification consumer after every dependency answers
// a ping, and stops when the consumer or the context ends.
type Service struct {
	logg     *logger.Logger
	deps     []dependency
	consumer consumer
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Redis == nil:
		return nil, errors.New("redis client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.NotificationConsumer == nil:
		return nil, errors.New("notification consumer is required")
	}
	return &Service{
		logg: params.Logger,
		deps: []dependency{
			{"database", params.DB},
			{"redis", params.Redis},
			{"pubsub", params.PubSub},
		},
		consumer: params.NotificationConsumer,
	}, nil
}

func (s *Service) checkDependencies(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "dependency", dep.name), "dependency ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "worker dependencies ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.checkDependencies(ctx); err != nil {
		return err
	}

	group, gctx := errgroup.WithContext(ctx)
	stopped := make(chan struct{})
	group.Go(func() error {
		defer close(stopped)
		return s.consumer.Run(gctx)
	})
	group.Go(func() error {
		s.heartbeat(gctx, stopped)
		return nil
	})

	err := group.Wait()
	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		return err
	case ctx.Err() != nil:
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	}
	return err
}

func (s *Service) heartbeat(ctx context.Context, stopped <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopped:
			return
		case <-ticker.C:
			s.logg.Debug(ctx, "worker heartbeat")
		}
	}
}
