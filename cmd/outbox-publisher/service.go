package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/artmarket-backend/pkg/config"
	"github.com/angelmondragon/artmarket-backend/pkg/db/models"
	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
	"github.com/angelmondragon/artmarket-backend/pkg/metrics"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	defaultPruneInterval  = 10 * time.Minute
	pruneBatchLimit       = 500
	maxBackoff            = 10 * time.Second
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
	DeletePublishedBefore(cutoff time.Time, limit int) (int64, error)
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
	Now              func() time.Time
}

// Service relays committed outbox rows to their Pub/Sub topics. Rows that cannot
// be decoded, or that exhaust their attempts, are parked in outbox_dlq.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	dlq              dlqRepository
	metrics          *metrics.OutboxMetrics
	publisherFactory publisherFactory
	now              func() time.Time
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
	retention        time.Duration
	lastPrune        time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	for _, dep := range []struct {
		name    string
		missing bool
	}{
		{"config", params.Config == nil},
		{"logger", params.Logger == nil},
		{"database client", params.DB == nil},
		{"pubsub client", params.PubSub == nil},
		{"outbox repository", params.Repository == nil},
		{"event registry", params.Registry == nil},
		{"dlq repository", params.DLQRepository == nil},
	} {
		if dep.missing {
			return nil, fmt.Errorf("%s is required", dep.name)
		}
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			return wrapPublisher(params.PubSub.Publisher(topic))
		}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	cfg := params.Config.Outbox

	return &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		dlq:              params.DLQRepository,
		metrics:          params.Metrics,
		publisherFactory: factory,
		now:              now,
		batchSize:        orDefault(cfg.BatchSize, defaultBatchSize),
		maxAttempts:      orDefault(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval:     time.Duration(orDefault(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
		retention:        cfg.Retention,
	}, nil
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	return multierr.Combine(
		s.ping(ctx, "database", s.db.Ping),
		s.ping(ctx, "pubsub", s.pubsub.Ping),
	)
}

func (s *Service) ping(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		err = fmt.Errorf("%s ping failed: %w", name, err)
		s.logg.Error(ctx, "dependency not ready", err)
		return err
	}
	return nil
}

// Run drains the outbox until ctx is cancelled. A full batch loops immediately,
// an empty one waits for the poll interval and a failed one backs off.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	wait := newBackoff(s.pollInterval, maxBackoff)
	for ctx.Err() == nil {
		s.maybePrune(ctx)

		busy, err := s.processBatch(ctx)
		pause := s.pollInterval
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			pause = wait.next()
		case busy:
			wait.reset()
			continue
		default:
			wait.reset()
		}
		if err := sleepCtx(ctx, withJitter(pause)); err != nil {
			break
		}
	}
	s.logg.Info(ctx, "outbox publisher context canceled")
	return ctx.Err()
}

// relayOutcome is what happened to one row inside a batch transaction.
type relayOutcome struct {
	eventType string
	retried   bool
	parked    enums.OutboxDLQErrorReason
}

// processBatch relays one locked batch. Metrics are only recorded once the
// batch transaction commits.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	var outcomes []relayOutcome
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		outcomes = outcomes[:0]
		rows, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		for _, row := range rows {
			outcome, err := s.relay(ctx, tx, row)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, outcome)
		}
		return nil
	})
	if err != nil {
		return len(outcomes) > 0, err
	}

	for _, o := range outcomes {
		switch {
		case o.parked != "":
			s.metrics.IncDLQ(o.eventType, string(o.parked))
		case o.retried:
			s.metrics.IncFailed(o.eventType)
		default:
			s.metrics.IncPublished(o.eventType)
		}
	}
	return len(outcomes) > 0, nil
}

func (s *Service) relay(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (relayOutcome, error) {
	out := relayOutcome{eventType: string(row.EventType)}
	logCtx := s.logg.WithFields(s.logg.WithEvent(ctx, row.ID.String(), out.eventType), rowFields(row))

	resolved, err := s.registry.Resolve(row)
	if err != nil {
		out.parked = enums.OutboxDLQReasonNonRetryable
		if errors.Is(err, registry.ErrUnsupportedEvent) {
			out.parked = enums.OutboxDLQReasonUnknownEvent
		}
		return out, s.park(logCtx, tx, row, out.parked, err)
	}

	topic := resolved.Descriptor.Topic
	logCtx = s.logg.WithField(logCtx, "topic", topic)

	err = s.publish(ctx, row, topic)
	var nonRetry registry.NonRetryableError
	switch {
	case err == nil:
		if err := s.repo.MarkPublishedTx(tx, row.ID); err != nil {
			return out, fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		s.logg.Info(logCtx, "outbox event published")
		return out, nil
	case errors.As(err, &nonRetry):
		out.parked = enums.OutboxDLQReasonNonRetryable
	case row.AttemptCount+1 >= s.maxAttempts:
		out.parked = enums.OutboxDLQReasonMaxAttempts
		err = fmt.Errorf("max publish attempts reached: %w", err)
	default:
		out.retried = true
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
			"error":         err.Error(),
			"attempt_count": row.AttemptCount + 1,
		}), "outbox publish failed")
		if markErr := s.repo.MarkFailedTx(tx, row.ID, err); markErr != nil {
			return out, fmt.Errorf("mark failure %s: %w", row.ID, markErr)
		}
		return out, nil
	}
	return out, s.park(logCtx, tx, row, out.parked, err)
}

// park copies row into outbox_dlq and pins it so it is never fetched again.
func (s *Service) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox event will not be retried")

	if err := s.dlq.InsertTx(tx, outbox.NewDLQEntry(row, reason, cause, s.now())); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, row.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

// publish sends the stored envelope unchanged. The row id is the envelope event id.
func (s *Service) publish(ctx context.Context, row models.OutboxEvent, topic string) error {
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       row.ID.String(),
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID,
			"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(ctx)
	return err
}

func rowFields(row models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID,
		"attempt_count":  row.AttemptCount,
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

// maybePrune removes relayed rows past the retention window, at most once per prune interval.
func (s *Service) maybePrune(ctx context.Context) {
	if s.retention <= 0 {
		return
	}
	now := s.now()
	if !s.lastPrune.IsZero() && now.Sub(s.lastPrune) < defaultPruneInterval {
		return
	}
	s.lastPrune = now

	removed, err := s.prune(now.Add(-s.retention))
	ctx = s.logg.WithFields(ctx, map[string]any{"removed": removed, "retention": s.retention.String()})
	if err != nil {
		s.logg.Error(ctx, "outbox retention prune failed", err)
		return
	}
	if removed > 0 {
		s.logg.Info(ctx, "outbox retention pruned published rows")
	}
}

func (s *Service) prune(cutoff time.Time) (int64, error) {
	var total int64
	for {
		n, err := s.repo.DeletePublishedBefore(cutoff, pruneBatchLimit)
		total += n
		s.metrics.AddPruned(n)
		if err != nil || n < pruneBatchLimit {
			return total, err
		}
	}
}

func wrapPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{p}
}

type gcpPublisher struct {
	topic *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.topic.Publish(ctx, msg)
}
