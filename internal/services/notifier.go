package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotifierClosed    = errors.New("notifier is closed")
	ErrNotifierQueueFull = errors.New("notification queue is full")
)

// NotifierConfig sizes the delivery workers.
type NotifierConfig struct {
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	// EnqueueTimeout bounds how long Publish waits for room in a full queue.
	EnqueueTimeout time.Duration
}

// Notifier delivers notifications to the sink in the background. Delivery is
// at-least-once; the notification id lets the sink drop duplicates.
type Notifier interface {
	// Publish enqueues n, assigning an id and timestamp when missing. A full queue is waited on for at
	// most EnqueueTimeout, then the notification is rejected with ErrNotifierQueueFull.
	Publish(ctx context.Context, n models.Notification) (string, error)
	// Close stops accepting notifications and waits for queued ones to be delivered or ctx to end.
	Close(ctx context.Context) error
}

type notifier struct {
	repo  repositories.NotificationRepository
	cfg   NotifierConfig
	queue chan models.Notification

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewNotifier starts cfg.Workers delivery goroutines.
func NewNotifier(repo repositories.NotificationRepository, cfg NotifierConfig) Notifier {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 100 * time.Millisecond
	}

	n := &notifier{
		repo:  repo,
		cfg:   cfg,
		queue: make(chan models.Notification, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	for i := 0; i < cfg.Workers; i++ {
		n.wg.Add(1)
		go n.work()
	}
	return n
}

func (n *notifier) Publish(ctx context.Context, msg models.Notification) (string, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return "", ErrNotifierClosed
	}
	select {
	case n.queue <- msg:
		return msg.ID, nil
	default:
	}

	timer := time.NewTimer(n.cfg.EnqueueTimeout)
	defer timer.Stop()
	select {
	case n.queue <- msg:
		return msg.ID, nil
	case <-timer.C:
		log.Warn().Str("notification_id", msg.ID).Int("queue_size", n.cfg.QueueSize).Msg("Notification queue full, dropping")
		return "", fmt.Errorf("%w: notification %s", ErrNotifierQueueFull, msg.ID)
	case <-ctx.Done():
		return "", fmt.Errorf("enqueueing notification %s: %w", msg.ID, ctx.Err())
	}
}

func (n *notifier) work() {
	defer n.wg.Done()
	for msg := range n.queue {
		n.deliver(msg)
	}
}

func (n *notifier) deliver(msg models.Notification) {
	var err error
	for attempt := 1; attempt <= n.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = n.repo.CreateNotification(ctx, &msg)
		cancel()
		if err == nil {
			log.Debug().Str("notification_id", msg.ID).Int("attempt", attempt).Msg("Notification delivered")
			return
		}
		log.Warn().Err(err).Str("notification_id", msg.ID).Int("attempt", attempt).Msg("Notification delivery failed")
		if attempt < n.cfg.MaxAttempts {
			time.Sleep(n.cfg.RetryBackoff * time.Duration(attempt))
		}
	}
	log.Error().Err(err).
		Str("notification_id", msg.ID).
		Str("related_entity_type", msg.RelatedEntityType).
		Int64("related_entity_id", msg.RelatedEntityID).
		Msg("Notification dropped after retries")
}

func (n *notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
		go func() {
			n.wg.Wait()
			close(n.done)
		}()
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NotificationService exposes the sink to recipients.
type NotificationService interface {
	List(ctx context.Context, actor models.Actor, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string, actor models.Actor) error
}

type notificationService struct {
	repo repositories.NotificationRepository
}

func NewNotificationService(repo repositories.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) List(ctx context.Context, actor models.Actor, unreadOnly bool) ([]models.Notification, error) {
	return s.repo.GetNotifications(ctx, models.NotificationFilters{
		Role:       actor.Role,
		UserID:     actor.UserID,
		UnreadOnly: unreadOnly,
	})
}

func (s *notificationService) MarkRead(ctx context.Context, id string, actor models.Actor) error {
	if _, err := uuid.Parse(id); err != nil {
		return validationf("notification id '%s' is not a UUID", id)
	}
	if err := s.repo.MarkNotificationRead(ctx, id, actor.Role, actor.UserID, time.Now()); err != nil {
		return notFoundOr(err, "notification", id)
	}
	return nil
}

func roleTarget(role models.Role) *models.Role {
	return &role
}
