package service

import (
	"context"
	"log"
	"time"

	"redesocial/internal/metrics"
	"redesocial/internal/model"
	"redesocial/internal/queue"
	"redesocial/internal/realtime"
	"redesocial/internal/repository"
)

const pushTimeout = 10 * time.Second

// Notifier is how other services emit notifications. Emission never fails
// the caller: problems are logged and the primary action stands.
type Notifier interface {
	Notify(ctx context.Context, in model.NotificationInput)
}

// NotificationService stores notifications and delivers them in real time
// and by push. It is also the inline Notifier when no queue is configured.
type NotificationService struct {
	repo     repository.NotificationRepository
	realtime realtime.Hub // nil without Redis
	pusher   Pusher       // nil when push is disabled
	metrics  *metrics.Metrics

	// async runs push deliveries; tests replace it to run inline.
	async func(func())
}

func NewNotificationService(
	repo repository.NotificationRepository,
	hub realtime.Hub,
	pusher Pusher,
	m *metrics.Metrics,
) *NotificationService {
	return &NotificationService{
		repo:     repo,
		realtime: hub,
		pusher:   pusher,
		metrics:  m,
		async:    func(f func()) { go f() },
	}
}

// CreateNotification persists in and fans it out. Self-notifications are
// dropped and return (nil, nil).
func (s *NotificationService) CreateNotification(ctx context.Context, in model.NotificationInput) (*model.Notification, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.IsSelf() {
		return nil, nil
	}

	n, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.metrics.NotificationCreated(string(n.Type))

	if s.realtime != nil {
		if err := s.realtime.Publish(ctx, n.RecipientID, n); err != nil {
			log.Printf("[NotificationService] Realtime publish failed: recipient=%d id=%d err=%v",
				n.RecipientID, n.ID, err)
		}
	}

	if s.pusher != nil {
		delivered := *n
		s.async(func() { s.push(&delivered) })
	}

	return n, nil
}

func (s *NotificationService) push(n *model.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if err := s.pusher.Send(ctx, n.RecipientID, n.Type.PushTitle(), n.Content, pushData(n)); err != nil {
		s.metrics.PushFailed(s.pusher.Name())
		log.Printf("[Push] %s delivery failed: recipient=%d id=%d err=%v",
			s.pusher.Name(), n.RecipientID, n.ID, err)
	}
}

// Notify creates the notification inline, logging any failure.
func (s *NotificationService) Notify(ctx context.Context, in model.NotificationInput) {
	if _, err := s.CreateNotification(ctx, in); err != nil {
		log.Printf("[NotificationService] Notify failed: type=%s recipient=%d sender=%d err=%v",
			in.Type, in.RecipientID, in.SenderID, err)
	}
}

func (s *NotificationService) List(ctx context.Context, userID int64) ([]model.Notification, error) {
	list, err := s.repo.ListForRecipient(ctx, userID, model.MaxNotificationsListed)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Notification{}
	}
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead only touches the caller's own notifications; anything else is
// reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	ok, err := s.repo.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, notificationID int64) error {
	ok, err := s.repo.Delete(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrNotificationNotFound
	}
	return nil
}

// QueuedNotifier hands notifications to the stream; workers persist them.
type QueuedNotifier struct {
	publisher queue.Publisher
}

func NewQueuedNotifier(publisher queue.Publisher) *QueuedNotifier {
	return &QueuedNotifier{publisher: publisher}
}

func (q *QueuedNotifier) Notify(ctx context.Context, in model.NotificationInput) {
	if in.IsSelf() {
		return
	}
	if err := in.Validate(); err != nil {
		log.Printf("[QueuedNotifier] Dropping invalid notification: %v", err)
		return
	}
	if _, err := q.publisher.Publish(ctx, queue.StreamSocial, queue.NewNotificationEvent(in)); err != nil {
		log.Printf("[QueuedNotifier] Publish failed: type=%s recipient=%d err=%v", in.Type, in.RecipientID, err)
	}
}
