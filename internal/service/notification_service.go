package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/billing"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/jobs"
)

// JobTypeBroadcast fans a notification out to every student.
const JobTypeBroadcast = "notification.broadcast"

var errAlreadyDelivered = errors.New("notification already delivered")

type jobQueue interface {
	Register(jobType string, handler jobs.Handler)
	Enqueue(job jobs.Job) (string, error)
}

// BroadcastRequest is an announcement for every student.
type BroadcastRequest struct {
	Message string `json:"message"`
}

// BroadcastResult acknowledges a queued broadcast.
type BroadcastResult struct {
	JobID          string `json:"jobId"`
	NotificationID string `json:"notificationId"`
}

type broadcastPayload struct {
	NotificationID string
	Message        string
}

// NotificationService manages student inboxes.
type NotificationService struct {
	docs   studentDocuments
	ledger billing.Ledger
	queue  jobQueue
	logger *zap.Logger
}

// NewNotificationService constructs the service and registers its broadcast job.
func NewNotificationService(students StudentStore, ledger billing.Ledger, queue jobQueue, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		docs:   studentDocuments{store: students, metrics: metrics, cache: cache, logger: logger},
		ledger: ledger,
		queue:  queue,
		logger: logger,
	}
	if queue != nil {
		queue.Register(JobTypeBroadcast, s.deliverBroadcast)
	}
	return s
}

// List returns the student's inbox in arrival order.
func (s *NotificationService) List(ctx context.Context, studentID string) ([]models.Notification, error) {
	student, err := s.docs.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return student.Notifications, nil
}

// MarkRead flips one notification to read. Marking an already-read notification
// succeeds without a write.
func (s *NotificationService) MarkRead(ctx context.Context, studentID, notificationID string) (*models.Notification, error) {
	var marked models.Notification
	_, err := s.docs.update(ctx, studentID, func(student models.StudentData) (models.StudentData, error) {
		for _, n := range student.Notifications {
			if n.ID == notificationID && n.Read {
				marked = n
				return student, errAlreadyDelivered
			}
		}
		next, ok := billing.MarkNotificationRead(student, notificationID)
		if !ok {
			return student, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		for _, n := range next.Notifications {
			if n.ID == notificationID {
				marked = n
			}
		}
		return next, nil
	})
	if err != nil && !errors.Is(err, errAlreadyDelivered) {
		return nil, err
	}
	return &marked, nil
}

// Broadcast queues an announcement for every student and returns immediately.
func (s *NotificationService) Broadcast(ctx context.Context, req BroadcastRequest) (*BroadcastResult, error) {
	message := plainText(req.Message)
	if message == "" || len(message) > 1000 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message must be 1 to 1000 characters")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "broadcast queue is not running")
	}
	payload := broadcastPayload{NotificationID: uuid.NewString(), Message: message}
	jobID, err := s.queue.Enqueue(jobs.Job{Type: JobTypeBroadcast, Payload: payload})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue broadcast")
	}
	s.logger.Info("broadcast queued", zap.String("job_id", jobID), zap.String("notification_id", payload.NotificationID))
	return &BroadcastResult{JobID: jobID, NotificationID: payload.NotificationID}, nil
}

// deliverBroadcast appends the notification to every inbox. Every student gets
// the same notification id, so a retried job skips inboxes it already reached.
func (s *NotificationService) deliverBroadcast(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(broadcastPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	ids, err := s.docs.store.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list students: %w", err)
	}

	ledger := s.ledger
	ledger.NewID = func() string { return payload.NotificationID }

	var delivered, failed int
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := s.docs.update(ctx, id, func(student models.StudentData) (models.StudentData, error) {
			for _, n := range student.Notifications {
				if n.ID == payload.NotificationID {
					return student, errAlreadyDelivered
				}
			}
			return ledger.Notify(student, payload.Message), nil
		})
		switch {
		case err == nil:
			delivered++
			s.docs.metrics.RecordNotification("broadcast")
		case errors.Is(err, errAlreadyDelivered), errors.Is(err, appErrors.ErrNotFound):
		default:
			failed++
			s.logger.Warn("broadcast delivery failed", zap.String("student_id", id), zap.Error(err))
		}
	}
	s.logger.Info("broadcast delivered",
		zap.String("notification_id", payload.NotificationID),
		zap.Int("delivered", delivered),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("broadcast %s: %d of %d inboxes not updated", payload.NotificationID, failed, len(ids))
	}
	return nil
}
