package allocation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"conf-registration/internal/fees"
	"conf-registration/internal/models"
)

const maxReserveAttempts = 3

type DBLayer interface {
	ReserveFee(ctx context.Context, feeID, conferenceID string, reg models.Registration, now time.Time) (*models.Registration, bool, error)
}

type FeeLock interface {
	AcquireFeeLock(feeID, token string, wait time.Duration) (bool, error)
	ReleaseFeeLock(feeID, token string) error
}

type KafkaPublisher interface {
	PublishRegistrationCreated(reg models.Registration, snapshot models.PriceSnapshot) error
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Service is the allocation gate: the only path allowed to commit a
// registrant to a fee. It serializes contenders per fee and leaves the
// capacity decision to one transactional re-check.
type Service struct {
	DB       DBLayer
	Redis    FeeLock
	Kafka    KafkaPublisher
	Clock    Clock
	LockWait time.Duration
}

func NewService(db DBLayer, redis FeeLock, kafka KafkaPublisher) *Service {
	return &Service{
		DB:       db,
		Redis:    redis,
		Kafka:    kafka,
		Clock:    systemClock{},
		LockWait: 2 * time.Second,
	}
}

// Reserve consumes one capacity unit of the fee for the given
// registration and returns the price in effect at commit time. Business
// unavailability comes back as AllocationError or NotFoundError and is
// final; lock and serialization conflicts are retried a bounded number
// of times before surfacing as TransientConflictError.
func (s *Service) Reserve(ctx context.Context, feeID, conferenceID string, reg models.Registration) (*models.PriceSnapshot, error) {
	token := uuid.NewString()

	locked, err := s.Redis.AcquireFeeLock(feeID, token, s.LockWait)
	if err != nil {
		return nil, fmt.Errorf("fee lock error: %w", err)
	}
	if !locked {
		return nil, &fees.TransientConflictError{Err: fmt.Errorf("fee %s is locked by a concurrent registration", feeID)}
	}
	defer func() {
		if err := s.Redis.ReleaseFeeLock(feeID, token); err != nil {
			fmt.Printf("Failed to release fee lock for %s: %v\n", feeID, err)
		}
	}()

	var lastErr error
	for attempt := 1; attempt <= maxReserveAttempts; attempt++ {
		committed, replayed, err := s.DB.ReserveFee(ctx, feeID, conferenceID, reg, s.Clock.Now())
		if err == nil {
			snapshot := &models.PriceSnapshot{
				FeeID:      committed.FeeID,
				PriceGross: committed.PriceAtRegistration,
				Currency:   committed.Currency,
				CapturedAt: committed.CreatedAt,
			}
			// a replayed submission already produced its created event
			if !replayed {
				s.publishCreated(*committed, *snapshot)
			}
			return snapshot, nil
		}
		if !isRetryableConflict(err) {
			return nil, err
		}
		lastErr = err
		time.Sleep(time.Duration(attempt) * 25 * time.Millisecond)
	}
	return nil, &fees.TransientConflictError{Err: lastErr}
}

func (s *Service) publishCreated(reg models.Registration, snapshot models.PriceSnapshot) {
	if s.Kafka == nil {
		return
	}
	if err := s.Kafka.PublishRegistrationCreated(reg, snapshot); err != nil {
		fmt.Printf("Kafka publish error (registration created): %v\n", err)
	}
}

// isRetryableConflict reports whether the error is a write conflict worth
// another attempt. Business outcomes are never retried.
func isRetryableConflict(err error) bool {
	switch err.(type) {
	case *fees.AllocationError, *fees.NotFoundError, *fees.ValidationError:
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not serialize") || // postgres 40001
		strings.Contains(msg, "deadlock detected") || // postgres 40P01
		strings.Contains(msg, "database is locked") || // sqlite
		strings.Contains(msg, "database table is locked")
}
