package registration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"conf-registration/internal/fees"
	"conf-registration/internal/models"
)

type DBLayer interface {
	GetRegistrationByID(id string) (*models.Registration, error)
	UpdateRegistration(reg models.Registration) error
	ListRegistrationsByConference(conferenceID string) ([]models.Registration, error)
	ListRegistrationsByEmail(email string) ([]models.Registration, error)
}

// AllocationGate is the only path allowed to commit a registrant to a fee.
type AllocationGate interface {
	Reserve(ctx context.Context, feeID, conferenceID string, reg models.Registration) (*models.PriceSnapshot, error)
}

type ConferenceResolver interface {
	GetConferenceBySlug(idOrSlug string) (*models.Conference, error)
}

type QRGenerator interface {
	GenerateConfirmationQR(reg models.Registration) ([]byte, error)
	DecryptConfirmation(encoded string) (*models.Registration, error)
}

type KafkaPublisher interface {
	PublishRegistrationCancelled(reg models.Registration) error
}

type Service struct {
	DB          DBLayer
	Gate        AllocationGate
	Conferences ConferenceResolver
	QR          QRGenerator
	Kafka       KafkaPublisher
}

func NewService(db DBLayer, gate AllocationGate, conferences ConferenceResolver, qr QRGenerator, kafka KafkaPublisher) *Service {
	return &Service{DB: db, Gate: gate, Conferences: conferences, QR: qr, Kafka: kafka}
}

// Register resolves the conference, reserves one capacity unit through
// the allocation gate and attaches the confirmation QR. The price the
// attendee is charged is the gate's snapshot, never a client-sent value.
func (s *Service) Register(ctx context.Context, confIDOrSlug string, req models.RegistrationRequest) (*models.RegistrationResponse, error) {
	if strings.TrimSpace(req.FeeID) == "" {
		return nil, &fees.ValidationError{Field: "fee_id", Msg: "must not be empty"}
	}
	if strings.TrimSpace(req.AttendeeName) == "" {
		return nil, &fees.ValidationError{Field: "attendee_name", Msg: "must not be empty"}
	}
	if !strings.Contains(req.AttendeeEmail, "@") {
		return nil, &fees.ValidationError{Field: "attendee_email", Msg: "must be an email address"}
	}

	conf, err := s.Conferences.GetConferenceBySlug(confIDOrSlug)
	if err != nil {
		return nil, err
	}

	reg := models.Registration{
		RegistrationID: uuid.NewString(),
		AttendeeName:   req.AttendeeName,
		AttendeeEmail:  req.AttendeeEmail,
	}

	snapshot, err := s.Gate.Reserve(ctx, req.FeeID, conf.ConferenceID, reg)
	if err != nil {
		return nil, err
	}

	// the QR is a convenience artifact; losing it does not undo the
	// committed reservation
	if s.QR != nil {
		stored, err := s.DB.GetRegistrationByID(reg.RegistrationID)
		if err == nil {
			qr, qrErr := s.QR.GenerateConfirmationQR(*stored)
			if qrErr != nil {
				fmt.Printf("Failed to generate confirmation QR for %s: %v\n", reg.RegistrationID, qrErr)
			} else {
				stored.ConfirmationQR = qr
				stored.UpdatedAt = time.Now().UTC()
				if err := s.DB.UpdateRegistration(*stored); err != nil {
					fmt.Printf("Failed to store confirmation QR for %s: %v\n", reg.RegistrationID, err)
				}
			}
		}
	}

	return &models.RegistrationResponse{
		RegistrationID: reg.RegistrationID,
		ConferenceID:   conf.ConferenceID,
		Price:          *snapshot,
	}, nil
}

func (s *Service) GetRegistration(id string) (*models.Registration, error) {
	return s.DB.GetRegistrationByID(id)
}

// Cancel marks a registration cancelled. The fee's capacity unit is
// freed implicitly because sold counts are derived from non-cancelled
// ledger rows.
func (s *Service) Cancel(id string) error {
	reg, err := s.DB.GetRegistrationByID(id)
	if err != nil {
		return err
	}
	if reg.Status == models.RegistrationCancelled {
		return nil // cancelling twice is a no-op
	}

	reg.Status = models.RegistrationCancelled
	reg.UpdatedAt = time.Now().UTC()
	if err := s.DB.UpdateRegistration(*reg); err != nil {
		return fmt.Errorf("failed to cancel registration %s: %w", id, err)
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishRegistrationCancelled(*reg); err != nil {
			fmt.Printf("Kafka publish error (registration cancelled): %v\n", err)
		}
	}
	return nil
}

// VerifyConfirmation decrypts a scanned confirmation payload and checks
// it against the ledger. The claimed fee and attendee email must match
// the stored row; a cancelled registration decrypts fine but is not valid.
func (s *Service) VerifyConfirmation(payload string) (*models.ConfirmationCheck, error) {
	if s.QR == nil {
		return nil, fmt.Errorf("confirmation verification is not configured")
	}
	claimed, err := s.QR.DecryptConfirmation(payload)
	if err != nil {
		return nil, &fees.ValidationError{Field: "payload", Msg: "not a valid confirmation payload"}
	}

	stored, err := s.DB.GetRegistrationByID(claimed.RegistrationID)
	if err != nil {
		return nil, err
	}
	if claimed.FeeID != stored.FeeID || !strings.EqualFold(claimed.AttendeeEmail, stored.AttendeeEmail) {
		return nil, &fees.ValidationError{Field: "payload", Msg: "payload does not match the stored registration"}
	}

	return &models.ConfirmationCheck{
		RegistrationID: stored.RegistrationID,
		AttendeeName:   stored.AttendeeName,
		Status:         stored.Status,
		Valid:          stored.Status == models.RegistrationConfirmed,
	}, nil
}

func (s *Service) ListByConference(confIDOrSlug string) ([]models.Registration, error) {
	conf, err := s.Conferences.GetConferenceBySlug(confIDOrSlug)
	if err != nil {
		return nil, err
	}
	return s.DB.ListRegistrationsByConference(conf.ConferenceID)
}

func (s *Service) ListByEmail(email string) ([]models.Registration, error) {
	return s.DB.ListRegistrationsByEmail(email)
}
