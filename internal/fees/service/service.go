package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"conf-registration/internal/fees"
	"conf-registration/internal/models"
)

type CatalogDBLayer interface {
	CreateFee(feeID, conferenceID string, input models.FeeInput) (*models.Fee, error)
	GetFee(feeID, conferenceID string) (*models.Fee, error)
	UpdateFee(feeID, conferenceID string, patch models.FeePatch) (*models.Fee, error)
	DeactivateFee(feeID, conferenceID string) error
	ReorderFees(conferenceID string, orderedFeeIDs []string) error
	ListFees(conferenceID string, activeOnly bool) ([]models.Fee, error)
	SoldCounts(conferenceID string) (map[string]int, error)
}

type EventPublisher interface {
	PublishFeeChanged(fee models.Fee, action string) error
}

// Clock is injected so availability decisions are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns wall-clock time.
func SystemClock() Clock { return systemClock{} }

type FeeService struct {
	DB              CatalogDBLayer
	Kafka           EventPublisher
	Clock           Clock
	DefaultCurrency string
}

func NewFeeService(db CatalogDBLayer, kafka EventPublisher, clock Clock, defaultCurrency string) *FeeService {
	if clock == nil {
		clock = SystemClock()
	}
	return &FeeService{DB: db, Kafka: kafka, Clock: clock, DefaultCurrency: defaultCurrency}
}

// ListForForm builds the public registration-form projection. Inactive
// fees are hidden entirely; other unavailable fees stay in the list with
// a disabled reason so the form can grey them out.
func (s *FeeService) ListForForm(conferenceID string) (*models.FeeOptionList, error) {
	list, err := s.DB.ListFees(conferenceID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list fees for conference %s: %w", conferenceID, err)
	}
	counts, err := s.DB.SoldCounts(conferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sold counts for conference %s: %w", conferenceID, err)
	}

	now := s.Clock.Now()
	out := &models.FeeOptionList{
		Fees:     []models.FeeOption{},
		Currency: s.DefaultCurrency,
	}
	currencySet := false
	for _, fee := range list {
		if !fee.IsActive {
			continue
		}
		// Label the list with the first visible fee's currency
		if !currencySet {
			out.Currency = fee.Currency
			currencySet = true
		}
		sold := counts[fee.FeeID]
		verdict := fees.Evaluate(fee, now, sold)

		option := models.FeeOption{
			FeeID:       fee.FeeID,
			Name:        fee.Name,
			PriceGross:  fee.PriceGross,
			Currency:    fee.Currency,
			IsAvailable: verdict.Available,
		}
		if !verdict.Available {
			option.DisabledReason = string(verdict.Reason)
		}
		if fee.Capacity != nil {
			capacity := *fee.Capacity
			soldCopy := sold
			option.Capacity = &capacity
			option.SoldCount = &soldCopy
		}
		out.Fees = append(out.Fees, option)
	}
	return out, nil
}

// ListForAdmin builds the dashboard projection. Admins manage inactive
// fees too, so nothing is filtered; sold_count and is_sold_out are
// always present.
func (s *FeeService) ListForAdmin(conferenceID string) ([]models.FeeAdminView, error) {
	list, err := s.DB.ListFees(conferenceID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list fees for conference %s: %w", conferenceID, err)
	}
	counts, err := s.DB.SoldCounts(conferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sold counts for conference %s: %w", conferenceID, err)
	}

	views := make([]models.FeeAdminView, len(list))
	for i, fee := range list {
		sold := counts[fee.FeeID]
		views[i] = models.FeeAdminView{
			Fee:       fee,
			SoldCount: sold,
			IsSoldOut: fee.Capacity != nil && sold >= *fee.Capacity,
		}
	}
	return views, nil
}

func (s *FeeService) CreateFee(conferenceID string, input models.FeeInput) (*models.Fee, error) {
	fee, err := s.DB.CreateFee(uuid.NewString(), conferenceID, input)
	if err != nil {
		return nil, err
	}
	s.publishChange(*fee, "created")
	return fee, nil
}

func (s *FeeService) UpdateFee(feeID, conferenceID string, patch models.FeePatch) (*models.Fee, error) {
	fee, err := s.DB.UpdateFee(feeID, conferenceID, patch)
	if err != nil {
		return nil, err
	}
	s.publishChange(*fee, "updated")
	return fee, nil
}

func (s *FeeService) DeactivateFee(feeID, conferenceID string) error {
	return s.DB.DeactivateFee(feeID, conferenceID)
}

func (s *FeeService) ReorderFees(conferenceID string, orderedFeeIDs []string) error {
	if len(orderedFeeIDs) == 0 {
		return &fees.ValidationError{Field: "fee_ids", Msg: "must not be empty"}
	}
	seen := make(map[string]bool, len(orderedFeeIDs))
	for _, id := range orderedFeeIDs {
		if seen[id] {
			return &fees.ValidationError{Field: "fee_ids", Msg: "must not contain duplicates"}
		}
		seen[id] = true
	}
	return s.DB.ReorderFees(conferenceID, orderedFeeIDs)
}

// publishChange streams catalog changes for downstream dashboards. Event
// delivery is best effort and never fails the admin operation.
func (s *FeeService) publishChange(fee models.Fee, action string) {
	if s.Kafka == nil {
		return
	}
	if err := s.Kafka.PublishFeeChanged(fee, action); err != nil {
		fmt.Printf("Kafka publish error (fee %s): %v\n", action, err)
	}
}
