package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"conf-registration/internal/fees"
	"conf-registration/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// validateFee enforces the catalog invariants shared by create and update.
func validateFee(fee *models.Fee) error {
	if strings.TrimSpace(fee.Name) == "" {
		return &fees.ValidationError{Field: "name", Msg: "must not be empty"}
	}
	if fee.ValidFrom.After(fee.ValidTo) {
		return &fees.ValidationError{Field: "valid_from", Msg: "must not be after valid_to"}
	}
	if fee.PriceNet < 0 {
		return &fees.ValidationError{Field: "price_net", Msg: "must not be negative"}
	}
	if fee.PriceGross < fee.PriceNet {
		return &fees.ValidationError{Field: "price_gross", Msg: "must not be below price_net"}
	}
	if len(fee.Currency) != 3 {
		return &fees.ValidationError{Field: "currency", Msg: "must be a 3-letter code"}
	}
	if fee.Capacity != nil && *fee.Capacity < 0 {
		return &fees.ValidationError{Field: "capacity", Msg: "must not be negative"}
	}
	return nil
}

// CreateFee inserts a new fee for the conference. When the input carries
// no display order the fee goes to the end of the conference's list.
func (d *DB) CreateFee(feeID, conferenceID string, input models.FeeInput) (*models.Fee, error) {
	ctx := context.Background()
	now := time.Now().UTC()

	fee := models.Fee{
		FeeID:        feeID,
		ConferenceID: conferenceID,
		Name:         input.Name,
		ValidFrom:    input.ValidFrom,
		ValidTo:      input.ValidTo,
		IsActive:     input.IsActive,
		PriceNet:     input.PriceNet,
		PriceGross:   input.PriceGross,
		Currency:     strings.ToUpper(input.Currency),
		Capacity:     input.Capacity,
		Extra:        input.Extra,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := validateFee(&fee); err != nil {
		return nil, err
	}

	if input.DisplayOrder != nil {
		fee.DisplayOrder = *input.DisplayOrder
	} else {
		count, err := d.Bun.NewSelect().
			Model((*models.Fee)(nil)).
			Where("conference_id = ?", conferenceID).
			Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count fees for conference %s: %w", conferenceID, err)
		}
		fee.DisplayOrder = count
	}

	if _, err := d.Bun.NewInsert().Model(&fee).Exec(ctx); err != nil {
		return nil, err
	}
	return &fee, nil
}

// GetFee fetches one fee scoped to its conference. A fee that exists but
// belongs to a different conference is reported as not found.
func (d *DB) GetFee(feeID, conferenceID string) (*models.Fee, error) {
	var fee models.Fee
	err := d.Bun.NewSelect().
		Model(&fee).
		Where("fee_id = ?", feeID).
		Where("conference_id = ?", conferenceID).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &fees.NotFoundError{Resource: "fee", ID: feeID}
	}
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

// UpdateFee applies an admin patch to a fee of the given conference.
// Nil patch fields are left untouched; conference_id is immutable.
func (d *DB) UpdateFee(feeID, conferenceID string, patch models.FeePatch) (*models.Fee, error) {
	fee, err := d.GetFee(feeID, conferenceID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		fee.Name = *patch.Name
	}
	if patch.ValidFrom != nil {
		fee.ValidFrom = *patch.ValidFrom
	}
	if patch.ValidTo != nil {
		fee.ValidTo = *patch.ValidTo
	}
	if patch.IsActive != nil {
		fee.IsActive = *patch.IsActive
	}
	if patch.PriceNet != nil {
		fee.PriceNet = *patch.PriceNet
	}
	if patch.PriceGross != nil {
		fee.PriceGross = *patch.PriceGross
	}
	if patch.Currency != nil {
		fee.Currency = strings.ToUpper(*patch.Currency)
	}
	if patch.ClearCap {
		fee.Capacity = nil
	} else if patch.Capacity != nil {
		fee.Capacity = patch.Capacity
	}
	if patch.Extra != nil {
		fee.Extra = patch.Extra
	}
	if err := validateFee(fee); err != nil {
		return nil, err
	}
	fee.UpdatedAt = time.Now().UTC()

	res, err := d.Bun.NewUpdate().
		Model(fee).
		Column("name", "valid_from", "valid_to", "is_active", "price_net",
			"price_gross", "currency", "capacity", "extra", "updated_at").
		Where("fee_id = ?", feeID).
		Where("conference_id = ?", conferenceID).
		Exec(context.Background())
	if err != nil {
		return nil, err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, &fees.NotFoundError{Resource: "fee", ID: feeID}
	}
	return fee, nil
}

// DeactivateFee is the soft-delete path. Fees referenced by registrations
// are never removed physically.
func (d *DB) DeactivateFee(feeID, conferenceID string) error {
	inactive := false
	_, err := d.UpdateFee(feeID, conferenceID, models.FeePatch{IsActive: &inactive})
	return err
}

// ReorderFees reassigns display_order = index for the given sequence,
// inside one transaction so no reader observes a half-applied order.
// IDs that do not belong to the conference are skipped, tolerating stale
// admin clients.
func (d *DB) ReorderFees(conferenceID string, orderedFeeIDs []string) error {
	ctx := context.Background()
	now := time.Now().UTC()

	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for idx, feeID := range orderedFeeIDs {
			_, err := tx.NewUpdate().
				Model((*models.Fee)(nil)).
				Set("display_order = ?", idx).
				Set("updated_at = ?", now).
				Where("fee_id = ?", feeID).
				Where("conference_id = ?", conferenceID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to reorder fee %s: %w", feeID, err)
			}
		}
		return nil
	})
}

// ListFees returns the conference's fees ordered by display_order, ties
// broken by creation time.
func (d *DB) ListFees(conferenceID string, activeOnly bool) ([]models.Fee, error) {
	var list []models.Fee
	q := d.Bun.NewSelect().
		Model(&list).
		Where("conference_id = ?", conferenceID).
		Order("display_order ASC", "created_at ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Scan(context.Background()); err != nil {
		return nil, err
	}
	return list, nil
}

// GetConferenceBySlug resolves a conference by its id or slug.
func (d *DB) GetConferenceBySlug(idOrSlug string) (*models.Conference, error) {
	var conf models.Conference
	err := d.Bun.NewSelect().
		Model(&conf).
		Where("conference_id = ? OR slug = ?", idOrSlug, idOrSlug).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &fees.NotFoundError{Resource: "conference", ID: idOrSlug}
	}
	if err != nil {
		return nil, err
	}
	return &conf, nil
}
