package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"conf-registration/internal/fees"
	"conf-registration/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ReserveFee atomically re-checks availability and commits the
// registration's fee linkage in one transaction. The fee row is read
// with a row lock under Postgres; the sold count is recomputed from the
// ledger inside the same transaction, so no two concurrent calls can
// both see the last capacity unit.
//
// The returned registration is the committed ledger row with the fee
// linkage and price filled in. A registration id that was already
// committed to the same fee returns the stored row with replayed=true
// instead of reserving twice, which makes retried submissions
// idempotent.
func (d *DB) ReserveFee(ctx context.Context, feeID, conferenceID string, reg models.Registration, now time.Time) (*models.Registration, bool, error) {
	var committed *models.Registration
	replayed := false

	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var existing models.Registration
		err := tx.NewSelect().
			Model(&existing).
			Where("registration_id = ?", reg.RegistrationID).
			Limit(1).
			Scan(ctx)
		if err == nil {
			if existing.FeeID != feeID {
				return &fees.NotFoundError{Resource: "registration", ID: reg.RegistrationID}
			}
			committed = &existing
			replayed = true
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		var fee models.Fee
		q := tx.NewSelect().
			Model(&fee).
			Where("fee_id = ?", feeID).
			Where("conference_id = ?", conferenceID).
			Limit(1)
		if d.Bun.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &fees.NotFoundError{Resource: "fee", ID: feeID}
			}
			return err
		}

		sold, err := tx.NewSelect().
			Model((*models.Registration)(nil)).
			Where("fee_id = ?", feeID).
			Where("status != ?", models.RegistrationCancelled).
			Count(ctx)
		if err != nil {
			return err
		}

		verdict := fees.Evaluate(fee, now, sold)
		if !verdict.Available {
			if verdict.Reason == fees.ReasonInactive {
				// a deactivated fee is hidden from the public list,
				// report it like a deleted one
				return &fees.NotFoundError{Resource: "fee", ID: feeID}
			}
			return &fees.AllocationError{FeeID: feeID, Reason: verdict.Reason}
		}

		reg.ConferenceID = fee.ConferenceID
		reg.FeeID = fee.FeeID
		reg.Status = models.RegistrationConfirmed
		reg.PriceAtRegistration = fee.PriceGross
		reg.Currency = fee.Currency
		reg.CreatedAt = now
		reg.UpdatedAt = now
		if _, err := tx.NewInsert().Model(&reg).Exec(ctx); err != nil {
			return err
		}

		committed = &reg
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return committed, replayed, nil
}
