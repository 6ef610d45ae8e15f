package db

import (
	"context"

	"conf-registration/internal/models"
)

// SoldCount returns the number of non-cancelled registrations claiming a
// fee. Always computed from the ledger so it cannot drift.
func (d *DB) SoldCount(feeID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Registration)(nil)).
		Where("fee_id = ?", feeID).
		Where("status != ?", models.RegistrationCancelled).
		Count(context.Background())
}

// SoldCounts computes sold counts for every fee of a conference in one
// grouped query, so list rendering does not pay an N+1 cost. Fees with
// no registrations are absent from the map.
func (d *DB) SoldCounts(conferenceID string) (map[string]int, error) {
	var rows []struct {
		FeeID string `bun:"fee_id"`
		Sold  int    `bun:"sold"`
	}
	err := d.Bun.NewSelect().
		Model((*models.Registration)(nil)).
		ColumnExpr("fee_id").
		ColumnExpr("count(*) AS sold").
		Where("conference_id = ?", conferenceID).
		Where("status != ?", models.RegistrationCancelled).
		Group("fee_id").
		Scan(context.Background(), &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.FeeID] = row.Sold
	}
	return counts, nil
}
