package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"conf-registration/internal/fees"
	"conf-registration/internal/fees/db"
	"conf-registration/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	// Create required tables
	for _, model := range []interface{}{
		(*models.Conference)(nil),
		(*models.Fee)(nil),
		(*models.Registration)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(context.Background())
		if err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func testInput(name string) models.FeeInput {
	return models.FeeInput{
		Name:       name,
		ValidFrom:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:    time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		IsActive:   true,
		PriceNet:   84.03,
		PriceGross: 100.0,
		Currency:   "EUR",
	}
}

func TestCreateAndGetFee(t *testing.T) {
	feeDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	feeID := uuid.New().String()
	created, err := feeDB.CreateFee(feeID, "conf-1", testInput("Early Bird"))
	assert.NoError(t, err)
	assert.Equal(t, feeID, created.FeeID)
	assert.Equal(t, 0, created.DisplayOrder)

	fee, err := feeDB.GetFee(feeID, "conf-1")
	assert.NoError(t, err)
	assert.NotNil(t, fee)
	assert.Equal(t, "Early Bird", fee.Name)
	assert.Equal(t, "EUR", fee.Currency)
	assert.Nil(t, fee.Capacity)

	// Non-existent fee
	fee, err = feeDB.GetFee("non-existent", "conf-1")
	assert.Error(t, err)
	assert.Nil(t, fee)
	var notFound *fees.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCreateFeeAppendsDisplayOrder(t *testing.T) {
	feeDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	first, err := feeDB.CreateFee(uuid.New().String(), "conf-1", testInput("Early Bird"))
	assert.NoError(t, err)
	second, err := feeDB.CreateFee(uuid.New().String(), "conf-1", testInput("Regular"))
	assert.NoError(t, err)
	assert.Equal(t, 0, first.DisplayOrder)
	assert.Equal(t, 1, second.DisplayOrder)

	// Another conference starts its own sequence
	other, err := feeDB.CreateFee(uuid.New().String(), "conf-2", testInput("Regular"))
	assert.NoError(t, err)
	assert.Equal(t, 0, other.DisplayOrder)

	// Explicit display order is honored as-is
	five := 5
	input := testInput("Sponsor")
	input.DisplayOrder = &five
	sponsor, err := feeDB.CreateFee(uuid.New().String(), "conf-1", input)
	assert.NoError(t, err)
	assert.Equal(t, 5, sponsor.DisplayOrder)
}

func TestCreateFeeValidation(t *testing.T) {
	feeDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	tests := []struct {
		name   string
		mutate func(*models.FeeInput)
		field  string
	}{
		{"empty name", func(in *models.FeeInput) { in.Name = "  " }, "name"},
		{"window inverted", func(in *models.FeeInput) { in.ValidFrom = in.ValidTo.AddDate(0, 0, 1) }, "valid_from"},
		{"negative net price", func(in *models.FeeInput) { in.PriceNet = -1 }, "price_net"},
		{"gross below net", func(in *models.FeeInput) { in.PriceGross = in.PriceNet - 1 }, "price_gross"},
		{"bad currency", func(in *models.FeeInput) { in.Currency = "EURO" }, "currency"},
		{"negative capacity", func(in *models.FeeInput) { neg := -1; in.Capacity = &neg }, "capacity"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := testInput("Early Bird")
			tc.mutate(&input)
			_, err := feeDB.CreateFee(uuid.New().String(), "conf-1", input)
			var vErr *fees.ValidationError
			assert.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestUpdateFee(t *testing.T) {
	feeDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	feeID := uuid.New().String()
	_, err := feeDB.CreateFee(feeID, "conf-1", testInput("Early Bird"))
	assert.NoError(t, err)

	name := "Late Bird"
	gross := 150.0
	capacity := 20
	updated, err := feeDB.UpdateFee(feeID, "conf-1", models.FeePatch{
		Name:       &name,
		PriceGross: &gross,
		Capacity:   &capacity,
	})
	assert.NoError(t, err)
	assert.Equal(t, "Late Bird", updated.Name)
	assert.Equal(t, 150.0, updated.PriceGross)
	assert.NotNil(t, updated.Capacity)
	assert.Equal(t, 20, *updated.Capacity)
	// Untouched fields survive the patch
	assert.Equal(t, 84.03, updated.PriceNet)

	// Clearing the capacity makes the fee unlimited again
	updated, err = feeDB.UpdateFee(feeID, "conf-1", models.FeePatch{ClearCap: true})
	assert.NoError(t, err)
	assert.Nil(t, updated.Capacity)

	// Invalid patch is rejected and the row is untouched
	bad := "EURO"
	_, err = feeDB.UpdateFee(feeID, "conf-1", models.FeePatch{Currency: &bad})
	var vErr *fees.ValidationError
	assert.ErrorAs(t, err, &vErr)
	fee, err := feeDB.GetFee(feeID, "conf-1")
	assert.NoError(t, err)
	assert.Equal(t, "EUR", fee.Currency)
}

func TestUpdateFeeWrongConference(t *testing.T) {
	feeDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	feeID := uuid.New().String()
	_, err := feeDB.CreateFee(feeID, "conf-1", testInput("Early Bird"))
	assert.NoError(t, err)

	name := "Hijacked"
	_, err = feeDB.UpdateFee(feeID, "conf-2", models.FeePatch{Name: &name})
	var notFound *fees.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	fee, err := feeDB.GetFee(feeID, "conf-1")
	assert.NoError(t, err)
	assert.Equal(t, "Early Bird", fee.Name)
}

func TestDeactivateFee(t *testing.T) {
	feeDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	feeID := uuid.New().String()
	_, err := feeDB.CreateFee(feeID, "conf-1", testInput("Early Bird"))
	assert.NoError(t, err)

	err = feeDB.DeactivateFee(feeID, "conf-1")
	assert.NoError(t, err)

	// The row is still there, just inactive
	fee, err := feeDB.GetFee(feeID, "conf-1")
	assert.NoError(t, err)
	assert.False(t, fee.IsActive)
}

func TestReorderFees(t *testing.T) {
	feeDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ids := make([]string, 3)
	for i, name := range []string{"Early Bird", "Regular", "Student"} {
		ids[i] = uuid.New().String()
		_, err := feeDB.CreateFee(ids[i], "conf-1", testInput(name))
		assert.NoError(t, err)
	}

	// Reverse the order
	err := feeDB.ReorderFees("conf-1", []string{ids[2], ids[1], ids[0]})
	assert.NoError(t, err)

	list, err := feeDB.ListFees("conf-1", false)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(list))
	assert.Equal(t, "Student", list[0].Name)
	assert.Equal(t, "Regular", list[1].Name)
	assert.Equal(t, "Early Bird", list[2].Name)
}

func TestReorderFeesSkipsForeignIDs(t *testing.T) {
	feeDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	mineID := uuid.New().String()
	_, err := feeDB.CreateFee(mineID, "conf-1", testInput("Early Bird"))
	assert.NoError(t, err)

	otherID := uuid.New().String()
	_, err = feeDB.CreateFee(otherID, "conf-2", testInput("Regular"))
	assert.NoError(t, err)

	// Stale client sends an id from a different conference plus a deleted one
	err = feeDB.ReorderFees("conf-1", []string{otherID, "gone", mineID})
	assert.NoError(t, err)

	// The foreign fee keeps its own order
	other, err := feeDB.GetFee(otherID, "conf-2")
	assert.NoError(t, err)
	assert.Equal(t, 0, other.DisplayOrder)

	mine, err := feeDB.GetFee(mineID, "conf-1")
	assert.NoError(t, err)
	assert.Equal(t, 2, mine.DisplayOrder)
}

func TestListFees(t *testing.T) {
	feeDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	activeID := uuid.New().String()
	_, err := feeDB.CreateFee(activeID, "conf-1", testInput("Early Bird"))
	assert.NoError(t, err)

	inactiveInput := testInput("Hidden")
	inactiveInput.IsActive = false
	_, err = feeDB.CreateFee(uuid.New().String(), "conf-1", inactiveInput)
	assert.NoError(t, err)

	all, err := feeDB.ListFees("conf-1", false)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(all))

	active, err := feeDB.ListFees("conf-1", true)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(active))
	assert.Equal(t, activeID, active[0].FeeID)

	// Empty conference returns an empty list, not an error
	none, err := feeDB.ListFees("conf-none", false)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(none))
}

func TestGetConferenceBySlug(t *testing.T) {
	feeDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	conf := models.Conference{
		ConferenceID: uuid.New().String(),
		Slug:         "gophercon-2026",
		Name:         "GopherCon 2026",
		CreatedAt:    time.Now().UTC(),
	}
	_, err := bunDB.NewInsert().Model(&conf).Exec(context.Background())
	assert.NoError(t, err)

	bySlug, err := feeDB.GetConferenceBySlug("gophercon-2026")
	assert.NoError(t, err)
	assert.Equal(t, conf.ConferenceID, bySlug.ConferenceID)

	byID, err := feeDB.GetConferenceBySlug(conf.ConferenceID)
	assert.NoError(t, err)
	assert.Equal(t, "gophercon-2026", byID.Slug)

	_, err = feeDB.GetConferenceBySlug("unknown")
	var notFound *fees.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
