package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"conf-registration/internal/fees"
	"conf-registration/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetRegistrationByID(id string) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("registration_id = ?", id).
		Limit(1).
		Scan(context.Background())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &fees.NotFoundError{Resource: "registration", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// UpdateRegistration writes the mutable registration fields. The fee
// linkage and price snapshot are immutable once committed.
func (d *DB) UpdateRegistration(reg models.Registration) error {
	_, err := d.Bun.NewUpdate().
		Model(&reg).
		Column("attendee_name", "attendee_email", "status", "confirmation_qr", "updated_at").
		Where("registration_id = ?", reg.RegistrationID).
		Exec(context.Background())
	return err
}

func (d *DB) ListRegistrationsByConference(conferenceID string) ([]models.Registration, error) {
	var regs []models.Registration
	err := d.Bun.NewSelect().
		Model(&regs).
		Where("conference_id = ?", conferenceID).
		Order("created_at ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return regs, nil
}

func (d *DB) ListRegistrationsByEmail(email string) ([]models.Registration, error) {
	var regs []models.Registration
	err := d.Bun.NewSelect().
		Model(&regs).
		Where("attendee_email = ?", email).
		Order("created_at ASC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return regs, nil
}
