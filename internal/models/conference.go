package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Conference struct {
	bun.BaseModel `bun:"table:conferences"`

	ConferenceID string    `bun:"conference_id,pk" json:"conference_id"`
	Slug         string    `bun:"slug,unique,notnull" json:"slug"`
	Name         string    `bun:"name,notnull" json:"name"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
}
