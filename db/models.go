// Package db provides database models and utilities for the berth run journal.
package db

import (
	"time"

	"github.com/google/uuid"
)

type BaseModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RunModel struct {
	BaseModel
	ServiceName string    `gorm:"not null;check:service_name <> ''"`
	CommitHash  *string
	Outcome     string    `gorm:"not null;check:outcome <> ''"` // in_progress, running, rebooting, aborted
	Error       string    `gorm:"type:text"`
	StartedAt   time.Time `gorm:"not null"`
	FinishedAt  *time.Time

	Stages []StageModel `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

func (RunModel) TableName() string {
	return "runs"
}

type StageModel struct {
	BaseModel
	RunID      uuid.UUID `gorm:"not null;index"`
	Position   int       `gorm:"not null"`
	Name       string    `gorm:"not null;check:name <> ''"`
	Status     string    `gorm:"not null;check:status <> ''"` // completed, skipped, tolerated, failed
	Message    string    `gorm:"type:text"`
	StartedAt  time.Time `gorm:"not null"`
	DurationMs int64     `gorm:"not null"`

	Run RunModel `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

func (StageModel) TableName() string {
	return "stages"
}

// MigrationModel records a named migration that has been applied.
type MigrationModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;unique"`
	AppliedAt time.Time
}

func (MigrationModel) TableName() string {
	return "migrations"
}
