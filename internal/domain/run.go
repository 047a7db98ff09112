package domain

import (
	"time"

	"github.com/google/uuid"
)

// MigrationRun is the audit row written once per run: started at launch,
// finished with aggregate counts after validation. It doubles as the
// watermark reruns can inspect.
type MigrationRun struct {
	ID            uuid.UUID
	SourceURL     string
	StartedAt     time.Time
	FinishedAt    *time.Time
	ExpectedTotal int
	Attempted     int
	Succeeded     int
	Skipped       int
	Errored       int
	SuccessRatio  *float64
	Fatal         *string
}
