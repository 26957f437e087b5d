package repository

import (
	"context"

	"casetrack/internal/domain/entity"
)

// CaseRepository reads the case attributes the notifier personalizes messages with.
// GetCaseInfo returns an error wrapping entity.ErrNotFound for unknown ids.
type CaseRepository interface {
	GetCaseInfo(ctx context.Context, caseID int64) (*entity.CaseInfo, error)
}
