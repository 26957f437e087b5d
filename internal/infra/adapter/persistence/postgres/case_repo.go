package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"casetrack/internal/domain/entity"
	"casetrack/internal/repository"
)

type CaseRepo struct{ db repository.Querier }

func NewCaseRepo(db repository.Querier) repository.CaseRepository {
	return &CaseRepo{db: db}
}

func (repo *CaseRepo) GetCaseInfo(ctx context.Context, caseID int64) (*entity.CaseInfo, error) {
	const query = `
SELECT case_id, first_name, last_name, COALESCE(dob::text, ''), COALESCE(gender, '')
FROM cases
WHERE case_id = $1
LIMIT 1`
	var info entity.CaseInfo
	err := repo.db.QueryRowContext(ctx, query, caseID).Scan(
		&info.ID, &info.FirstName, &info.LastName, &info.DOB, &info.Gender,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetCaseInfo: case %d: %w", caseID, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetCaseInfo: %w", err)
	}
	return &info, nil
}
