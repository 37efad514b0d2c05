// Package challenge exposes the operator-controlled state of the monthly
// challenge stored in config_params.
package challenge

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tribu-research/challenge-backend/internal/apperr"
	"github.com/tribu-research/challenge-backend/internal/models"
	"github.com/tribu-research/challenge-backend/internal/ports"
	"github.com/tribu-research/challenge-backend/pkg/database"
)

// Parameter keys in config_params.
const (
	KeyCurrentMonth = "current_month_for_challenge"
	KeyCurrentYear  = "current_year_for_challenge"
	KeyWeekOfUpload = "is_week_of_upload"
	KeyWeekOfVoting = "is_week_of_voting"
)

// Repository reads challenge parameters.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a challenge repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ ports.ChallengeRepository = (*Repository)(nil)

// GetStatus returns the current challenge status.
func (r *Repository) GetStatus(ctx context.Context) (*models.ChallengeStatus, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM config_params WHERE key = ANY($1)`,
		[]string{KeyCurrentMonth, KeyCurrentYear, KeyWeekOfUpload, KeyWeekOfVoting})
	if err != nil {
		return nil, database.Wrap("query config params", err)
	}
	defer rows.Close()

	params := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, database.Wrap("scan config param", err)
		}
		params[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, database.Wrap("read config params", err)
	}
	return ParseStatus(params)
}

// ParseStatus builds a ChallengeStatus from raw parameters.
func ParseStatus(params map[string]string) (*models.ChallengeStatus, error) {
	raw, ok := params[KeyCurrentMonth]
	if !ok {
		return nil, apperr.ErrChallengeNotFound
	}
	month, err := strconv.Atoi(raw)
	if err != nil || month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid %s %q", KeyCurrentMonth, raw)
	}
	st := &models.ChallengeStatus{CurrentMonth: month}
	if raw, ok := params[KeyCurrentYear]; ok {
		if st.CurrentYear, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("invalid %s %q", KeyCurrentYear, raw)
		}
	}
	st.IsWeekOfUpload, _ = strconv.ParseBool(params[KeyWeekOfUpload])
	st.IsWeekOfVoting, _ = strconv.ParseBool(params[KeyWeekOfVoting])
	return st, nil
}
