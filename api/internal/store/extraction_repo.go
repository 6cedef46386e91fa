package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Outcome of an extraction as stored in the log.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// ExtractionRow is one audit entry: who asked for which test and what came out.
type ExtractionRow struct {
	ID        string
	ChatID    int64
	NID       string
	Variants  []string
	Questions int
	Outcome   string
	Error     string
	CreatedAt time.Time
}

type ExtractionRepo struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewExtractionRepo(db *sql.DB) *ExtractionRepo { return &ExtractionRepo{DB: db, Now: time.Now} }

func (r *ExtractionRepo) Record(ctx context.Context, row ExtractionRow) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = r.Now()
	}
	const q = `
insert into extractions (id, chat_id, nid, variants, questions, outcome, error, created_at)
values ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.DB.ExecContext(ctx, q,
		row.ID, row.ChatID, row.NID, strings.Join(row.Variants, ","),
		row.Questions, row.Outcome, row.Error, row.CreatedAt.Unix())
	return err
}

// Recent returns the newest rows first. chatID 0 means every chat.
func (r *ExtractionRepo) Recent(ctx context.Context, chatID int64, limit int) ([]ExtractionRow, error) {
	if limit <= 0 {
		limit = 10
	}
	const cols = `select id, chat_id, nid, variants, questions, outcome, error, created_at from extractions`
	var (
		rows *sql.Rows
		err  error
	)
	if chatID == 0 {
		rows, err = r.DB.QueryContext(ctx, cols+` order by created_at desc limit $1`, limit)
	} else {
		rows, err = r.DB.QueryContext(ctx, cols+` where chat_id = $1 order by created_at desc limit $2`, chatID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExtractionRow
	for rows.Next() {
		var (
			row      ExtractionRow
			variants string
			ts       int64
		)
		if err := rows.Scan(&row.ID, &row.ChatID, &row.NID, &variants, &row.Questions, &row.Outcome, &row.Error, &ts); err != nil {
			return nil, err
		}
		if variants != "" {
			row.Variants = strings.Split(variants, ",")
		}
		row.CreatedAt = time.Unix(ts, 0).UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes rows older than age and returns how many went away.
func (r *ExtractionRepo) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := r.Now().Add(-age).Unix()
	res, err := r.DB.ExecContext(ctx, `delete from extractions where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
