package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// AccessRepo persists the Telegram users allowed to run extractions.
type AccessRepo struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewAccessRepo(db *sql.DB) *AccessRepo { return &AccessRepo{DB: db, Now: time.Now} }

// Add is idempotent; re-adding keeps the first row.
func (r *AccessRepo) Add(ctx context.Context, userID, addedBy int64) error {
	const q = `
insert into authorized_users (user_id, added_by, created_at)
values ($1, $2, $3)
on conflict (user_id) do nothing`
	_, err := r.DB.ExecContext(ctx, q, userID, addedBy, r.Now().Unix())
	return err
}

// Remove reports whether a row was deleted.
func (r *AccessRepo) Remove(ctx context.Context, userID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `delete from authorized_users where user_id = $1`, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *AccessRepo) List(ctx context.Context) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `select user_id from authorized_users order by user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *AccessRepo) Contains(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `select 1 from authorized_users where user_id = $1`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
