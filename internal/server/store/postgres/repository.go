// Package postgres implements the store.Backing interface over a direct
// PostgreSQL connection. Supabase projects expose the same database the
// REST layer fronts, so deployments that have the connection string can
// skip PostgREST entirely.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/willcounter/internal/common"
	"github.com/dmitrijs2005/willcounter/internal/dbx"
	"github.com/dmitrijs2005/willcounter/internal/server/models"
)

type Repository struct {
	db dbx.DBTX
}

func NewRepository(db dbx.DBTX) *Repository {
	return &Repository{db: db}
}

// wrapDBError maps driver errors onto the store error contract.
// Unique violations become ErrorConflict so callers can re-read.
func wrapDBError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return common.ErrorConflict
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *Repository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByAuth0ID(ctx context.Context, auth0ID string) (*models.User, error) {
	query :=
		`SELECT id, auth0_id, email, created_at, last_login, preferences FROM users
		 WHERE auth0_id = $1
		 `

	row := r.db.QueryRowContext(ctx, query, auth0ID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, wrapDBError(err)
	}

	return user, nil
}

func (r *Repository) CreateUser(ctx context.Context, auth0ID, email string) (*models.User, error) {
	prefs, err := json.Marshal(models.DefaultPreferences())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	query :=
		`INSERT INTO users (auth0_id, email, preferences)
		 VALUES ($1, $2, $3)
		 RETURNING id, auth0_id, email, created_at, last_login, preferences
		 `

	row := r.db.QueryRowContext(ctx, query, auth0ID, email, prefs)
	user, err := scanUser(row)
	if err != nil {
		return nil, wrapDBError(err)
	}

	return user, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, userID, lastLogin string) (bool, error) {
	query :=
		`UPDATE users SET last_login = $2::timestamptz
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID, lastLogin)
	if err != nil {
		return false, wrapDBError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected > 0, nil
}

func (r *Repository) GetCount(ctx context.Context, userID, date string) (*models.WillCount, error) {
	query :=
		`SELECT id, user_id, date, count, timestamps, created_at, updated_at FROM will_counts
		 WHERE user_id = $1 AND date = $2
		 `

	row := r.db.QueryRowContext(ctx, query, userID, date)
	rec, err := scanCount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, wrapDBError(err)
	}

	return rec, nil
}

func (r *Repository) CreateCount(ctx context.Context, rec *models.WillCount) (*models.WillCount, error) {
	ts, err := json.Marshal(rec.Timestamps)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	query :=
		`INSERT INTO will_counts (user_id, date, count, timestamps)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, user_id, date, count, timestamps, created_at, updated_at
		 `

	row := r.db.QueryRowContext(ctx, query, rec.UserID, rec.Date, rec.Count, ts)
	created, err := scanCount(row)
	if err != nil {
		return nil, wrapDBError(err)
	}

	return created, nil
}

func (r *Repository) IncrementCount(ctx context.Context, userID string) (*models.WillCount, error) {
	query :=
		`SELECT id, user_id, date, count, timestamps, created_at, updated_at
		 FROM increment_will_count($1)
		 `

	row := r.db.QueryRowContext(ctx, query, userID)
	rec, err := scanCount(row)
	if err != nil {
		return nil, wrapDBError(err)
	}

	return rec, nil
}

func (r *Repository) PatchCount(ctx context.Context, id string, count int, timestamps []string, updatedAt string) (*models.WillCount, error) {
	ts, err := json.Marshal(timestamps)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	query :=
		`UPDATE will_counts SET count = $2, timestamps = $3, updated_at = $4::timestamptz
		 WHERE id = $1
		 RETURNING id, user_id, date, count, timestamps, created_at, updated_at
		 `

	row := r.db.QueryRowContext(ctx, query, id, count, ts, updatedAt)
	rec, err := scanCount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, wrapDBError(err)
	}

	return rec, nil
}

func (r *Repository) ListCounts(ctx context.Context, userID, since string) ([]models.WillCount, error) {
	query :=
		`SELECT id, user_id, date, count, timestamps, created_at, updated_at FROM will_counts
		 WHERE user_id = $1 AND date >= $2
		 ORDER BY date DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	result := []models.WillCount{}
	for rows.Next() {
		rec, err := scanCount(rows)
		if err != nil {
			return nil, wrapDBError(err)
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err)
	}

	return result, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user      models.User
		createdAt time.Time
		lastLogin sql.NullTime
		prefs     []byte
	)

	err := row.Scan(&user.ID, &user.Auth0ID, &user.Email, &createdAt, &lastLogin, &prefs)
	if err != nil {
		return nil, err
	}

	user.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	if lastLogin.Valid {
		v := lastLogin.Time.UTC().Format(time.RFC3339)
		user.LastLogin = &v
	}
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &user.Preferences); err != nil {
			return nil, err
		}
	}
	if user.Preferences == nil {
		user.Preferences = models.DefaultPreferences()
	}

	return &user, nil
}

func scanCount(row rowScanner) (*models.WillCount, error) {
	var (
		rec       models.WillCount
		date      time.Time
		ts        []byte
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&rec.ID, &rec.UserID, &date, &rec.Count, &ts, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec.Date = date.Format("2006-01-02")
	rec.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	rec.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)

	rec.Timestamps = []string{}
	if len(ts) > 0 {
		if err := json.Unmarshal(ts, &rec.Timestamps); err != nil {
			return nil, err
		}
	}
	if rec.Timestamps == nil {
		rec.Timestamps = []string{}
	}

	return &rec, nil
}
