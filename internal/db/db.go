package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool for user, stats and moderation operations.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a DB handle.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgx pool.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// SafeName нормализует имя пользователя для поиска без учёта регистра.
func SafeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// User — строка таблицы users вместе со связями.
type User struct {
	ID            int32
	Name          string
	Bcrypt        string
	Country       string
	Permissions   int32
	Restricted    bool
	Activated     bool
	PreferredMode uint8
	SilenceEnd    time.Time
	FriendonlyDMs bool

	Stats         []Stats
	Relationships []Relationship
}

// Stats — строка статистики одного режима.
type Stats struct {
	UserID      int32
	Mode        uint8
	Rank        int32
	Performance int16
	RankedScore int64
	TotalScore  int64
	Accuracy    float32
	Playcount   int32
}

// Relationship — дружба (status=0) или блокировка (status=1).
type Relationship struct {
	UserID   int32
	TargetID int32
	Status   int16
}

const userColumns = `id, name, bcrypt, country, permissions, restricted, activated,
	 preferred_mode, silence_end, friendonly_dms`

func (d *DB) fetchUser(ctx context.Context, cond string, args ...any) (*User, error) {
	var u User
	err := d.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+cond, args...,
	).Scan(
		&u.ID, &u.Name, &u.Bcrypt, &u.Country, &u.Permissions, &u.Restricted,
		&u.Activated, &u.PreferredMode, &u.SilenceEnd, &u.FriendonlyDMs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	if u.Stats, err = d.FetchStats(ctx, u.ID); err != nil {
		return nil, err
	}
	if u.Relationships, err = d.fetchRelationships(ctx, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

// UserByID retrieves a user by id. Returns nil, nil when absent.
func (d *DB) UserByID(ctx context.Context, id int32) (*User, error) {
	return d.fetchUser(ctx, `id = $1`, id)
}

// UserByName retrieves a user by name (case-insensitive safe name).
// Returns nil, nil when absent.
func (d *DB) UserByName(ctx context.Context, name string) (*User, error) {
	return d.fetchUser(ctx, `safe_name = $1`, SafeName(name))
}

// UpdateUser applies column updates to a user row.
func (d *DB) UpdateUser(ctx context.Context, id int32, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	set := make([]string, 0, len(updates))
	args := make([]any, 0, len(updates)+1)
	args = append(args, id)
	for col, val := range updates {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	_, err := d.pool.Exec(ctx,
		`UPDATE users SET `+strings.Join(set, ", ")+` WHERE id = $1`, args...,
	)
	if err != nil {
		return fmt.Errorf("updating user %d: %w", id, err)
	}
	return nil
}

// FetchStats loads all per-mode stats rows of a user.
func (d *DB) FetchStats(ctx context.Context, userID int32) ([]Stats, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT user_id, mode, rank, pp, rscore, tscore, acc, playcount
		 FROM stats WHERE user_id = $1 ORDER BY mode`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying stats for user %d: %w", userID, err)
	}
	defer rows.Close()

	out := make([]Stats, 0, 4)
	for rows.Next() {
		var s Stats
		if err := rows.Scan(
			&s.UserID, &s.Mode, &s.Rank, &s.Performance,
			&s.RankedScore, &s.TotalScore, &s.Accuracy, &s.Playcount,
		); err != nil {
			return nil, fmt.Errorf("scanning stats row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateStats inserts an empty stats row for one mode.
func (d *DB) CreateStats(ctx context.Context, userID int32, mode uint8) (Stats, error) {
	s := Stats{UserID: userID, Mode: mode}
	_, err := d.pool.Exec(ctx,
		`INSERT INTO stats (user_id, mode, rank, pp, rscore, tscore, acc, playcount)
		 VALUES ($1, $2, 0, 0, 0, 0, 0, 0)
		 ON CONFLICT (user_id, mode) DO NOTHING`,
		userID, mode,
	)
	if err != nil {
		return s, fmt.Errorf("creating stats for user %d mode %d: %w", userID, mode, err)
	}
	return s, nil
}

// UpdateStats applies column updates to one stats row.
func (d *DB) UpdateStats(ctx context.Context, userID int32, mode uint8, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	set := make([]string, 0, len(updates))
	args := make([]any, 0, len(updates)+2)
	args = append(args, userID, mode)
	for col, val := range updates {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	_, err := d.pool.Exec(ctx,
		`UPDATE stats SET `+strings.Join(set, ", ")+` WHERE user_id = $1 AND mode = $2`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("updating stats for user %d mode %d: %w", userID, mode, err)
	}
	return nil
}

func (d *DB) fetchRelationships(ctx context.Context, userID int32) ([]Relationship, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT user_id, target_id, status
		 FROM relationships WHERE user_id = $1 ORDER BY target_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying relationships for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []Relationship
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.UserID, &r.TargetID, &r.Status); err != nil {
			return nil, fmt.Errorf("scanning relationship row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddRelationship inserts a friend row, ignoring duplicates.
func (d *DB) AddRelationship(ctx context.Context, userID, targetID int32) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO relationships (user_id, target_id, status)
		 VALUES ($1, $2, 0) ON CONFLICT DO NOTHING`,
		userID, targetID,
	)
	if err != nil {
		return fmt.Errorf("adding relationship %d -> %d: %w", userID, targetID, err)
	}
	return nil
}

// RemoveRelationship deletes a friend row.
func (d *DB) RemoveRelationship(ctx context.Context, userID, targetID int32) error {
	_, err := d.pool.Exec(ctx,
		`DELETE FROM relationships WHERE user_id = $1 AND target_id = $2`,
		userID, targetID,
	)
	if err != nil {
		return fmt.Errorf("removing relationship %d -> %d: %w", userID, targetID, err)
	}
	return nil
}

// HideScores marks every score of a user as hidden (restriction path).
func (d *DB) HideScores(ctx context.Context, userID int32) error {
	_, err := d.pool.Exec(ctx,
		`UPDATE scores SET hidden = TRUE WHERE user_id = $1`, userID,
	)
	if err != nil {
		return fmt.Errorf("hiding scores of user %d: %w", userID, err)
	}
	return nil
}

// UpdateClients applies column updates to all hardware rows of a user.
func (d *DB) UpdateClients(ctx context.Context, userID int32, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	set := make([]string, 0, len(updates))
	args := make([]any, 0, len(updates)+1)
	args = append(args, userID)
	for col, val := range updates {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	_, err := d.pool.Exec(ctx,
		`UPDATE clients SET `+strings.Join(set, ", ")+` WHERE user_id = $1`, args...,
	)
	if err != nil {
		return fmt.Errorf("updating clients of user %d: %w", userID, err)
	}
	return nil
}

// CreateInfringement records a silence (action=1) or restriction (action=0).
func (d *DB) CreateInfringement(
	ctx context.Context,
	userID int32,
	action int16,
	length *time.Time,
	description string,
	permanent bool,
) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO infringements (user_id, action, length, description, is_permanent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, action, length, description, permanent, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("creating infringement for user %d: %w", userID, err)
	}
	return nil
}

// UpdateRankHistory appends today's rank of a user in one mode.
func (d *DB) UpdateRankHistory(ctx context.Context, userID int32, mode uint8, rank int32, country string) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO rank_history (user_id, mode, rank, country, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, mode, rank, country, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("updating rank history of user %d: %w", userID, err)
	}
	return nil
}
