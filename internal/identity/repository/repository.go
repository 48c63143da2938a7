package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/nostrid/nip05-registry/internal/common/db"
	"github.com/nostrid/nip05-registry/internal/identity/domain"
)

type Repository interface {
	Create(ctx context.Context, identity domain.Identity) error
	FindByUsername(ctx context.Context, username string) (domain.Identity, error)
	FindByPublicKey(ctx context.Context, publicKey string) (domain.Identity, error)
	List(ctx context.Context) ([]domain.Identity, error)
	UsernameTakenByOther(ctx context.Context, username, publicKey string) (bool, error)
	UpdateByPublicKey(ctx context.Context, identity domain.Identity) (int64, error)
	DeleteByPublicKey(ctx context.Context, publicKey string) (int64, error)

	CountUsers(ctx context.Context) (int64, error)
	CountWithRelays(ctx context.Context) (int64, error)
	CountWithLightningAddress(ctx context.Context) (int64, error)
	RegistrationsByDay(ctx context.Context, since time.Time) ([]DayCount, error)
}

type DayCount struct {
	Day   time.Time
	Count int64
}

var (
	ErrNotFound        = errors.New("identity not found")
	ErrUsernameExists  = errors.New("username already exists")
	ErrPublicKeyExists = errors.New("public key already registered")
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const identityColumns = `username, public_key, name, lightning_address, relays, created_at, updated_at, metadata_updated_at`

func (r *PgRepository) Create(ctx context.Context, identity domain.Identity) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO registered_users (username, public_key, name, lightning_address, relays, created_at, updated_at, metadata_updated_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $6, $6)`,
		identity.Username,
		identity.PublicKey,
		identity.Name,
		identity.LightningAddress,
		identity.Relays,
		identity.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "registered_users_public_key_key" {
				return ErrPublicKeyExists
			}
			return ErrUsernameExists
		}
		return db.HandleExecError(err, "create identity", start)
	}
	return db.HandleExecError(nil, "create identity", start)
}

func (r *PgRepository) FindByUsername(ctx context.Context, username string) (domain.Identity, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+identityColumns+` FROM registered_users WHERE username = $1`,
		username,
	)
	return scanIdentity(row, "find identity by username", start)
}

func (r *PgRepository) FindByPublicKey(ctx context.Context, publicKey string) (domain.Identity, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+identityColumns+` FROM registered_users WHERE public_key = $1`,
		publicKey,
	)
	return scanIdentity(row, "find identity by public key", start)
}

func (r *PgRepository) List(ctx context.Context) ([]domain.Identity, error) {
	start := time.Now()
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+identityColumns+` FROM registered_users ORDER BY username`,
	)
	if err != nil {
		return nil, db.HandleQueryError(err, ErrNotFound, "list identities", start)
	}
	defer rows.Close()

	var identities []domain.Identity
	for rows.Next() {
		identity, err := scanIdentityRow(rows)
		if err != nil {
			return nil, db.HandleQueryError(err, ErrNotFound, "list identities", start)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, db.HandleQueryError(err, ErrNotFound, "list identities", start)
	}
	return identities, db.HandleQueryError(nil, ErrNotFound, "list identities", start)
}

func (r *PgRepository) UsernameTakenByOther(ctx context.Context, username, publicKey string) (bool, error) {
	start := time.Now()
	var taken bool
	err := r.pool.QueryRow(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM registered_users WHERE username = $1 AND public_key <> $2)`,
		username,
		publicKey,
	).Scan(&taken)
	if err := db.HandleQueryError(err, ErrNotFound, "check username taken", start); err != nil {
		return false, err
	}
	return taken, nil
}

func (r *PgRepository) UpdateByPublicKey(ctx context.Context, identity domain.Identity) (int64, error) {
	start := time.Now()
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE registered_users
		 SET username = $1,
		     lightning_address = NULLIF($2, ''),
		     relays = $3,
		     updated_at = $4,
		     metadata_updated_at = $4
		 WHERE public_key = $5`,
		identity.Username,
		identity.LightningAddress,
		identity.Relays,
		identity.MetadataUpdatedAt,
		identity.PublicKey,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrUsernameExists
		}
		return 0, db.HandleExecError(err, "update identity", start)
	}
	return tag.RowsAffected(), db.HandleExecError(nil, "update identity", start)
}

func (r *PgRepository) DeleteByPublicKey(ctx context.Context, publicKey string) (int64, error) {
	start := time.Now()
	tag, err := r.pool.Exec(
		ctx,
		`DELETE FROM registered_users WHERE public_key = $1`,
		publicKey,
	)
	if err != nil {
		return 0, db.HandleExecError(err, "delete identity", start)
	}
	return tag.RowsAffected(), db.HandleExecError(nil, "delete identity", start)
}

func (r *PgRepository) CountUsers(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM registered_users`, "count users")
}

func (r *PgRepository) CountWithRelays(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM registered_users WHERE relays IS NOT NULL AND cardinality(relays) > 0`, "count users with relays")
}

func (r *PgRepository) CountWithLightningAddress(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM registered_users WHERE lightning_address IS NOT NULL`, "count users with lightning address")
}

func (r *PgRepository) count(ctx context.Context, query, operation string) (int64, error) {
	start := time.Now()
	var n int64
	err := r.pool.QueryRow(ctx, query).Scan(&n)
	if err := db.HandleQueryError(err, ErrNotFound, operation, start); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PgRepository) RegistrationsByDay(ctx context.Context, since time.Time) ([]DayCount, error) {
	start := time.Now()
	rows, err := r.pool.Query(
		ctx,
		`SELECT date_trunc('day', created_at) AS day, COUNT(*)
		 FROM registered_users
		 WHERE created_at >= $1
		 GROUP BY day
		 ORDER BY day`,
		since,
	)
	if err != nil {
		return nil, db.HandleQueryError(err, ErrNotFound, "registrations by day", start)
	}
	defer rows.Close()

	var counts []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, db.HandleQueryError(err, ErrNotFound, "registrations by day", start)
		}
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, db.HandleQueryError(err, ErrNotFound, "registrations by day", start)
	}
	return counts, db.HandleQueryError(nil, ErrNotFound, "registrations by day", start)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIdentity(row pgx.Row, operation string, start time.Time) (domain.Identity, error) {
	identity, err := scanIdentityRow(row)
	if err := db.HandleQueryError(err, ErrNotFound, operation, start); err != nil {
		return domain.Identity{}, err
	}
	return identity, nil
}

func scanIdentityRow(row rowScanner) (domain.Identity, error) {
	var identity domain.Identity
	var name, lightningAddress *string
	var relays []string

	err := row.Scan(
		&identity.Username,
		&identity.PublicKey,
		&name,
		&lightningAddress,
		&relays,
		&identity.CreatedAt,
		&identity.UpdatedAt,
		&identity.MetadataUpdatedAt,
	)
	if err != nil {
		return domain.Identity{}, err
	}

	if name != nil {
		identity.Name = *name
	}
	if lightningAddress != nil {
		identity.LightningAddress = *lightningAddress
	}
	identity.Relays = relays

	return identity, nil
}
