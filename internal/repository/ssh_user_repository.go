package repository

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const createSSHUsersTable = `
CREATE TABLE IF NOT EXISTS ssh_users (
    id          BIGSERIAL   PRIMARY KEY,
    username    TEXT        NOT NULL UNIQUE,
    fingerprint TEXT        NOT NULL UNIQUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_login  TIMESTAMPTZ
);
`

// SSHUser is an authorized dashboard user, keyed by SSH public key
// fingerprint.
type SSHUser struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Fingerprint string     `json:"fingerprint"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

type SSHUserRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSSHUserRepository(pool PgxPool, tracer trace.Tracer) *SSHUserRepository {
	return &SSHUserRepository{pool: pool, tracer: tracer}
}

func (r *SSHUserRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "ssh-user-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createSSHUsersTable)
	return err
}

// FindByFingerprint returns the user owning a key fingerprint, or nil when
// no user matches.
func (r *SSHUserRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*SSHUser, error) {
	ctx, span := r.tracer.Start(ctx, "ssh-user-repo.find-by-fingerprint")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, username, fingerprint, created_at, last_login
		 FROM ssh_users WHERE fingerprint = $1`,
		fingerprint,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var user SSHUser
	if err := rows.Scan(&user.ID, &user.Username, &user.Fingerprint, &user.CreatedAt, &user.LastLogin); err != nil {
		return nil, err
	}
	return &user, rows.Err()
}

func (r *SSHUserRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	ctx, span := r.tracer.Start(ctx, "ssh-user-repo.update-last-login")
	defer span.End()

	_, err := r.pool.Exec(ctx, `UPDATE ssh_users SET last_login = now() WHERE id = $1`, userID)
	return err
}
