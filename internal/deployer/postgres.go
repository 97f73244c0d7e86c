package deployer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

// PostgresRecordStore is the durable record store backend over the
// deployments table. One row per slug, upserted as the attempt progresses, so
// the latest attempt's state is always the one on record.
//
// The store borrows its pool from the caller and never closes it.
type PostgresRecordStore struct {
	pool *pgxpool.Pool
}

// NewPostgresRecordStore creates a record store over an existing connection
// pool and verifies the connection before returning.
func NewPostgresRecordStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresRecordStore, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("deployment database unreachable: %w", err)
	}
	return &PostgresRecordStore{pool: pool}, nil
}

// Get returns the stored record for the slug.
func (s *PostgresRecordStore) Get(ctx context.Context, slug string) (*api.DeploymentRecord, error) {
	const query = `SELECT slug, remote_instance_id, build_status, connection_endpoint,
			owner_credential_fingerprint, failure_message, created_at, last_polled_at
		FROM deployments
		WHERE slug = $1`

	var record api.DeploymentRecord
	var status string
	err := s.pool.QueryRow(ctx, query, slug).Scan(
		&record.Slug,
		&record.RemoteInstanceID,
		&status,
		&record.ConnectionEndpoint,
		&record.OwnerCredentialFingerprint,
		&record.FailureMessage,
		&record.CreatedAt,
		&record.LastPolledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, api.NewOperationError(api.ErrorKindNotFound,
			fmt.Sprintf("no deployment recorded for plugin %q", slug))
	}
	if err != nil {
		return nil, api.WrapOperationError(api.ErrorKindInternal, "read deployment record", err)
	}
	record.BuildStatus = api.DeploymentState(status)
	return &record, nil
}

// Put upserts the record under record.Slug.
func (s *PostgresRecordStore) Put(ctx context.Context, record *api.DeploymentRecord) error {
	if record == nil || record.Slug == "" {
		return api.NewOperationError(api.ErrorKindInternal, "deployment record must carry a slug")
	}

	const upsert = `INSERT INTO deployments (slug, remote_instance_id, build_status, connection_endpoint,
			owner_credential_fingerprint, failure_message, created_at, last_polled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (slug) DO UPDATE SET
			remote_instance_id = EXCLUDED.remote_instance_id,
			build_status = EXCLUDED.build_status,
			connection_endpoint = EXCLUDED.connection_endpoint,
			owner_credential_fingerprint = EXCLUDED.owner_credential_fingerprint,
			failure_message = EXCLUDED.failure_message,
			created_at = EXCLUDED.created_at,
			last_polled_at = EXCLUDED.last_polled_at`

	_, err := s.pool.Exec(ctx, upsert,
		record.Slug,
		record.RemoteInstanceID,
		string(record.BuildStatus),
		record.ConnectionEndpoint,
		record.OwnerCredentialFingerprint,
		record.FailureMessage,
		record.CreatedAt,
		record.LastPolledAt,
	)
	if err != nil {
		return api.WrapOperationError(api.ErrorKindInternal, "write deployment record", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresRecordStore) Close() error {
	return nil
}
