package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MrJamesThe3rd/feeflow/internal/routing"
	"github.com/MrJamesThe3rd/feeflow/internal/storage"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// ActiveSettings picks the primary entry of the organization, falling back to
// the most recently updated active one.
func (s *Store) ActiveSettings(ctx context.Context, organizationID string) (*routing.Settings, error) {
	query := `
		SELECT organization_id, payee_address, display_name, is_primary
		FROM routing_settings
		WHERE organization_id = $1 AND is_active
		ORDER BY is_primary DESC, updated_at DESC
		LIMIT 1
	`

	var rs routing.Settings

	err := s.db.QueryRowContext(ctx, query, organizationID).Scan(
		&rs.OrganizationID, &rs.PayeeAddress, &rs.DisplayName, &rs.Primary,
	)
	if err != nil {
		return nil, storage.Classify("getting routing settings", err)
	}

	return &rs, nil
}

// UpsertSettings replaces the primary settings of the organization.
func (s *Store) UpsertSettings(ctx context.Context, rs routing.Settings) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Classify("beginning transaction", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx,
		`UPDATE routing_settings SET is_primary = FALSE, updated_at = NOW() WHERE organization_id = $1 AND is_primary`,
		rs.OrganizationID,
	); err != nil {
		return storage.Classify("demoting routing settings", err)
	}

	query := `
		INSERT INTO routing_settings (organization_id, payee_address, display_name, is_primary, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, TRUE, NOW(), NOW())
	`
	if _, err := dbTx.ExecContext(ctx, query, rs.OrganizationID, rs.PayeeAddress, rs.DisplayName); err != nil {
		return storage.Classify("inserting routing settings", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
