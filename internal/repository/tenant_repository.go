package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/guardian-portal-api/internal/models"
)

// TenantRepository reads the tenant directory: schools with their
// registrar tokens and the staff users allowed to query them.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository creates a new instance of TenantRepository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// FindSchoolByID returns a school by identifier.
func (r *TenantRepository) FindSchoolByID(ctx context.Context, id string) (*models.School, error) {
	const query = `SELECT id, name, upstream_token, active, created_at, updated_at FROM schools WHERE id = $1 LIMIT 1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find school by id: %w", err)
	}
	return &school, nil
}

// ListActiveSchoolIDs returns the ids of schools eligible for the
// periodic refresh loop.
func (r *TenantRepository) ListActiveSchoolIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM schools WHERE active = true ORDER BY id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list active schools: %w", err)
	}
	return ids, nil
}

// FindStaffByEmail returns a staff user by email address.
func (r *TenantRepository) FindStaffByEmail(ctx context.Context, email string) (*models.StaffUser, error) {
	const query = `SELECT id, school_id, email, password_hash, full_name, role, active, last_login, created_at, updated_at FROM staff_users WHERE email = $1 LIMIT 1`
	var user models.StaffUser
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff by email: %w", err)
	}
	return &user, nil
}

// FindStaffByID returns a staff user by identifier.
func (r *TenantRepository) FindStaffByID(ctx context.Context, id string) (*models.StaffUser, error) {
	const query = `SELECT id, school_id, email, password_hash, full_name, role, active, last_login, created_at, updated_at FROM staff_users WHERE id = $1 LIMIT 1`
	var user models.StaffUser
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff by id: %w", err)
	}
	return &user, nil
}

// UpdateStaffLastLogin updates the last_login timestamp for a staff user.
func (r *TenantRepository) UpdateStaffLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE staff_users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update staff last login: %w", err)
	}
	return nil
}
