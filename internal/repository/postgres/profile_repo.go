package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-saas-backend/internal/domain"
	"go-saas-backend/pkg/apperror"
)

// PostgreSQL error codes
const (
	pgUniqueViolation = "23505"
)

const profileColumns = `id, email, name, is_admin, language, stripe_customer_id, subscription_status, created_at, updated_at`

type profileRepo struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) domain.ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Create(ctx context.Context, p *domain.Profile) error {
	query := `INSERT INTO profiles (id, email, name, is_admin, language, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query, p.ID, p.Email, p.Name, p.IsAdmin, p.Language, p.CreatedAt, p.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperror.Conflict("Profile for this user already exists")
		}
		return apperror.Internal(err)
	}
	return nil
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

func (r *profileRepo) GetByCustomerID(ctx context.Context, customerID string) (*domain.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE stripe_customer_id = $1`, customerID)
}

// getOne returns (nil, nil) when no row matches: profile absence is a valid
// state and must not surface as an error.
func (r *profileRepo) getOne(ctx context.Context, query string, arg interface{}) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.Email, &p.Name, &p.IsAdmin, &p.Language,
		&p.StripeCustomerID, &p.SubscriptionStatus, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) UpdateAttributes(ctx context.Context, id string, name, language *string) error {
	sets := []string{}
	args := []interface{}{id}

	if name != nil {
		args = append(args, *name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if language != nil {
		args = append(args, *language)
		sets = append(sets, fmt.Sprintf("language = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = now()")

	query := `UPDATE profiles SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	_, err := r.db.Exec(ctx, query, args...)
	return err
}

func (r *profileRepo) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	query := `UPDATE profiles SET is_admin = $2, updated_at = now() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, isAdmin)
	return err
}

func (r *profileRepo) SetStripeCustomerID(ctx context.Context, id string, customerID string) error {
	query := `UPDATE profiles SET stripe_customer_id = $2, updated_at = now() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, customerID)
	return err
}

func (r *profileRepo) SetSubscriptionStatus(ctx context.Context, id string, status string) error {
	query := `UPDATE profiles SET subscription_status = $2, updated_at = now() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// List fetches one page of profiles with the total count of the filtered set.
// The count runs before pagination so total is independent of the page window.
// Identities without a profile row are not visible here at all, under any
// filter; they only exist at the auth provider until signup or reconciliation
// writes their row.
func (r *profileRepo) List(ctx context.Context, q domain.ListUsersQuery) ([]domain.Profile, int64, error) {
	where := []string{}
	args := []interface{}{}

	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = append(where, fmt.Sprintf("(email ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}
	switch q.Role {
	case domain.RoleFilterAdmin:
		where = append(where, "is_admin = true")
	case domain.RoleFilterUser:
		where = append(where, "is_admin = false")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (q.Page - 1) * q.PerPage
	args = append(args, q.PerPage, offset)
	query := fmt.Sprintf(`SELECT %s FROM profiles%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		profileColumns, whereClause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	profiles, err := scanProfiles(rows)
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (r *profileRepo) All(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.db.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfiles(rows)
}

func scanProfiles(rows pgx.Rows) ([]domain.Profile, error) {
	profiles := []domain.Profile{}
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(
			&p.ID, &p.Email, &p.Name, &p.IsAdmin, &p.Language,
			&p.StripeCustomerID, &p.SubscriptionStatus, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Counts computes the dashboard counters against the given cutoffs. Each
// count is best-effort and defaults to zero on failure, so the dashboard
// stays available while the profiles table is missing or mid-migration.
func (r *profileRepo) Counts(ctx context.Context, cutoffs domain.StatsCutoffs) domain.UsageStats {
	var stats domain.UsageStats

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&stats.TotalUsers); err != nil {
		stats.TotalUsers = 0
	}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE created_at >= $1`, cutoffs.WeekAgo).Scan(&stats.NewUsersThisWeek); err != nil {
		stats.NewUsersThisWeek = 0
	}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE created_at >= $1`, cutoffs.MonthAgo).Scan(&stats.NewUsersThisMonth); err != nil {
		stats.NewUsersThisMonth = 0
	}

	// Coarse activity proxy: any profile touched since midnight UTC
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE updated_at >= $1`, cutoffs.StartOfToday).Scan(&stats.ActiveUsersToday); err != nil {
		stats.ActiveUsersToday = 0
	}

	return stats
}

// Upsert inserts a missing profile row or refreshes the denormalized email of
// an existing one. Application-owned attributes (is_admin, name, language) are
// never overwritten for existing rows.
func (r *profileRepo) Upsert(ctx context.Context, p *domain.Profile) error {
	query := `INSERT INTO profiles (id, email, name, is_admin, language, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email`
	_, err := r.db.Exec(ctx, query, p.ID, p.Email, p.Name, p.IsAdmin, p.Language, p.CreatedAt, p.UpdatedAt)
	return err
}
