package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipebox/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a profile row does not exist.
var ErrNotFound = errors.New("not found")

// ProfileRepository reads and writes user_profiles.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*model.BillingProfile, error)
	// FindUserByCustomerID returns "" when no profile is linked to customerID.
	FindUserByCustomerID(ctx context.Context, customerID string) (string, error)
	// FindUserByEmail matches case-insensitively and returns "" when nothing matches.
	FindUserByEmail(ctx context.Context, email string) (string, error)
	// UpsertProfileStub creates an empty profile for userID if none exists.
	UpsertProfileStub(ctx context.Context, userID, email string) error
	UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) error
	// UpdateProfileReduced writes only plan_tier, subscription_status and pro_expires_at.
	UpdateProfileReduced(ctx context.Context, userID string, patch model.ProfilePatch) error
	UpdateProfileDetails(ctx context.Context, userID string, details model.ProfileDetails) (*model.BillingProfile, error)
	SetStripeCustomerID(ctx context.Context, userID, customerID string) error
	// ListLinkedProfiles returns profiles that carry a Stripe subscription id.
	ListLinkedProfiles(ctx context.Context, limit, offset int) ([]model.BillingProfile, error)
}

type profileRepo struct {
	pool *pgxpool.Pool
}

// NewProfileRepo creates a new ProfileRepository.
func NewProfileRepo(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepo{pool: pool}
}

const profileColumns = `
        user_id, email, display_name, bio, plan_tier, subscription_status, pro_expires_at,
        stripe_customer_id, stripe_subscription_id, stripe_price_id, stripe_current_period_end,
        created_at, updated_at`

func scanProfile(row pgx.Row) (*model.BillingProfile, error) {
	var p model.BillingProfile
	err := row.Scan(
		&p.UserID,
		&p.Email,
		&p.DisplayName,
		&p.Bio,
		&p.PlanTier,
		&p.SubscriptionStatus,
		&p.ProExpiresAt,
		&p.StripeCustomerID,
		&p.StripeSubscriptionID,
		&p.StripePriceID,
		&p.StripeCurrentPeriodEnd,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) GetProfile(ctx context.Context, userID string) (*model.BillingProfile, error) {
	q := `SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = $1`
	p, err := scanProfile(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch profile for user %s: %w", userID, err)
	}
	return p, nil
}

func (r *profileRepo) FindUserByCustomerID(ctx context.Context, customerID string) (string, error) {
	const q = `SELECT user_id FROM user_profiles WHERE stripe_customer_id = $1 LIMIT 1`
	return r.findUserID(ctx, q, customerID)
}

func (r *profileRepo) FindUserByEmail(ctx context.Context, email string) (string, error) {
	const q = `SELECT user_id FROM user_profiles WHERE lower(email) = $1 ORDER BY created_at LIMIT 1`
	return r.findUserID(ctx, q, strings.ToLower(strings.TrimSpace(email)))
}

func (r *profileRepo) findUserID(ctx context.Context, q, arg string) (string, error) {
	var userID string
	if err := r.pool.QueryRow(ctx, q, arg).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	return userID, nil
}

func (r *profileRepo) UpsertProfileStub(ctx context.Context, userID, email string) error {
	const q = `
        INSERT INTO user_profiles (user_id, email, plan_tier, subscription_status, created_at, updated_at)
        VALUES ($1, $2, 'free', 'inactive', NOW(), NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET email = CASE WHEN user_profiles.email = '' THEN EXCLUDED.email ELSE user_profiles.email END
    `
	if _, err := r.pool.Exec(ctx, q, userID, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return fmt.Errorf("upsert profile stub for user %s: %w", userID, err)
	}
	return nil
}

func (r *profileRepo) UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) error {
	const q = `
        UPDATE user_profiles
        SET plan_tier = $2,
            subscription_status = $3,
            pro_expires_at = $4,
            stripe_customer_id = COALESCE($5, stripe_customer_id),
            stripe_subscription_id = COALESCE($6, stripe_subscription_id),
            stripe_price_id = COALESCE($7, stripe_price_id),
            stripe_current_period_end = COALESCE($8, stripe_current_period_end),
            updated_at = NOW()
        WHERE user_id = $1
    `
	_, err := r.pool.Exec(ctx, q,
		userID,
		string(patch.PlanTier),
		string(patch.SubscriptionStatus),
		patch.ProExpiresAt,
		patch.StripeCustomerID,
		patch.StripeSubscriptionID,
		patch.StripePriceID,
		patch.StripeCurrentPeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("update billing profile for user %s: %w", userID, err)
	}
	return nil
}

func (r *profileRepo) UpdateProfileReduced(ctx context.Context, userID string, patch model.ProfilePatch) error {
	const q = `
        UPDATE user_profiles
        SET plan_tier = $2,
            subscription_status = $3,
            pro_expires_at = $4
        WHERE user_id = $1
    `
	_, err := r.pool.Exec(ctx, q, userID, string(patch.PlanTier), string(patch.SubscriptionStatus), patch.ProExpiresAt)
	if err != nil {
		return fmt.Errorf("update core billing columns for user %s: %w", userID, err)
	}
	return nil
}

func (r *profileRepo) UpdateProfileDetails(ctx context.Context, userID string, details model.ProfileDetails) (*model.BillingProfile, error) {
	q := `
        UPDATE user_profiles
        SET display_name = COALESCE($2, display_name),
            bio = COALESCE($3, bio),
            updated_at = NOW()
        WHERE user_id = $1
        RETURNING ` + profileColumns
	p, err := scanProfile(r.pool.QueryRow(ctx, q, userID, details.DisplayName, details.Bio))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update profile details for user %s: %w", userID, err)
	}
	return p, nil
}

func (r *profileRepo) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	const q = `UPDATE user_profiles SET stripe_customer_id = $2, updated_at = NOW() WHERE user_id = $1`
	tag, err := r.pool.Exec(ctx, q, userID, customerID)
	if err != nil {
		return fmt.Errorf("store stripe customer id for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepo) ListLinkedProfiles(ctx context.Context, limit, offset int) ([]model.BillingProfile, error) {
	q := `SELECT ` + profileColumns + `
        FROM user_profiles
        WHERE stripe_subscription_id IS NOT NULL
        ORDER BY user_id
        LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list linked profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.BillingProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan linked profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate linked profiles: %w", err)
	}
	return profiles, nil
}
