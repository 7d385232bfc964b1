package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/enrollment"
)

const (
	profileColumns    = "id, full_name, phone, email, onboarding_stage, created_at, updated_at"
	enrollmentColumns = "id, user_id, track, plan_id, payment_status, paid_at, created_at"
)

// pendingCond matches every row whose status does not decode to paid, unknown legacy values included.
const pendingCond = "lower(trim(payment_status)) NOT IN (?)"

var profileOrdering = []core.DBOrdering{{Field: "created_at"}, {Field: "id"}}

type enrollmentRepository struct {
	db core.DBExecutor
}

// NewEnrollmentRepository returns a Repository over Postgres or SQLite.
// Queries use "?" placeholders and are rebound for the driver.
func NewEnrollmentRepository(db core.DBExecutor) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

// trapNoRowsErr maps "no rows" to enrollment.ErrNotFound
func (repo *enrollmentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return enrollment.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *enrollmentRepository) GetProfile(ctx context.Context, id string) (enrollment.Profile, error) {
	var p enrollment.Profile
	q := repo.db.Rebind("SELECT " + profileColumns + " FROM profiles WHERE id = ?")
	if err := repo.db.GetContext(ctx, &p, q, id); err != nil {
		return enrollment.Profile{}, repo.trapNoRowsErr(err, "finding profile by ID")
	}
	return p, nil
}

func (repo *enrollmentRepository) UpsertProfile(ctx context.Context, pu enrollment.ProfileUpdate) error {
	// absent fields never null out stored values
	q := repo.db.Rebind(`
INSERT INTO profiles (id, full_name, phone, email, onboarding_stage, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    full_name        = COALESCE(excluded.full_name, profiles.full_name),
    phone            = COALESCE(excluded.phone, profiles.phone),
    email            = COALESCE(excluded.email, profiles.email),
    onboarding_stage = COALESCE(excluded.onboarding_stage, profiles.onboarding_stage),
    updated_at       = excluded.updated_at`)

	now := pu.UpdatedAt.UTC()
	_, err := repo.db.ExecContext(ctx, q, pu.ID, pu.FullName, pu.Phone, pu.Email, pu.OnboardingStage, now, now)
	return errors.Wrap(err, "upserting profile")
}

func (repo *enrollmentRepository) ListProfiles(ctx context.Context, filter enrollment.QueryFilter) ([]enrollment.Profile, int, error) {
	var (
		where string
		args  []interface{}
	)
	if filter.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		where = ` WHERE (lower(full_name) LIKE ? ESCAPE '\' OR lower(email) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, repo.db.Rebind("SELECT COUNT(*) FROM profiles"+where), args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting profiles")
	}

	orderBy := make([]string, len(profileOrdering))
	for i, ord := range profileOrdering {
		orderBy[i] = ord.String()
	}
	q := repo.db.Rebind("SELECT " + profileColumns + " FROM profiles" + where +
		" ORDER BY " + strings.Join(orderBy, ", ") + " LIMIT ? OFFSET ?")

	profiles := make([]enrollment.Profile, 0, filter.PageSize)
	if err := repo.db.SelectContext(ctx, &profiles, q, append(args, filter.PageSize, filter.Offset())...); err != nil {
		return nil, 0, errors.Wrap(err, "listing profiles")
	}
	return profiles, total, nil
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	q := repo.db.Rebind(`
INSERT INTO enrollments (user_id, track, plan_id, payment_status, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`)

	e.CreatedAt = e.CreatedAt.UTC()
	if err := repo.db.QueryRowxContext(ctx, q, e.UserID, e.Track, e.PlanID, e.PaymentStatus, e.CreatedAt).Scan(&e.ID); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo *enrollmentRepository) LatestEnrollment(ctx context.Context, userID string) (enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	q := repo.db.Rebind("SELECT " + enrollmentColumns + " FROM enrollments WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1")
	if err := repo.db.GetContext(ctx, &e, q, userID); err != nil {
		return enrollment.Enrollment{}, repo.trapNoRowsErr(err, "finding latest enrollment")
	}
	return e, nil
}

func (repo *enrollmentRepository) LatestPendingEnrollment(ctx context.Context, userID string) (enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	q, args, err := sqlx.In("SELECT "+enrollmentColumns+" FROM enrollments WHERE user_id = ? AND "+pendingCond+" ORDER BY created_at DESC, id DESC LIMIT 1",
		userID, enrollment.CompletePaymentStatuses())
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "finding latest pending enrollment")
	}
	if err := repo.db.GetContext(ctx, &e, repo.db.Rebind(q), args...); err != nil {
		return enrollment.Enrollment{}, repo.trapNoRowsErr(err, "finding latest pending enrollment")
	}
	return e, nil
}

func (repo *enrollmentRepository) UpdateEnrollmentPayment(ctx context.Context, e enrollment.Enrollment) error {
	var paidAt interface{}
	if e.PaidAt != nil {
		paidAt = e.PaidAt.UTC()
	}
	q, args, err := sqlx.In("UPDATE enrollments SET payment_status = ?, plan_id = ?, paid_at = ? WHERE id = ? AND "+pendingCond,
		e.PaymentStatus, e.PlanID, paidAt, e.ID, enrollment.CompletePaymentStatuses())
	if err != nil {
		return errors.Wrap(err, "updating enrollment payment")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return errors.Wrap(err, "updating enrollment payment")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "updating enrollment payment")
	}
	if n == 0 {
		return enrollment.ErrNotFound
	}
	return nil
}

func (repo *enrollmentRepository) CreateRegistration(ctx context.Context, r enrollment.Registration) (enrollment.Registration, error) {
	q := repo.db.Rebind("INSERT INTO registrations (id, name, email, phone, track, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	r.CreatedAt = r.CreatedAt.UTC()
	if _, err := repo.db.ExecContext(ctx, q, r.ID, r.Name, r.Email, r.Phone, r.Track, r.CreatedAt); err != nil {
		return enrollment.Registration{}, errors.Wrap(err, "inserting registration")
	}
	return r, nil
}

func (repo *enrollmentRepository) LatestRegistrationByEmail(ctx context.Context, email string) (enrollment.Registration, error) {
	var r enrollment.Registration
	q := repo.db.Rebind("SELECT id, name, email, phone, track, created_at FROM registrations WHERE lower(email) = ? ORDER BY created_at DESC LIMIT 1")
	if err := repo.db.GetContext(ctx, &r, q, strings.ToLower(email)); err != nil {
		return enrollment.Registration{}, repo.trapNoRowsErr(err, "finding registration by email")
	}
	return r, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
