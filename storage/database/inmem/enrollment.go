package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) GetProfile(_ context.Context, id string) (enrollment.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.profiles[id]; ok {
		return copyProfile(*p), nil
	}
	return enrollment.Profile{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) UpsertProfile(_ context.Context, pu enrollment.ProfileUpdate) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, ok := repo.db.profiles[pu.ID]
	if !ok {
		p = &enrollment.Profile{ID: pu.ID, CreatedAt: pu.UpdatedAt}
		repo.db.profiles[pu.ID] = p
	}

	// only save set fields
	if pu.FullName != nil {
		p.FullName = strPtr(*pu.FullName)
	}
	if pu.Phone != nil {
		p.Phone = strPtr(*pu.Phone)
	}
	if pu.Email != nil {
		p.Email = strPtr(*pu.Email)
	}
	if pu.OnboardingStage != nil {
		p.OnboardingStage = *pu.OnboardingStage
	}
	p.UpdatedAt = pu.UpdatedAt
	return nil
}

func (repo *enrollmentRepository) ListProfiles(_ context.Context, filter enrollment.QueryFilter) ([]enrollment.Profile, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	profiles := make([]enrollment.Profile, 0, len(repo.db.profiles))
	for _, p := range repo.db.profiles {
		if search != "" &&
			!strings.Contains(strings.ToLower(core.StringVal(p.FullName)), search) &&
			!strings.Contains(strings.ToLower(core.StringVal(p.Email)), search) {
			continue
		}
		profiles = append(profiles, copyProfile(*p))
	}
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].CreatedAt.Equal(profiles[j].CreatedAt) {
			return profiles[i].ID > profiles[j].ID
		}
		return profiles[i].CreatedAt.After(profiles[j].CreatedAt)
	})

	total := len(profiles)
	from := filter.Offset()
	if from >= total {
		return []enrollment.Profile{}, total, nil
	}
	to := from + filter.PageSize
	if to > total {
		to = total
	}
	return profiles[from:to], total, nil
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.enrollmentPK++
	e.ID = repo.db.enrollmentPK
	// same decoding as the sql store's Scan
	e.PaymentStatus = enrollment.NormalizePaymentStatus(string(e.PaymentStatus))
	stored := copyEnrollment(e)
	repo.db.enrollments[e.ID] = &stored
	return e, nil
}

func (repo *enrollmentRepository) userEnrollments(userID string, pendingOnly bool) []enrollment.Enrollment {
	var out []enrollment.Enrollment
	for _, e := range repo.db.enrollments {
		if e.UserID != userID || (pendingOnly && e.PaymentStatus != enrollment.PaymentPending) {
			continue
		}
		out = append(out, copyEnrollment(*e))
	}
	return out
}

func (repo *enrollmentRepository) LatestEnrollment(_ context.Context, userID string) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e := enrollment.LatestEnrollment(repo.userEnrollments(userID, false)); e != nil {
		return *e, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) LatestPendingEnrollment(_ context.Context, userID string) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e := enrollment.LatestEnrollment(repo.userEnrollments(userID, true)); e != nil {
		return *e, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) UpdateEnrollmentPayment(_ context.Context, e enrollment.Enrollment) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.enrollments[e.ID]
	if !ok || orig.PaymentStatus != enrollment.PaymentPending {
		return enrollment.ErrNotFound
	}
	updated := copyEnrollment(e)
	orig.PaymentStatus = updated.PaymentStatus
	orig.PlanID = updated.PlanID
	orig.PaidAt = updated.PaidAt
	return nil
}

func (repo *enrollmentRepository) CreateRegistration(_ context.Context, r enrollment.Registration) (enrollment.Registration, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.registrations = append(repo.db.registrations, r)
	return r, nil
}

func (repo *enrollmentRepository) LatestRegistrationByEmail(_ context.Context, email string) (enrollment.Registration, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var (
		latest enrollment.Registration
		found  bool
	)
	for _, r := range repo.db.registrations {
		if !strings.EqualFold(r.Email, email) {
			continue
		}
		if !found || !r.CreatedAt.Before(latest.CreatedAt) {
			latest, found = r, true
		}
	}
	if !found {
		return enrollment.Registration{}, enrollment.ErrNotFound
	}
	return latest, nil
}

func copyProfile(p enrollment.Profile) enrollment.Profile {
	p.FullName = copyStr(p.FullName)
	p.Phone = copyStr(p.Phone)
	p.Email = copyStr(p.Email)
	return p
}

func copyEnrollment(e enrollment.Enrollment) enrollment.Enrollment {
	e.PlanID = copyStr(e.PlanID)
	if e.PaidAt != nil {
		t := *e.PaidAt
		e.PaidAt = &t
	}
	return e
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	return strPtr(*s)
}

func strPtr(s string) *string { return &s }
