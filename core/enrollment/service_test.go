package enrollment_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/enrollment"
	"github.com/eduflick/backend/core/identity"
	"github.com/eduflick/backend/core/payment"
	inmemdb "github.com/eduflick/backend/storage/database/inmem"
	testutil "github.com/eduflick/backend/tests"
)

var errStoreDown = errors.New("store unavailable")

// flakyRepo fails the configured operations.
type flakyRepo struct {
	enrollment.Repository
	failUpsert, failGetProfile, failLatest, failUpdatePayment bool
	upserts                                                   int
}

func (r *flakyRepo) UpsertProfile(ctx context.Context, pu enrollment.ProfileUpdate) error {
	r.upserts++
	if r.failUpsert {
		return errStoreDown
	}
	return r.Repository.UpsertProfile(ctx, pu)
}

func (r *flakyRepo) GetProfile(ctx context.Context, id string) (enrollment.Profile, error) {
	if r.failGetProfile {
		return enrollment.Profile{}, errStoreDown
	}
	return r.Repository.GetProfile(ctx, id)
}

func (r *flakyRepo) LatestEnrollment(ctx context.Context, userID string) (enrollment.Enrollment, error) {
	if r.failLatest {
		return enrollment.Enrollment{}, errStoreDown
	}
	return r.Repository.LatestEnrollment(ctx, userID)
}

func (r *flakyRepo) UpdateEnrollmentPayment(ctx context.Context, e enrollment.Enrollment) error {
	if r.failUpdatePayment {
		return errStoreDown
	}
	return r.Repository.UpdateEnrollmentPayment(ctx, e)
}

type fixture struct {
	repo   *flakyRepo
	svc    enrollment.Service
	logger *testutil.Logger
	mailer *testutil.Mailer
	conf   *core.Config
}

func newFixture() *fixture {
	f := &fixture{
		repo:   &flakyRepo{Repository: inmemdb.NewEnrollmentRepository(inmemdb.Open())},
		logger: &testutil.Logger{},
		mailer: &testutil.Mailer{},
		conf:   core.NewTestConfig(),
	}
	f.svc = enrollment.NewService(f.repo, f.mailer, f.logger, f.conf)
	return f
}

func session(id, email string, meta ...map[string]interface{}) *identity.Session {
	s := &identity.Session{UserID: id, Email: email}
	if len(meta) > 0 {
		s.Metadata = meta[0]
	}
	return s
}

func TestServiceRegister(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, enrollment.RegisterRequest{Name: "Asha Rao", Email: "asha@example.com", Track: enrollment.TrackContent})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.ID)
	assert.Nil(t, reg.Phone)

	got, err := f.repo.LatestRegistrationByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", got.Name)
}

func TestServiceEnroll(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending enrollment and moves the stage", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		enr, err := f.svc.Enroll(ctx, enrollment.EnrollRequest{UserID: uid, Name: "Asha Rao", Track: enrollment.TrackSoftware, PlanID: "pro"})
		require.NoError(t, err)
		assert.Equal(t, enrollment.PaymentPending, enr.PaymentStatus)
		assert.Equal(t, "pro", *enr.PlanID)

		p, err := f.repo.GetProfile(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, "Asha Rao", *p.FullName)
		assert.Equal(t, enrollment.StagePaymentPending, p.OnboardingStage)
	})

	t.Run("unknown profile without details", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Enroll(ctx, enrollment.EnrollRequest{UserID: testutil.NewUserID(), Track: enrollment.TrackSoftware})
		assert.Equal(t, enrollment.ErrNotFound, errors.Cause(err))
	})

	t.Run("existing profile keeps its details", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		testutil.CreateProfile(t, f.repo, uid, "Asha Rao", "asha@example.com", enrollment.StageNone)

		_, err := f.svc.Enroll(ctx, enrollment.EnrollRequest{UserID: uid, Phone: "+91 98765 43210", Track: enrollment.TrackContent})
		require.NoError(t, err)
		p, _ := f.repo.GetProfile(ctx, uid)
		assert.Equal(t, "Asha Rao", *p.FullName)
		assert.Equal(t, "+91 98765 43210", *p.Phone)
	})

	t.Run("stage update failure is reported", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		testutil.CreateProfile(t, f.repo, uid, "Asha Rao", "", enrollment.StageNone)
		f.repo.failUpsert = true

		_, err := f.svc.Enroll(ctx, enrollment.EnrollRequest{UserID: uid, Track: enrollment.TrackContent})
		assert.Equal(t, errStoreDown, errors.Cause(err))
		// the enrollment itself stays: no transaction spans the writes
		_, err = f.repo.LatestEnrollment(ctx, uid)
		assert.NoError(t, err)
	})
}

func TestServiceMarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("latest pending row is paid", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		testutil.CreateProfile(t, f.repo, uid, "Asha Rao", "asha@example.com", enrollment.StagePaymentPending)
		now := time.Now().UTC()
		older := testutil.CreateEnrollment(t, f.repo, uid, enrollment.TrackContent, enrollment.PaymentPending, now.Add(-time.Hour))
		newer := testutil.CreateEnrollment(t, f.repo, uid, enrollment.TrackSoftware, enrollment.PaymentPending, now)

		enr, err := f.svc.MarkPaid(ctx, enrollment.MarkPaidRequest{UserID: uid, PlanID: "premium"})
		require.NoError(t, err)
		assert.Equal(t, newer.ID, enr.ID)
		assert.Equal(t, enrollment.PaymentPaid, enr.PaymentStatus)
		require.NotNil(t, enr.PaidAt)

		pending, err := f.repo.LatestPendingEnrollment(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, older.ID, pending.ID)

		sent := f.mailer.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "asha@example.com", sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, "Premium")
		assert.Contains(t, sent[0].TextContent, "₹1,499")
		assert.Contains(t, sent[0].HTMLContent, "AI Software")
	})

	t.Run("nothing pending", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		testutil.CreateEnrollment(t, f.repo, uid, enrollment.TrackContent, enrollment.PaymentPaid)

		_, err := f.svc.MarkPaid(ctx, enrollment.MarkPaidRequest{UserID: uid, PlanID: "basic"})
		assert.Equal(t, enrollment.ErrNoPendingEnrollment, err)
	})

	t.Run("email failure does not fail the update", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		testutil.CreateEnrollment(t, f.repo, uid, enrollment.TrackContent, enrollment.PaymentPending)

		// no profile: the confirmation cannot be addressed
		_, err := f.svc.MarkPaid(ctx, enrollment.MarkPaidRequest{UserID: uid, PlanID: "basic"})
		require.NoError(t, err)
		assert.True(t, f.logger.Has("warn", "enrollment confirmation email"), f.logger.String())
		assert.Empty(t, f.mailer.Sent())
	})
}

func TestServiceResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		f := newFixture()
		flow := f.svc.Resolve(ctx, nil, "/dashboard")
		assert.Equal(t, enrollment.PageSignIn, flow.Destination.Page)
		assert.Equal(t, "/signin?next=%2Fdashboard", flow.Destination.URL)
	})

	t.Run("store failure fails closed", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		testutil.CreateEnrollment(t, f.repo, uid, enrollment.TrackContent, enrollment.PaymentPaid)
		f.repo.failLatest = true

		flow := f.svc.Resolve(ctx, session(uid, "asha@example.com"), "/dashboard")
		assert.Equal(t, enrollment.PageSignIn, flow.Destination.Page)
		assert.True(t, f.logger.Has("error", "loading enrollment"))

		f.repo.failLatest, f.repo.failGetProfile = false, true
		flow = f.svc.Resolve(ctx, session(uid, "asha@example.com"), "/dashboard")
		assert.Equal(t, enrollment.PageSignIn, flow.Destination.Page)
	})

	t.Run("latest enrollment decides", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		now := time.Now().UTC()
		testutil.CreateEnrollment(t, f.repo, uid, enrollment.TrackContent, enrollment.PaymentPending, now)
		testutil.CreateEnrollment(t, f.repo, uid, enrollment.TrackContent, enrollment.PaymentPaid, now.Add(-time.Minute))

		flow := f.svc.Resolve(ctx, session(uid, ""), "/dashboard")
		assert.Equal(t, enrollment.PagePayment, flow.Destination.Page)
	})

	t.Run("active stage wins over pending status", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		testutil.CreateProfile(t, f.repo, uid, "Asha Rao", "asha@example.com", enrollment.StageActive)
		testutil.CreateEnrollment(t, f.repo, uid, enrollment.TrackContent, enrollment.PaymentPending)

		flow := f.svc.Resolve(ctx, session(uid, "asha@example.com"), "/register")
		assert.Equal(t, enrollment.PageDashboard, flow.Destination.Page)
		assert.Equal(t, "Asha Rao", flow.DisplayName)
	})

	t.Run("backfills name from metadata and syncs email", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		testutil.CreateProfile(t, f.repo, uid, "", "old@example.com", enrollment.StageNone)

		flow := f.svc.Resolve(ctx, session(uid, "new@example.com", map[string]interface{}{"given_name": "Asha", "family_name": "Rao"}), "/register")
		assert.Equal(t, enrollment.PageRegister, flow.Destination.Page)
		assert.Equal(t, "Asha Rao", flow.DisplayName)

		p, err := f.repo.GetProfile(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, "Asha Rao", *p.FullName)
		assert.Equal(t, "new@example.com", *p.Email)
	})

	t.Run("backfills name from the latest registration", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		_, err := f.repo.CreateRegistration(ctx, enrollment.Registration{ID: "r1", Name: "Old Name", Email: "asha@example.com", CreatedAt: time.Now().UTC().Add(-time.Hour)})
		require.NoError(t, err)
		_, err = f.repo.CreateRegistration(ctx, enrollment.Registration{ID: "r2", Name: " Asha Rao ", Email: "asha@example.com", CreatedAt: time.Now().UTC()})
		require.NoError(t, err)

		flow := f.svc.Resolve(ctx, session(uid, "Asha@Example.com"), "/register")
		assert.Equal(t, "Asha Rao", flow.DisplayName)
		p, err := f.repo.GetProfile(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, "Asha Rao", *p.FullName)
	})

	t.Run("stored name is never overwritten", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		testutil.CreateProfile(t, f.repo, uid, "Stored Name", "asha@example.com", enrollment.StageNone)

		flow := f.svc.Resolve(ctx, session(uid, "asha@example.com", map[string]interface{}{"full_name": "Meta Name"}), "/register")
		assert.Equal(t, "Meta Name", flow.DisplayName)
		p, _ := f.repo.GetProfile(ctx, uid)
		assert.Equal(t, "Stored Name", *p.FullName)
		assert.Equal(t, 1, f.repo.upserts) // only the fixture write
	})

	t.Run("backfill failure is ignored", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		testutil.CreateEnrollment(t, f.repo, uid, enrollment.TrackContent, enrollment.PaymentPending)
		f.repo.failUpsert = true

		flow := f.svc.Resolve(ctx, session(uid, "asha@example.com", map[string]interface{}{"name": "Asha"}), "/dashboard")
		assert.Equal(t, enrollment.PagePayment, flow.Destination.Page)
		assert.True(t, f.logger.Has("warn", "advisory update failed: profile backfill"))
	})

	t.Run("abandoned request skips advisory writes", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		flow := f.svc.Resolve(cctx, session(uid, "asha@example.com", map[string]interface{}{"name": "Asha"}), "/register")
		assert.Equal(t, enrollment.PageRegister, flow.Destination.Page)
		assert.Zero(t, f.repo.upserts)
		assert.True(t, f.logger.Has("debug", "skipped advisory update"))
	})
}

func TestServiceCompletePayment(t *testing.T) {
	ctx := context.Background()
	checkout := func(secret string) payment.CheckoutResult {
		return payment.CheckoutResult{
			OrderID:   "order_1",
			PaymentID: "pay_1",
			Signature: payment.Sign(secret, "order_1", "pay_1"),
			PlanID:    "pro",
		}
	}

	t.Run("verified payment marks paid", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		testutil.CreateEnrollment(t, f.repo, uid, enrollment.TrackContent, enrollment.PaymentPending)

		d := f.svc.CompletePayment(ctx, session(uid, ""), checkout(f.conf.Payment.KeySecret))
		assert.Equal(t, enrollment.PageDashboard, d.Page)
		enr, err := f.repo.LatestEnrollment(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, enrollment.PaymentPaid, enr.PaymentStatus)
		assert.Equal(t, "pro", *enr.PlanID)
	})

	t.Run("mark paid failure still lands on the dashboard", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		testutil.CreateEnrollment(t, f.repo, uid, enrollment.TrackContent, enrollment.PaymentPending)
		f.repo.failUpdatePayment = true

		d := f.svc.CompletePayment(ctx, session(uid, ""), checkout(f.conf.Payment.KeySecret))
		assert.Equal(t, enrollment.PageDashboard, d.Page)
		assert.True(t, f.logger.Has("warn", "advisory update failed: mark enrollment paid"))
	})

	t.Run("forged callback goes back to payment", func(t *testing.T) {
		f := newFixture()
		uid := testutil.NewUserID()
		testutil.CreateEnrollment(t, f.repo, uid, enrollment.TrackContent, enrollment.PaymentPending)

		d := f.svc.CompletePayment(ctx, session(uid, ""), checkout("forged"))
		assert.Equal(t, enrollment.PagePayment, d.Page)
		enr, _ := f.repo.LatestEnrollment(ctx, uid)
		assert.Equal(t, enrollment.PaymentPending, enr.PaymentStatus)
	})

	t.Run("no session", func(t *testing.T) {
		f := newFixture()
		d := f.svc.CompletePayment(ctx, nil, checkout(f.conf.Payment.KeySecret))
		assert.Equal(t, enrollment.PageSignIn, d.Page)
	})
}

func TestServiceLanding(t *testing.T) {
	f := newFixture()
	assert.Equal(t, enrollment.AdminLanding, f.svc.Landing(session("u", "Admin@Eduflick.test"), "/dashboard"))
	assert.Equal(t, "/dashboard", f.svc.Landing(session("u", "asha@example.com"), "/dashboard"))
	assert.Equal(t, "/register", f.svc.Landing(session("u", "asha@example.com"), "https://evil.example"))
	assert.Equal(t, "/register", f.svc.Landing(nil, ""))
}

func TestServiceListProfiles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Now().UTC()
	testutil.CreateProfile(t, f.repo, testutil.NewUserID(), "Asha Rao", "asha@example.com", enrollment.StageNone, now.Add(-2*time.Hour))
	testutil.CreateProfile(t, f.repo, testutil.NewUserID(), "Ravi Kumar", "ravi@example.com", enrollment.StageNone, now.Add(-time.Hour))
	testutil.CreateProfile(t, f.repo, testutil.NewUserID(), "Meera", "meera@asha.dev", enrollment.StageNone, now)

	page, err := f.svc.ListProfiles(ctx, enrollment.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, "Meera", *page.Users[0].FullName)

	page, err = f.svc.ListProfiles(ctx, enrollment.QueryFilter{Search: "ASHA"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = f.svc.ListProfiles(ctx, enrollment.QueryFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "Asha Rao", *page.Users[0].FullName)

	page, err = f.svc.ListProfiles(ctx, enrollment.QueryFilter{Page: 9})
	require.NoError(t, err)
	assert.NotNil(t, page.Users)
	assert.Empty(t, page.Users)
}
