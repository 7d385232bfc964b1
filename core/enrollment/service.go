package enrollment

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/identity"
	"github.com/eduflick/backend/core/payment"
)

const AdminLanding = "/admin"

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound            = errors.New("not found")
	ErrProfileNotFound     = errors.Wrap(ErrNotFound, "profile")
	ErrNoPendingEnrollment = errors.New("no pending enrollment found for this user")
	ErrInvalidTransition   = errors.New("payment status can only move from pending to paid")
)

func timeNow() time.Time { return NowFunc().UTC() }

type (
	Repository interface {
		GetProfile(ctx context.Context, id string) (Profile, error)
		// UpsertProfile creates the profile when missing, then writes only the non-nil fields.
		UpsertProfile(ctx context.Context, pu ProfileUpdate) error
		// ListProfiles orders by created_at desc. QueryFilter.Search is a case-insensitive match on full_name or email.
		ListProfiles(ctx context.Context, filter QueryFilter) ([]Profile, int, error)

		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		LatestEnrollment(ctx context.Context, userID string) (Enrollment, error)
		LatestPendingEnrollment(ctx context.Context, userID string) (Enrollment, error)
		// UpdateEnrollmentPayment only touches a row that is still pending; ErrNotFound otherwise.
		UpdateEnrollmentPayment(ctx context.Context, e Enrollment) error

		CreateRegistration(ctx context.Context, r Registration) (Registration, error)
		LatestRegistrationByEmail(ctx context.Context, email string) (Registration, error)
	}

	Service interface {
		Register(ctx context.Context, req RegisterRequest) (Registration, error)
		Enroll(ctx context.Context, req EnrollRequest) (Enrollment, error)
		MarkPaid(ctx context.Context, req MarkPaidRequest) (Enrollment, error)
		SaveProfile(ctx context.Context, req ProfileRequest) error
		ListProfiles(ctx context.Context, filter QueryFilter) (ProfilePage, error)

		// Resolve never fails: store errors send the user to sign-in.
		Resolve(ctx context.Context, sess *identity.Session, requestedPath string) Flow
		// CompletePayment handles the checkout callback and returns where the browser goes next.
		CompletePayment(ctx context.Context, sess *identity.Session, res payment.CheckoutResult) Destination
		Landing(sess *identity.Session, next string) string
	}

	// Flow is a Resolver decision plus the rows it was made from.
	Flow struct {
		Destination Destination `json:"destination"`
		DisplayName string      `json:"displayName,omitempty"`
		Email       string      `json:"email,omitempty"`
		Profile     *Profile    `json:"profile,omitempty"`
		Enrollment  *Enrollment `json:"enrollment,omitempty"`
	}

	confirmationData struct {
		Name     string
		PlanName string
		Price    string
		Track    string
	}

	service struct {
		repo   Repository
		mailer core.EmailService
		logger core.Logger
		conf   *core.Config
	}
)

func NewService(repo Repository, mailer core.EmailService, logger core.Logger, conf *core.Config) Service {
	return &service{repo: repo, mailer: mailer, logger: logger, conf: conf}
}

func (svc *service) Register(ctx context.Context, req RegisterRequest) (Registration, error) {
	reg := Registration{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     core.StringPtr(req.Phone),
		Track:     req.Track,
		CreatedAt: timeNow(),
	}
	return svc.repo.CreateRegistration(ctx, reg)
}

func (svc *service) Enroll(ctx context.Context, req EnrollRequest) (Enrollment, error) {
	now := timeNow()
	if req.hasProfileDetails() {
		err := svc.repo.UpsertProfile(ctx, ProfileUpdate{
			ID:        req.UserID,
			FullName:  core.StringPtr(req.Name),
			Phone:     core.StringPtr(req.Phone),
			Email:     core.StringPtr(req.Email),
			UpdatedAt: now,
		})
		if err != nil {
			return Enrollment{}, errors.Wrap(err, "unable to save profile")
		}
	} else if _, err := svc.repo.GetProfile(ctx, req.UserID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Enrollment{}, ErrProfileNotFound
		}
		return Enrollment{}, errors.Wrap(err, "unable to load profile")
	}

	enr, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		UserID:        req.UserID,
		Track:         req.Track,
		PlanID:        core.StringPtr(req.PlanID),
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
	})
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "unable to create enrollment")
	}

	stage := StagePaymentPending
	if err := svc.repo.UpsertProfile(ctx, ProfileUpdate{ID: req.UserID, OnboardingStage: &stage, UpdatedAt: now}); err != nil {
		return enr, errors.Wrap(err, "enrollment created but unable to update onboarding stage")
	}
	return enr, nil
}

func (svc *service) MarkPaid(ctx context.Context, req MarkPaidRequest) (Enrollment, error) {
	return svc.markPaid(ctx, req.UserID, req.PlanID)
}

func (svc *service) markPaid(ctx context.Context, userID, planID string) (Enrollment, error) {
	enr, err := svc.repo.LatestPendingEnrollment(ctx, userID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Enrollment{}, ErrNoPendingEnrollment
		}
		return Enrollment{}, errors.Wrap(err, "unable to locate enrollment")
	}
	if err := enr.MarkPaid(planID, timeNow()); err != nil {
		return Enrollment{}, err
	}
	if err := svc.repo.UpdateEnrollmentPayment(ctx, enr); err != nil {
		if errors.Cause(err) == ErrNotFound { // paid in the meantime
			return Enrollment{}, ErrNoPendingEnrollment
		}
		return Enrollment{}, errors.Wrap(err, "unable to update enrollment status")
	}

	svc.advisory(ctx, "enrollment confirmation email", func(ctx context.Context) error {
		return svc.sendConfirmation(ctx, enr)
	})
	return enr, nil
}

func (svc *service) SaveProfile(ctx context.Context, req ProfileRequest) error {
	err := svc.repo.UpsertProfile(ctx, ProfileUpdate{
		ID:        req.UserID,
		FullName:  core.StringPtr(req.FullName),
		Phone:     core.StringPtr(req.Phone),
		Email:     core.StringPtr(req.Email),
		UpdatedAt: timeNow(),
	})
	return errors.Wrap(err, "unable to save profile")
}

func (svc *service) ListProfiles(ctx context.Context, filter QueryFilter) (ProfilePage, error) {
	filter.Clean()
	users, total, err := svc.repo.ListProfiles(ctx, filter)
	if err != nil {
		return ProfilePage{}, errors.Wrap(err, "unable to fetch users")
	}
	if users == nil {
		users = []Profile{}
	}
	return ProfilePage{Page: filter.Page, PageSize: filter.PageSize, Total: total, Users: users}, nil
}

func (svc *service) Resolve(ctx context.Context, sess *identity.Session, requestedPath string) Flow {
	signIn := Flow{Destination: Resolve(State{RequestedPath: requestedPath})}
	if sess == nil || sess.UserID == "" {
		return signIn
	}

	var profile *Profile
	p, err := svc.repo.GetProfile(ctx, sess.UserID)
	switch {
	case err == nil:
		profile = &p
	case errors.Cause(err) != ErrNotFound:
		svc.logger.Error("resolving flow: loading profile", errors.Wrap(err, "resolve"), sess)
		return signIn
	}

	var enrollment *Enrollment
	e, err := svc.repo.LatestEnrollment(ctx, sess.UserID)
	switch {
	case err == nil:
		enrollment = &e
	case errors.Cause(err) != ErrNotFound:
		svc.logger.Error("resolving flow: loading enrollment", errors.Wrap(err, "resolve"), sess)
		return signIn
	}

	state := State{HasSession: true, Enrollment: enrollment, RequestedPath: requestedPath}
	if profile != nil {
		state.Stage = profile.OnboardingStage
	}

	return Flow{
		Destination: Resolve(state),
		DisplayName: svc.backfillProfile(ctx, sess, profile),
		Email:       sess.Email,
		Profile:     profile,
		Enrollment:  enrollment,
	}
}

// backfillProfile finds a display name (provider metadata, stored profile, then the latest
// registration by email) and writes it, together with the session email, back to the profile.
func (svc *service) backfillProfile(ctx context.Context, sess *identity.Session, profile *Profile) string {
	var storedName, storedEmail string
	if profile != nil {
		storedName = core.CleanString(core.StringVal(profile.FullName))
		storedEmail = core.CleanString(core.StringVal(profile.Email))
	}

	name := core.FirstNonEmpty(sess.DisplayName(), storedName)
	if name == "" && sess.Email != "" && ctx.Err() == nil {
		reg, err := svc.repo.LatestRegistrationByEmail(ctx, core.CleanString(sess.Email, true /* lower */))
		if err == nil {
			name = core.CleanString(reg.Name)
		} else if errors.Cause(err) != ErrNotFound {
			svc.logger.Warn("resolving flow: registration name fallback", err, sess)
		}
	}

	pu := ProfileUpdate{ID: sess.UserID, UpdatedAt: timeNow()}
	if storedName == "" && name != "" {
		pu.FullName = &name
	}
	if email := core.CleanString(sess.Email); email != "" && !strings.EqualFold(email, storedEmail) {
		pu.Email = &email
	}
	if !pu.IsEmpty() {
		svc.advisory(ctx, "profile backfill", func(ctx context.Context) error {
			return svc.repo.UpsertProfile(ctx, pu)
		})
	}
	return name
}

func (svc *service) CompletePayment(ctx context.Context, sess *identity.Session, res payment.CheckoutResult) Destination {
	if sess == nil || sess.UserID == "" {
		return Resolve(State{RequestedPath: string(PagePayment)})
	}
	if !payment.VerifySignature(svc.conf.Payment.KeySecret, res) {
		svc.logger.Warn("checkout callback with an invalid signature", map[string]interface{}{"order_id": res.OrderID}, sess)
		return to(PagePayment)
	}

	planID := core.CleanString(res.PlanID, true /* lower */)
	if !payment.IsPlan(planID) {
		planID = ""
	}
	// the gateway holds the authoritative payment record; the local flag may lag
	svc.advisory(ctx, "mark enrollment paid", func(ctx context.Context) error {
		_, err := svc.markPaid(ctx, sess.UserID, planID)
		return err
	})
	return to(PageDashboard)
}

func (svc *service) Landing(sess *identity.Session, next string) string {
	if sess != nil && svc.conf.IsAdminEmail(sess.Email) {
		return AdminLanding
	}
	if next = SafeNext(next); next != "" {
		return next
	}
	return string(PageRegister)
}

// advisory runs a best-effort write: its failure is logged and ignored.
// Nothing runs once the request context is done.
func (svc *service) advisory(ctx context.Context, name string, update func(ctx context.Context) error) {
	if err := ctx.Err(); err != nil {
		svc.logger.Debug("skipped advisory update: "+name, err)
		return
	}
	if err := update(ctx); err != nil {
		svc.logger.Warn("advisory update failed: "+name, err)
	}
}

func (svc *service) sendConfirmation(ctx context.Context, enr Enrollment) error {
	profile, err := svc.repo.GetProfile(ctx, enr.UserID)
	if err != nil {
		return errors.Wrap(err, "loading profile")
	}
	email := core.StringVal(profile.Email)
	if email == "" {
		return nil
	}

	data := confirmationData{
		Name:  core.FirstNonEmpty(core.StringVal(profile.FullName), "there"),
		Track: enr.Track.Label(),
	}
	if plan, ok := payment.LookupPlan(core.StringVal(enr.PlanID)); ok {
		data.PlanName = plan.Name
		data.Price = plan.Price
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: core.StringVal(profile.FullName), Address: email}},
		Subject:      "Your " + svc.conf.AppName + " enrollment is confirmed",
		TemplateName: "enrollment_confirmed",
		TemplateData: data,
	}
	if err := msg.Render(svc.conf.AppName, svc.conf.Server.PublicBaseURL); err != nil {
		return errors.Wrap(err, "rendering confirmation email")
	}
	svc.mailer.SendMessages(msg)
	return nil
}
