package enrollment

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eduflick/backend/core"
)

// Track is one of the fixed learning tracks.
type Track string

const (
	TrackContent    Track = "ai-content"
	TrackSoftware   Track = "ai-software"
	TrackAutomation Track = "ai-automation"
)

var Tracks = []Track{TrackContent, TrackSoftware, TrackAutomation}

// Label renders a track for people, e.g. "ai-software" -> "AI Software".
func (t Track) Label() string {
	words := strings.Split(strings.TrimPrefix(string(t), "ai-"), "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return "AI " + strings.Join(words, " ")
}

func (t Track) IsValid() bool {
	for _, tr := range Tracks {
		if t == tr {
			return true
		}
	}
	return false
}

// Profile is the per-user display/contact record. ID is the identity subject id.
type Profile struct {
	ID              string          `db:"id" json:"id"`
	FullName        *string         `db:"full_name" json:"full_name"`
	Phone           *string         `db:"phone" json:"phone"`
	Email           *string         `db:"email" json:"email"`
	OnboardingStage OnboardingStage `db:"onboarding_stage" json:"onboarding_stage,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"` // UTC
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"` // UTC
}

// Enrollment is one signup attempt. PaymentStatus only ever moves pending -> paid.
type Enrollment struct {
	ID            int64         `db:"id" json:"id"`
	UserID        string        `db:"user_id" json:"user_id"`
	Track         Track         `db:"track" json:"track"`
	PlanID        *string       `db:"plan_id" json:"plan_id"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	PaidAt        *time.Time    `db:"paid_at" json:"paid_at,omitempty"` // UTC
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`     // UTC
}

// MarkPaid moves a pending enrollment to paid. A blank planID keeps the plan chosen at enrollment.
func (e *Enrollment) MarkPaid(planID string, at time.Time) error {
	if e.PaymentStatus.IsComplete() {
		return ErrInvalidTransition
	}
	e.PaymentStatus = PaymentPaid
	if planID != "" {
		e.PlanID = &planID
	}
	at = at.UTC()
	e.PaidAt = &at
	return nil
}

// Registration is the legacy signup intake row. It is only read back as a name fallback.
type Registration struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     *string   `db:"phone" json:"phone"`
	Track     Track     `db:"track" json:"track"`
	CreatedAt time.Time `db:"created_at" json:"created_at"` // UTC
}

// RegisterRequest is the public signup form. Company is a honeypot that humans never fill in;
// it takes any JSON value so a non-string answer is rejected the same way as a string.
type RegisterRequest struct {
	Name    string          `json:"name" validate:"required,min=2,max=120"`
	Email   string          `json:"email" validate:"required,email"`
	Phone   string          `json:"phone" validate:"omitempty,min=6,max=40"`
	Track   Track           `json:"track" validate:"required,track"`
	Company json.RawMessage `json:"company"`
}

// honeypotFilled reports whether company carries anything but null or a blank string.
func (r *RegisterRequest) honeypotFilled() bool {
	raw := bytes.TrimSpace(r.Company)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return core.CleanString(s) != ""
	}
	return true
}

func (r *RegisterRequest) Validate(validate *validator.Validate) error {
	if r.honeypotFilled() {
		return core.NewValidationError(nil, core.FieldError{Field: core.FormField, Error: submissionRejectedText})
	}
	r.Name = core.CleanString(r.Name)
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Phone = core.CleanString(r.Phone)
	return validate.Struct(r)
}

// EnrollRequest creates a pending enrollment, optionally upserting profile details.
type EnrollRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	Name   string `json:"name" validate:"omitempty,min=2,max=120"`
	Email  string `json:"email" validate:"omitempty,email"`
	Phone  string `json:"phone" validate:"omitempty,min=6,max=40"`
	Track  Track  `json:"track" validate:"required,track"`
	PlanID string `json:"planId" validate:"omitempty,plan"`
}

func (r *EnrollRequest) Validate(validate *validator.Validate) error {
	r.UserID = core.CleanString(r.UserID, true /* lower */)
	r.Name = core.CleanString(r.Name)
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Phone = core.CleanString(r.Phone)
	r.PlanID = core.CleanString(r.PlanID, true /* lower */)
	return validate.Struct(r)
}

func (r *EnrollRequest) hasProfileDetails() bool {
	return r.Name != "" || r.Email != "" || r.Phone != ""
}

type MarkPaidRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	PlanID string `json:"planId" validate:"required,plan"`
}

func (r *MarkPaidRequest) Validate(validate *validator.Validate) error {
	r.UserID = core.CleanString(r.UserID, true /* lower */)
	r.PlanID = core.CleanString(r.PlanID, true /* lower */)
	return validate.Struct(r)
}

// ProfileRequest upserts a Profile. Blank fields leave stored values untouched.
type ProfileRequest struct {
	UserID   string `json:"userId" validate:"required,uuid"`
	FullName string `json:"full_name" validate:"omitempty,min=2,max=120"`
	Phone    string `json:"phone" validate:"omitempty,min=6,max=40"`
	Email    string `json:"email" validate:"omitempty,email"`
}

func (r *ProfileRequest) Validate(validate *validator.Validate) error {
	r.UserID = core.CleanString(r.UserID, true /* lower */)
	r.FullName = core.CleanString(r.FullName)
	r.Phone = core.CleanString(r.Phone)
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

// ProfileUpdate is a partial write: nil fields are not touched.
type ProfileUpdate struct {
	ID              string
	FullName        *string
	Phone           *string
	Email           *string
	OnboardingStage *OnboardingStage
	UpdatedAt       time.Time
}

func (pu ProfileUpdate) IsEmpty() bool {
	return pu.FullName == nil && pu.Phone == nil && pu.Email == nil && pu.OnboardingStage == nil
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type QueryFilter struct {
	Page     int    `query:"page"`
	PageSize int    `query:"pageSize"`
	Search   string `query:"q"`
}

// Clean clamps the paging values and normalizes the search term.
func (qf *QueryFilter) Clean() {
	if qf.Page < 1 {
		qf.Page = 1
	}
	if qf.PageSize < 1 {
		qf.PageSize = DefaultPageSize
	}
	if qf.PageSize > MaxPageSize {
		qf.PageSize = MaxPageSize
	}
	qf.Search = core.CleanString(qf.Search, true /* lower */)
}

func (qf QueryFilter) Offset() int { return (qf.Page - 1) * qf.PageSize }

type ProfilePage struct {
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
	Total    int       `json:"total"`
	Users    []Profile `json:"users"`
}
