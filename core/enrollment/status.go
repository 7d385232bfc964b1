package enrollment

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
)

// PaymentStatus is the closed set of enrollment payment states.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// legacy payment_status values written by earlier clients and gateway callbacks
var paymentStatusSynonyms = map[string]PaymentStatus{
	"pending":   PaymentPending,
	"paid":      PaymentPaid,
	"success":   PaymentPaid,
	"succeeded": PaymentPaid,
	"captured":  PaymentPaid,
	"completed": PaymentPaid,
}

// NormalizePaymentStatus maps a stored value to a PaymentStatus.
// Anything that is not a known "complete" synonym is still awaiting payment.
func NormalizePaymentStatus(raw string) PaymentStatus {
	if st, ok := paymentStatusSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return st
	}
	return PaymentPending
}

// CompletePaymentStatuses lists the stored values that decode to PaymentPaid, sorted.
func CompletePaymentStatuses() []string {
	var raw []string
	for k, st := range paymentStatusSynonyms {
		if st.IsComplete() {
			raw = append(raw, k)
		}
	}
	sort.Strings(raw)
	return raw
}

// ParsePaymentStatus is the strict variant used for operator input.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	if st, ok := paymentStatusSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown payment status %q", raw)
}

func (s PaymentStatus) IsComplete() bool { return s == PaymentPaid }

func (s *PaymentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = PaymentPending
	case string:
		*s = NormalizePaymentStatus(v)
	case []byte:
		*s = NormalizePaymentStatus(string(v))
	default:
		return fmt.Errorf("enrollment.PaymentStatus.Scan: unsupported type %T", src)
	}
	return nil
}

func (s PaymentStatus) Value() (driver.Value, error) {
	if s == "" {
		return string(PaymentPending), nil
	}
	return string(s), nil
}

// OnboardingStage is the coarse funnel position stored on a Profile.
type OnboardingStage string

const (
	StageNone           OnboardingStage = ""
	StagePaymentPending OnboardingStage = "payment_pending"
	StageActive         OnboardingStage = "active"
)

var onboardingStageSynonyms = map[string]OnboardingStage{
	"active":    StageActive,
	"completed": StageActive,

	"payment_pending":       StagePaymentPending,
	"pending_payment":       StagePaymentPending,
	"awaiting_payment":      StagePaymentPending,
	"enrolled":              StagePaymentPending,
	"registration_complete": StagePaymentPending,
	"payment_required":      StagePaymentPending,
}

// NormalizeOnboardingStage maps a stored value to an OnboardingStage; unknown values carry no signal.
func NormalizeOnboardingStage(raw string) OnboardingStage {
	return onboardingStageSynonyms[strings.ToLower(strings.TrimSpace(raw))]
}

func (s OnboardingStage) IsActive() bool          { return s == StageActive }
func (s OnboardingStage) IsAwaitingPayment() bool { return s == StagePaymentPending }

func (s *OnboardingStage) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = StageNone
	case string:
		*s = NormalizeOnboardingStage(v)
	case []byte:
		*s = NormalizeOnboardingStage(string(v))
	default:
		return fmt.Errorf("enrollment.OnboardingStage.Scan: unsupported type %T", src)
	}
	return nil
}

func (s OnboardingStage) Value() (driver.Value, error) {
	if s == StageNone {
		return nil, nil
	}
	return string(s), nil
}
