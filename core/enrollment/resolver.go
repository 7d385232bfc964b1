package enrollment

import (
	"net/url"
	"sort"
	"strings"
)

// Page is one of the funnel pages a user can be sent to.
type Page string

const (
	PageSignIn    Page = "/signin"
	PageRegister  Page = "/register"
	PagePayment   Page = "/register/payment"
	PageDashboard Page = "/dashboard"
)

// State is everything the Resolver looks at.
type State struct {
	HasSession    bool
	Stage         OnboardingStage
	Enrollment    *Enrollment // latest by created_at, nil when none exists
	RequestedPath string      // where the user was going; becomes the sign-in return target
}

type Destination struct {
	Page Page   `json:"page"`
	URL  string `json:"url"`
}

// Resolve decides which page is authoritative for the given state. Rules, in order:
//  1. no session: sign-in, returning to the requested path
//  2. no enrollment: registration
//  3. paid, or an active stage: dashboard
//  4. awaiting-payment stage, or an unpaid enrollment: payment
//  5. registration
func Resolve(s State) Destination {
	switch {
	case !s.HasSession:
		return Destination{Page: PageSignIn, URL: SignInURL(s.RequestedPath)}
	case s.Enrollment == nil:
		return to(PageRegister)
	case s.Enrollment.PaymentStatus.IsComplete() || s.Stage.IsActive():
		return to(PageDashboard)
	case s.Stage.IsAwaitingPayment() || !s.Enrollment.PaymentStatus.IsComplete():
		return to(PagePayment)
	default:
		return to(PageRegister)
	}
}

func to(p Page) Destination { return Destination{Page: p, URL: string(p)} }

// Allows reports whether the user may stay on page.
func (d Destination) Allows(page Page) bool { return d.Page == page }

// SignInURL builds the sign-in location carrying next as the return target.
func SignInURL(next string) string {
	next = SafeNext(next)
	if next == "" {
		return string(PageSignIn)
	}
	return string(PageSignIn) + "?next=" + url.QueryEscape(next)
}

// SafeNext keeps next only when it is a same-origin absolute path.
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	return next
}

// LatestEnrollment picks the most recently created enrollment; ties go to the higher id.
func LatestEnrollment(enrollments []Enrollment) *Enrollment {
	if len(enrollments) == 0 {
		return nil
	}
	sorted := make([]Enrollment, len(enrollments))
	copy(sorted, enrollments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return &sorted[0]
}
