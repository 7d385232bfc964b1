package enrollment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func enrollmentWith(status string) *Enrollment {
	return &Enrollment{ID: 1, Track: TrackSoftware, PaymentStatus: NormalizePaymentStatus(status)}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  Page
	}{
		{"no session", State{}, PageSignIn},
		{"no session ignores paid enrollment", State{Enrollment: enrollmentWith("paid")}, PageSignIn},
		{"no enrollment", State{HasSession: true}, PageRegister},
		{"no enrollment with active stage", State{HasSession: true, Stage: StageActive}, PageRegister},
		{"no enrollment with pending stage", State{HasSession: true, Stage: StagePaymentPending}, PageRegister},
		{"pending", State{HasSession: true, Enrollment: enrollmentWith("pending")}, PagePayment},
		{"pending with awaiting stage", State{HasSession: true, Stage: NormalizeOnboardingStage("enrolled"), Enrollment: enrollmentWith("pending")}, PagePayment},
		{"pending with active stage", State{HasSession: true, Stage: NormalizeOnboardingStage("completed"), Enrollment: enrollmentWith("pending")}, PageDashboard},
		{"unknown status", State{HasSession: true, Enrollment: enrollmentWith("failed")}, PagePayment},
	}
	for _, status := range []string{"paid", "success", "succeeded", "captured", "completed", "PAID", " Captured "} {
		tests = append(tests, struct {
			name  string
			state State
			want  Page
		}{"complete status " + status, State{HasSession: true, Enrollment: enrollmentWith(status)}, PageDashboard})
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.state)
			assert.Equal(t, tc.want, got.Page)
			if tc.want != PageSignIn {
				assert.Equal(t, string(tc.want), got.URL)
			}
		})
	}
}

func TestResolveSignInKeepsRequestedPath(t *testing.T) {
	d := Resolve(State{RequestedPath: "/register/payment?plan=pro"})
	assert.Equal(t, PageSignIn, d.Page)
	assert.Equal(t, "/signin?next=%2Fregister%2Fpayment%3Fplan%3Dpro", d.URL)

	d = Resolve(State{RequestedPath: "https://evil.example/x"})
	assert.Equal(t, "/signin", d.URL)
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"/dashboard":           "/dashboard",
		" /profile?tab=1 ":     "/profile?tab=1",
		"":                     "",
		"dashboard":            "",
		"//evil.example":       "",
		"/\\evil.example":      "",
		"https://evil.example": "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeNext(in), in)
	}
}

func TestLatestEnrollment(t *testing.T) {
	assert.Nil(t, LatestEnrollment(nil))

	now := time.Now().UTC()
	older := Enrollment{ID: 5, PaymentStatus: PaymentPaid, CreatedAt: now.Add(-time.Hour)}
	newer := Enrollment{ID: 2, PaymentStatus: PaymentPending, CreatedAt: now}

	latest := LatestEnrollment([]Enrollment{older, newer})
	assert.Equal(t, int64(2), latest.ID)
	// the older paid row must not win
	assert.Equal(t, PagePayment, Resolve(State{HasSession: true, Enrollment: latest}).Page)

	tie := Enrollment{ID: 3, CreatedAt: now}
	assert.Equal(t, int64(3), LatestEnrollment([]Enrollment{newer, tie}).ID)
}
