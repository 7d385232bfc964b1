package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/enrollment"
)

// NewValidator returns a validator and translator with every application tag registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	enrollment.InitValidators(validate, translator)
	return validate, translator
}

func NewUserID() string { return uuid.NewString() }

func CreateProfile(
	t *testing.T,
	repo enrollment.Repository,
	id, name, email string,
	stage enrollment.OnboardingStage,
	createdAt ...time.Time,
) enrollment.Profile {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	pu := enrollment.ProfileUpdate{
		ID:        id,
		FullName:  core.StringPtr(name),
		Email:     core.StringPtr(email),
		UpdatedAt: tstamp,
	}
	if stage != enrollment.StageNone {
		pu.OnboardingStage = &stage
	}
	ctx := context.Background()
	if err := repo.UpsertProfile(ctx, pu); err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	p, err := repo.GetProfile(ctx, id)
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return p
}

func CreateEnrollment(
	t *testing.T,
	repo enrollment.Repository,
	userID string,
	track enrollment.Track,
	status enrollment.PaymentStatus,
	createdAt ...time.Time,
) enrollment.Enrollment {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	e, err := repo.CreateEnrollment(context.Background(), enrollment.Enrollment{
		UserID:        userID,
		Track:         track,
		PaymentStatus: status,
		CreatedAt:     tstamp,
	})
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return e
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records every entry; it satisfies core.Logger.
type Logger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

func (l *Logger) add(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.add("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.add("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.add("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.add("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.add("fatal", msg, args) }

// Has reports whether an entry of level contains substr in its message.
func (l *Logger) Has(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.Entries {
		if e.Level == level && strings.Contains(e.Msg, substr) {
			return true
		}
	}
	return false
}

func (l *Logger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	for _, e := range l.Entries {
		fmt.Fprintf(&b, "[%s] %s %v\n", e.Level, e.Msg, e.Args)
	}
	return b.String()
}

// Mailer keeps sent messages in memory; it satisfies core.EmailService and sends synchronously.
type Mailer struct {
	mu       sync.Mutex
	Messages []*core.EmailMessage
}

func (m *Mailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, messages...)
}

func (m *Mailer) Sent() []*core.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*core.EmailMessage(nil), m.Messages...)
}
