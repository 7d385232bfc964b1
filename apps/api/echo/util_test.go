package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/enrollment"
	"github.com/eduflick/backend/core/identity"
	"github.com/eduflick/backend/core/payment"
	"github.com/eduflick/backend/services/identity/supabase"
	inmemdb "github.com/eduflick/backend/storage/database/inmem"
	testutil "github.com/eduflick/backend/tests"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	header   map[string]string
	wantCode int
	wantData []byte
}

type gatewayMock struct {
	mu     sync.Mutex
	orders []payment.NewOrder
	err    error
}

func (gw *gatewayMock) CreateOrder(_ context.Context, order payment.NewOrder) (*payment.Order, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.orders = append(gw.orders, order)
	if gw.err != nil {
		return nil, gw.err
	}
	return &payment.Order{
		ID:       "order_test_1",
		Entity:   "order",
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		Status:   "created",
		Notes:    order.Notes,
	}, nil
}

func (gw *gatewayMock) calls() int {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return len(gw.orders)
}

type fixture struct {
	conf    *core.Config
	repo    enrollment.Repository
	gateway *gatewayMock
	mailer  *testutil.Mailer
	logger  *testutil.Logger
	deps    ServerDeps
	app     *Server
}

func setup(t *testing.T, configure ...func(conf *core.Config)) *fixture {
	t.Helper()
	conf := core.NewTestConfig()
	for _, fn := range configure {
		fn(conf)
	}

	f := &fixture{
		conf:    conf,
		repo:    inmemdb.NewEnrollmentRepository(inmemdb.Open()),
		gateway: &gatewayMock{},
		mailer:  &testutil.Mailer{},
		logger:  &testutil.Logger{},
	}
	validate, translator := testutil.NewValidator()
	checkout := payment.NewCheckout(f.gateway)
	checkout.NowFunc = func() time.Time { return fixedNow }

	f.deps = ServerDeps{
		Conf:       conf,
		Logger:     f.logger,
		Verifier:   supabase.NewVerifier(conf),
		Checkout:   checkout,
		Service:    enrollment.NewService(f.repo, f.mailer, f.logger, conf),
		Validate:   validate,
		Translator: translator,
	}
	f.app = NewServer(f.deps)
	return f
}

func (f *fixture) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	f.app.ServeHTTP(rec, req)
}

func (f *fixture) token(t *testing.T, userID, email string, metadata ...map[string]interface{}) string {
	t.Helper()
	sess := identity.Session{UserID: userID, Email: email}
	if len(metadata) > 0 {
		sess.Metadata = metadata[0]
	}
	token, err := supabase.IssueToken(f.conf.Identity.JWTSecret, sess, time.Hour)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (tt httpTest) request() (*http.Request, *httptest.ResponseRecorder) {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	for k, v := range tt.header {
		req.Header.Set(k, v)
	}
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, f *fixture, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := tt.request()
			f.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func errBody(message string, fields ...map[string][]string) errorResponse {
	res := errorResponse{Message: message}
	if len(fields) > 0 {
		res.Errors = fields[0]
	}
	return res
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, location, rec.Header().Get("Location"))
}
