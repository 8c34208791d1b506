package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/gleeworld/gleeworld/apps/api/echo"
	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/assistant"
	"github.com/gleeworld/gleeworld/core/attendance"
	"github.com/gleeworld/gleeworld/core/audit"
	"github.com/gleeworld/gleeworld/core/excuse"
	"github.com/gleeworld/gleeworld/core/finance"
	"github.com/gleeworld/gleeworld/core/grading"
	"github.com/gleeworld/gleeworld/core/library"
	"github.com/gleeworld/gleeworld/core/liturgy"
	"github.com/gleeworld/gleeworld/core/member"
	"github.com/gleeworld/gleeworld/core/notification"
	"github.com/gleeworld/gleeworld/core/radio"
	"github.com/gleeworld/gleeworld/core/sightreading"
	appfs "github.com/gleeworld/gleeworld/fs"
	blobsvc "github.com/gleeworld/gleeworld/services/blob"
	emailsvc "github.com/gleeworld/gleeworld/services/email"
	readersvc "github.com/gleeworld/gleeworld/services/reader"
	inmemdb "github.com/gleeworld/gleeworld/storage/database/inmem"
	"github.com/gleeworld/gleeworld/testutil"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

// env is a server backed by in-memory repositories.
type env struct {
	app        *Server
	conf       *core.Config
	memberRepo member.Repository
	mailSvc    core.EmailService
	llm        *testutil.FakeCompleter
	hub        *radio.Hub
}

func setup(t *testing.T) *env {
	t.Helper()

	conf := testutil.NewConfig()
	conf.Storage.Dir = t.TempDir()
	offline := httptest.NewServer(http.NotFoundHandler())
	offline.Close()
	conf.Liturgy.USCCBBaseURL = offline.URL
	conf.Liturgy.CalendarAPIBaseURL = offline.URL
	conf.Reader.BaseURL = offline.URL
	logger := testutil.NewLogger(conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	member.InitValidators(validate, translator)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	db := inmemdb.Open()
	memberRepo := inmemdb.NewMemberRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	llm := new(testutil.FakeCompleter)
	hub := radio.NewHub(4)

	store, err := blobsvc.NewFSStore(conf.Storage.Dir, conf.Storage.PublicBaseURL)
	if err != nil {
		t.Fatalf("NewFSStore() failed: %v", err)
	}

	auditSvc := audit.NewService(inmemdb.NewAuditRepository(db))
	attendanceSvc := attendance.NewService(inmemdb.NewAttendanceRepository(db), validate)
	notificationSvc := notification.NewService(inmemdb.NewNotificationRepository(db), memberRepo, mailSvc, auditSvc, logger)

	memberSvc := member.NewServiceMock(memberRepo, auditSvc, mailSvc, validate, conf, logger)
	gradingSvc := grading.NewService(inmemdb.NewGradingRepository(db), llm, notificationSvc, validate, logger)
	librarySvc := library.NewService(
		inmemdb.NewLibraryRepository(db), store, readersvc.NewClient(conf, http.DefaultClient), auditSvc, validate, conf, logger,
	)

	app := NewServer(conf, logger, Deps{
		MemberSvc:       memberSvc,
		AuditSvc:        auditSvc,
		AttendanceSvc:   attendanceSvc,
		ExcuseSvc:       excuse.NewService(inmemdb.NewExcuseRepository(db), notificationSvc, attendanceSvc, auditSvc, validate, logger),
		NotificationSvc: notificationSvc,
		FinanceSvc:      finance.NewService(inmemdb.NewFinanceRepository(db), validate, conf, logger),
		GradingSvc:      gradingSvc,
		SightReadingSvc: sightreading.NewService(inmemdb.NewScoreRepository(db), llm, validate, logger),
		RadioSvc:        radio.NewService(inmemdb.NewRadioRepository(db), hub, validate),
		LiturgySvc:      liturgy.NewService(inmemdb.NewLiturgyRepository(db), http.DefaultClient, conf, logger),
		LibrarySvc:      librarySvc,
		AssistantSvc:    assistant.NewService(llm, gradingSvc, attendanceSvc, librarySvc, memberSvc, validate, logger),
		Validate:        validate,
		Translator:      translator,
	})

	return &env{app: app, conf: conf, memberRepo: memberRepo, mailSvc: mailSvc, llm: llm, hub: hub}
}

func (e *env) token(t *testing.T, m member.Member) string {
	t.Helper()
	token, err := e.app.Auth().GenerateToken(e.app.Auth().MemberClaims(m))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

// do sends the request through the server and returns the recorder.
func (e *env) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	e.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
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

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func unmarshalBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshalBody() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, e *env, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
