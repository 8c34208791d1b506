package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/assistant"
	"github.com/gleeworld/gleeworld/core/liturgy"
	"github.com/gleeworld/gleeworld/core/member"
	"github.com/gleeworld/gleeworld/core/sightreading"
	"github.com/gleeworld/gleeworld/testutil"
)

const scoreXML = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="3.1"><part-list><score-part id="P1"><part-name>Soprano</part-name></score-part></part-list>
<part id="P1"><measure number="1"><note><pitch><step>C</step><octave>5</octave></pitch><duration>4</duration><type>whole</type></note></measure></part>
</score-partwise>`

func scoreParams() sightreading.MusicalParams {
	return sightreading.MusicalParams{
		Key:                   "C",
		Mode:                  "Major",
		TimeSignature:         "4/4",
		Measures:              4,
		VoiceParts:            "SA",
		BPM:                   96,
		NoteValues:            []string{"half", "quarter"},
		RestValues:            []string{"QR"},
		CadenceFrequency:      4,
		CadenceTypes:          []string{"Authentic"},
		MotionTypes:           []string{"Step", "Skip"},
		MaxInterval:           5,
		StepwiseMotionPercent: 70,
	}
}

func modelAnswer(t *testing.T, echo interface{}, musicXML string) json.RawMessage {
	return marshalObj(t, map[string]interface{}{"echo": echo, "musicxml": musicXML})
}

func Test_functionsApi_generateScore(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)
	token := e.token(t, ada)
	params := scoreParams()
	body := marshalObj(t, params)

	t.Run("invalid params", func(t *testing.T) {
		bad := params
		bad.Key = "H"
		rec := e.do(http.MethodPost, "/v1/functions/generate-score", token, marshalObj(t, bad))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, e.llm.CallCount())
	})

	t.Run("echo mismatch", func(t *testing.T) {
		wrong := params
		wrong.BPM = 120
		e.llm.JSON = modelAnswer(t, wrong, scoreXML)

		rec := e.do(http.MethodPost, "/v1/functions/generate-score", token, body)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnprocessableEntity,
			wantData: marshalObj(t, map[string]interface{}{"error": "echo mismatch", "received": wrong}),
		}, rec)
	})

	t.Run("malformed musicxml", func(t *testing.T) {
		e.llm.JSON = modelAnswer(t, params, "<score-partwise><part>")
		rec := e.do(http.MethodPost, "/v1/functions/generate-score", token, body)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		e.llm.Err = core.ErrRateLimited
		defer func() { e.llm.Err = nil }()

		rec := e.do(http.MethodPost, "/v1/functions/generate-score", token, body)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusTooManyRequests,
			wantData: marshalObj(t, httpErr{Error: "Rate limit exceeded, please try again later."}),
		}, rec)
	})

	t.Run("generated then cached", func(t *testing.T) {
		e.llm.JSON = modelAnswer(t, params, scoreXML)
		calls := e.llm.CallCount()

		rec := e.do(http.MethodPost, "/v1/functions/generate-score", token, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res sightreading.Result
		unmarshalBody(t, rec, &res)
		assert.True(t, res.Success)
		assert.False(t, res.Cached)
		assert.Equal(t, scoreXML, res.MusicXML)
		assert.Equal(t, params, res.Echo)
		assert.Equal(t, calls+1, e.llm.CallCount())

		rec = e.do(http.MethodPost, "/v1/functions/generate-score", token, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshalBody(t, rec, &res)
		assert.True(t, res.Cached)
		assert.Equal(t, calls+1, e.llm.CallCount())
	})
}

func Test_functionsApi_adminResetPassword(t *testing.T) {
	e := setup(t)
	admin := testutil.CreateMember(t, e.memberRepo, "Ann Admin", "ann@spelman.test", pwd, []string{member.RoleAdmin}, true)
	ada := testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)

	tests := []httpTest{
		{
			name:     "admins only",
			method:   http.MethodPost,
			path:     "/v1/functions/admin-reset-password",
			body:     []byte(`{"email": "ann@spelman.test"}`),
			token:    e.token(t, ada),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name:     "target required",
			method:   http.MethodPost,
			path:     "/v1/functions/admin-reset-password",
			body:     []byte(`{}`),
			token:    e.token(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"user_id": "one of user_id or email is required",
				"email":   "one of user_id or email is required",
			}),
		},
		{
			name:     "password policy applies",
			method:   http.MethodPost,
			path:     "/v1/functions/admin-reset-password",
			body:     []byte(`{"email": "ada@spelman.test", "new_password": "password"}`),
			token:    e.token(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"new_password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
			}),
		},
		{
			name:     "similar to the member",
			method:   http.MethodPost,
			path:     "/v1/functions/admin-reset-password",
			body:     []byte(`{"email": "ada@spelman.test", "new_password": "Ada@spelman1"}`),
			token:    e.token(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"new_password": "password cannot be similar to member attributes",
			}),
		},
		{
			name:     "unknown member",
			method:   http.MethodPost,
			path:     "/v1/functions/admin-reset-password",
			body:     []byte(`{"user_id": "nope"}`),
			token:    e.token(t, admin),
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: member.ErrNotFound.Error()}),
		},
	}
	runHTTPTests(t, e, tests)

	t.Run("explicit password", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/functions/admin-reset-password", e.token(t, admin),
			[]byte(`{"email": "ADA@spelman.test", "new_password": "N3w-Soprano-Pass"}`))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshalObj(t, map[string]interface{}{"success": true, "user_id": ada.ID}),
		}, rec)

		rec = e.do(http.MethodPost, "/v1/members/login", "", []byte(`{"email": "ada@spelman.test", "password": "N3w-Soprano-Pass"}`))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		m, err := e.memberRepo.GetMemberByID(context.Background(), ada.ID)
		require.NoError(t, err)
		assert.True(t, m.ForcePasswordChange)
	})

	t.Run("generated password", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/functions/admin-reset-password", e.token(t, admin), marshalObj(t, map[string]string{"user_id": ada.ID}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res member.AdminResetResult
		unmarshalBody(t, rec, &res)
		require.NotEmpty(t, res.TemporaryPassword)

		rec = e.do(http.MethodPost, "/v1/members/login", "", marshalObj(t, map[string]string{"email": "ada@spelman.test", "password": res.TemporaryPassword}))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("resets are audited", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/audit?action=admin_password_reset", e.token(t, admin))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var entries []map[string]interface{}
		unmarshalBody(t, rec, &entries)
		assert.Len(t, entries, 2)
	})
}

func Test_functionsApi_bulkAssignExecBoard(t *testing.T) {
	e := setup(t)
	admin := testutil.CreateMember(t, e.memberRepo, "Ann Admin", "ann@spelman.test", pwd, []string{member.RoleAdmin}, true)
	testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)

	rec := e.do(http.MethodPost, "/v1/functions/bulk-assign-exec-board", e.token(t, admin), []byte(`{
		"academic_year": "2026-2027",
		"assignments": [
			{"email": "ada@spelman.test", "full_name": "Ada Soprano", "role": "Tour Manager"},
			{"email": "zoe@spelman.test", "full_name": "Zoe Alto", "role": "chief_of_vibes"}
		]
	}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res member.BulkExecAssignmentResult
	unmarshalBody(t, rec, &res)
	assert.False(t, res.Success)
	assert.Equal(t, member.Summary{Total: 2, Successful: 1, Failed: 1}, res.Summary)
	require.Len(t, res.Results, 2)
	assert.True(t, res.Results[0].Success)
	assert.Equal(t, "tour_manager", res.Results[0].Role)
	assert.False(t, res.Results[1].Success)
	assert.Equal(t, "invalid executive board position: chief_of_vibes", res.Results[1].Error)

	m, err := e.memberRepo.GetMemberByEmail(context.Background(), "ada@spelman.test")
	require.NoError(t, err)
	assert.True(t, m.IsExec())
}

func Test_functionsApi_syncLiturgy(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)
	token := e.token(t, ada)

	t.Run("bad date", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/functions/sync-usccb-liturgical", token, []byte(`{"date": "12/25/2026"}`))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"date": "date must be formatted YYYY-MM-DD"}),
		}, rec)
	})

	t.Run("falls back when sources are down", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/functions/sync-usccb-liturgical", token, []byte(`{"date": "2026-12-25"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res liturgy.SyncResult
		unmarshalBody(t, rec, &res)
		assert.True(t, res.Success)
		assert.Equal(t, liturgy.SourceFallback, res.Source)
		assert.Equal(t, "2026-12-25", res.Data.Date)
		assert.Equal(t, liturgy.SeasonChristmas, res.Data.LiturgicalSeason)
		assert.Equal(t, "White", res.Data.SeasonColor)
		assert.Equal(t, "Nativity of the Lord", res.Data.SaintOfDay)
	})

	t.Run("stored readings are served", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/liturgy/2026-12-25", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var r liturgy.Readings
		unmarshalBody(t, rec, &r)
		assert.Equal(t, liturgy.SourceFallback, r.Source)
		require.NotNil(t, r.Gospel)
	})
}

func Test_functionsApi_gleeAssistant(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)
	testutil.CreateMember(t, e.memberRepo, "Bea Alto", "bea@spelman.test", pwd, nil, true)
	token := e.token(t, ada)
	path := "/v1/functions/glee-assistant"

	t.Run("authentication required", func(t *testing.T) {
		rec := e.do(http.MethodPost, path, "", []byte(`{"messages": [{"role": "user", "content": "hi"}]}`))
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)}, rec)
	})

	t.Run("messages required", func(t *testing.T) {
		calls := e.llm.CallCount()
		rec := e.do(http.MethodPost, path, token, []byte(`{"messages": []}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Equal(t, calls, e.llm.CallCount())
	})

	t.Run("answers", func(t *testing.T) {
		e.llm.Replies = []core.ChatMessage{{Role: core.RoleAssistant, Content: "Hello Ada!"}}
		rec := e.do(http.MethodPost, path, token, []byte(`{"messages": [{"role": "user", "content": "hi"}]}`))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshalObj(t, assistant.Reply{Message: "Hello Ada!", Actions: []assistant.Action{}}),
		}, rec)
		assert.Contains(t, e.llm.LastSystem, "Ada Soprano")
	})

	t.Run("prepares an email", func(t *testing.T) {
		e.llm.Replies = []core.ChatMessage{
			{Role: core.RoleAssistant, ToolCalls: []core.ToolCall{
				{ID: "c1", Name: "prepare_message", Arguments: json.RawMessage(`{"recipient_name": "bea"}`)},
			}},
			{Role: core.RoleAssistant, Content: "Your email to Bea is ready."},
		}
		rec := e.do(http.MethodPost, path, token, []byte(`{"messages": [{"role": "user", "content": "email bea"}]}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res assistant.Reply
		unmarshalBody(t, rec, &res)
		assert.Equal(t, "Your email to Bea is ready.", res.Message)
		require.Len(t, res.Actions, 1)
		assert.Equal(t, "prepare_email", res.Actions[0].Action)
		require.Len(t, res.Actions[0].Recipients, 1)
		assert.Equal(t, "bea@spelman.test", res.Actions[0].Recipients[0].Email)
	})

	t.Run("rate limited", func(t *testing.T) {
		e.llm.Err = core.ErrRateLimited
		defer func() { e.llm.Err = nil }()

		rec := e.do(http.MethodPost, path, token, []byte(`{"messages": [{"role": "user", "content": "hi"}]}`))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusTooManyRequests,
			wantData: marshalObj(t, httpErr{Error: "Rate limit exceeded, please try again later."}),
		}, rec)
	})
}
