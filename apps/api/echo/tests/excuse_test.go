package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeworld/gleeworld/core/attendance"
	"github.com/gleeworld/gleeworld/core/excuse"
	"github.com/gleeworld/gleeworld/core/member"
	"github.com/gleeworld/gleeworld/testutil"
)

func Test_excuseApi_flow(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)
	bea := testutil.CreateMember(t, e.memberRepo, "Bea Alto", "bea@spelman.test", pwd, nil, true)
	sec := testutil.CreateMember(t, e.memberRepo, "Sam Secretary", "sam@spelman.test", pwd, []string{member.RoleExecBoard}, true)
	admin := testutil.CreateMember(t, e.memberRepo, "Ann Admin", "ann@spelman.test", pwd, []string{member.RoleAdmin}, true)

	// an event to be excused from
	rec := e.do(http.MethodPost, "/v1/events", e.token(t, sec), []byte(`{
		"title": "Fall Concert Rehearsal",
		"event_type": "rehearsal",
		"starts_at": "2026-11-02T18:00:00Z",
		"ends_at": "2026-11-02T20:00:00Z"
	}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var event attendance.Event
	unmarshalBody(t, rec, &event)

	rec = e.do(http.MethodPost, "/v1/excuses", e.token(t, ada), marshalObj(t, map[string]string{
		"event_id":    event.ID,
		"event_title": event.Title,
		"event_date":  "2026-11-02T18:00:00Z",
		"reason":      "Biology midterm exam at the same time.",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var req excuse.Request
	unmarshalBody(t, rec, &req)
	assert.Equal(t, excuse.StatusPending, req.Status)
	assert.Equal(t, ada.ID, req.MemberID)

	t.Run("managers are notified", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/notifications/unread-count", e.token(t, sec))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"count": 1}`)}, rec)
	})

	t.Run("other members cannot see it", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/excuses/"+req.ID, e.token(t, bea))
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "excuse request not found"})}, rec)
	})

	tests := []httpTest{
		{
			name:     "members cannot list all requests",
			method:   http.MethodGet,
			path:     "/v1/excuses",
			token:    e.token(t, ada),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name:     "members cannot forward",
			method:   http.MethodPost,
			path:     "/v1/excuses/" + req.ID + "/forward",
			token:    e.token(t, bea),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "not allowed to act on this excuse request"}),
		},
		{
			name:     "exec board cannot review",
			method:   http.MethodPost,
			path:     "/v1/excuses/" + req.ID + "/review",
			body:     []byte(`{"decision": "approved"}`),
			token:    e.token(t, sec),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "not allowed to act on this excuse request"}),
		},
		{
			name:     "only returned requests can be resubmitted",
			method:   http.MethodPost,
			path:     "/v1/excuses/" + req.ID + "/resubmit",
			body:     []byte(`{"reason": "Biology midterm exam, see syllabus."}`),
			token:    e.token(t, ada),
			wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: "excuse request cannot change to this status"}),
		},
	}
	runHTTPTests(t, e, tests)

	t.Run("return and resubmit", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/excuses/"+req.ID+"/return", e.token(t, sec), []byte(`{"message": "Please attach the exam schedule."}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got excuse.Request
		unmarshalBody(t, rec, &got)
		assert.Equal(t, excuse.StatusReturned, got.Status)
		assert.Equal(t, "Please attach the exam schedule.", got.SecretaryMessage)
		assert.Equal(t, sec.ID, got.SecretaryMessageSentBy)

		rec = e.do(http.MethodPost, "/v1/excuses/"+req.ID+"/resubmit", e.token(t, ada), []byte(`{"reason": "Biology midterm exam, schedule attached."}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshalBody(t, rec, &got)
		assert.Equal(t, excuse.StatusPending, got.Status)
		assert.Equal(t, "Biology midterm exam, schedule attached.", got.Reason)
	})

	t.Run("forward then approve", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/excuses/"+req.ID+"/forward", e.token(t, sec))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got excuse.Request
		unmarshalBody(t, rec, &got)
		assert.Equal(t, excuse.StatusForwarded, got.Status)
		assert.Equal(t, sec.ID, got.ForwardedBy)

		rec = e.do(http.MethodPost, "/v1/excuses/"+req.ID+"/review", e.token(t, admin), []byte(`{"decision": "approved"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshalBody(t, rec, &got)
		assert.Equal(t, excuse.StatusApproved, got.Status)
		assert.Equal(t, admin.ID, got.ReviewedBy)

		rec = e.do(http.MethodGet, "/v1/events/"+event.ID+"/attendance", e.token(t, sec))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var records []attendance.Record
		unmarshalBody(t, rec, &records)
		require.Len(t, records, 1)
		assert.Equal(t, ada.ID, records[0].MemberID)
		assert.Equal(t, attendance.StatusExcused, records[0].Status)
	})

	t.Run("closed requests cannot be reviewed again", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/excuses/"+req.ID+"/review", e.token(t, admin), []byte(`{"decision": "denied", "notes": "changed my mind"}`))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("owners cannot delete decided requests", func(t *testing.T) {
		rec := e.do(http.MethodDelete, "/v1/excuses/"+req.ID, e.token(t, ada))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("mine", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/excuses/mine", e.token(t, ada))
		require.Equal(t, http.StatusOK, rec.Code)
		var got []excuse.Request
		unmarshalBody(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, req.ID, got[0].ID)

		rec = e.do(http.MethodGet, "/v1/excuses/mine", e.token(t, bea))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}, rec)
	})

	t.Run("admins can delete decided requests", func(t *testing.T) {
		rec := e.do(http.MethodDelete, "/v1/excuses/"+req.ID, e.token(t, admin))
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = e.do(http.MethodGet, "/v1/excuses/mine", e.token(t, ada))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}, rec)
	})
}

func Test_excuseApi_ownerDelete(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)
	bea := testutil.CreateMember(t, e.memberRepo, "Bea Alto", "bea@spelman.test", pwd, nil, true)

	var ids []string
	for _, title := range []string{"Sectional", "Dress Rehearsal"} {
		rec := e.do(http.MethodPost, "/v1/excuses", e.token(t, ada), marshalObj(t, map[string]string{
			"event_title": title,
			"event_date":  "2026-11-02T18:00:00Z",
			"reason":      "Biology midterm exam at the same time.",
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var r excuse.Request
		unmarshalBody(t, rec, &r)
		ids = append(ids, r.ID)
	}

	t.Run("others cannot delete it", func(t *testing.T) {
		rec := e.do(http.MethodDelete, "/v1/excuses/"+ids[0], e.token(t, bea))
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "excuse request not found"})}, rec)
	})

	t.Run("owner deletes a pending request", func(t *testing.T) {
		rec := e.do(http.MethodDelete, "/v1/excuses/"+ids[0], e.token(t, ada))
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = e.do(http.MethodGet, "/v1/excuses/mine", e.token(t, ada))
		require.Equal(t, http.StatusOK, rec.Code)
		var got []excuse.Request
		unmarshalBody(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, ids[1], got[0].ID)

		rec = e.do(http.MethodGet, "/v1/excuses/"+ids[0], e.token(t, ada))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_excuseApi_submitValidation(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)

	runHTTPTests(t, e, []httpTest{
		{
			name:     "reason too short",
			method:   http.MethodPost,
			path:     "/v1/excuses",
			body:     []byte(`{"event_title": "Sectional", "event_date": "2026-11-02T18:00:00Z", "reason": "sick"}`),
			token:    e.token(t, ada),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"reason": "reason must be at least 10 characters in length"}),
		},
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     "/v1/excuses",
			body:     []byte(`{}`),
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingToken),
		},
	})
}
