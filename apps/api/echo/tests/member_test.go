package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeworld/gleeworld/core/member"
	emailsvc "github.com/gleeworld/gleeworld/services/email"
	"github.com/gleeworld/gleeworld/testutil"
)

const pwd = "Gl33-Club!Rehearsal"

func Test_memberApi_login(t *testing.T) {
	e := setup(t)
	testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)
	testutil.CreateMember(t, e.memberRepo, "Old Alto", "old@spelman.test", pwd, nil, false)

	tests := []httpTest{
		{
			name:     "missing email",
			method:   http.MethodPost,
			path:     "/v1/members/login",
			body:     []byte(`{"password": "whatever"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "this field is required"}),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/v1/members/login",
			body:     []byte(`{"email": "ada@spelman.test", "password": "nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/v1/members/login",
			body:     []byte(`{"email": "ghost@spelman.test", "password": "` + pwd + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated",
			method:   http.MethodPost,
			path:     "/v1/members/login",
			body:     []byte(`{"email": "old@spelman.test", "password": "` + pwd + `"}`),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	runHTTPTests(t, e, tests)

	t.Run("success", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/members/login", "", []byte(`{"email": " ADA@spelman.test ", "password": "`+pwd+`"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Token string `json:"token"`
		}
		unmarshalBody(t, rec, &resp)
		require.NotEmpty(t, resp.Token)

		rec = e.do(http.MethodGet, "/v1/members/me", resp.Token)
		require.Equal(t, http.StatusOK, rec.Code)
		var me member.Member
		unmarshalBody(t, rec, &me)
		assert.Equal(t, "ada@spelman.test", me.Email)
		assert.False(t, me.LastLogin.IsZero())
	})
}

func Test_memberApi_me(t *testing.T) {
	e := setup(t)

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     "/v1/members/me",
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errMissingToken),
		},
		{
			name:     "garbage token",
			method:   http.MethodGet,
			path:     "/v1/members/me",
			token:    "not.a.jwt",
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
	}
	runHTTPTests(t, e, tests)
}

func Test_memberApi_query(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)
	pres := testutil.CreateMember(t, e.memberRepo, "Pat President", "pat@spelman.test", pwd, []string{member.RoleExecBoard}, true)

	t.Run("members cannot list", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/members", e.token(t, ada))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}, rec)
	})

	t.Run("exec board can list", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/members?ordering=email", e.token(t, pres))
		require.Equal(t, http.StatusOK, rec.Code)
		var got []member.Member
		unmarshalBody(t, rec, &got)
		require.Len(t, got, 2)
		assert.Equal(t, "ada@spelman.test", got[0].Email)
		assert.Equal(t, "pat@spelman.test", got[1].Email)
	})

	t.Run("members see themselves only", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/members/"+pres.ID, e.token(t, ada))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = e.do(http.MethodGet, "/v1/members/"+ada.ID, e.token(t, ada))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_memberApi_register(t *testing.T) {
	e := setup(t)
	exec := testutil.CreateMember(t, e.memberRepo, "Pat President", "pat@spelman.test", pwd, []string{member.RoleExecBoard}, true)
	admin := testutil.CreateMember(t, e.memberRepo, "Ann Admin", "ann@spelman.test", pwd, []string{member.RoleAdmin}, true)

	body := func(roles ...string) []byte {
		return marshalObj(t, map[string]interface{}{
			"full_name":        "Nia New",
			"email":            "nia@spelman.test",
			"password":         pwd,
			"password_confirm": pwd,
			"roles":            roles,
		})
	}

	tests := []httpTest{
		{
			name:     "exec board cannot register",
			method:   http.MethodPost,
			path:     "/v1/members/register",
			body:     body(member.RoleMember),
			token:    e.token(t, exec),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name:     "admin cannot grant super admin",
			method:   http.MethodPost,
			path:     "/v1/members/register",
			body:     body(member.RoleAdminSuper),
			token:    e.token(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
	}
	runHTTPTests(t, e, tests)

	t.Run("admin registers a member", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/members/register", e.token(t, admin), body(member.RoleMember))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var m member.Member
		unmarshalBody(t, rec, &m)
		assert.Equal(t, "nia@spelman.test", m.Email)
		assert.Equal(t, []string{member.RoleMember}, m.Roles)
	})
}

func Test_memberApi_destroy(t *testing.T) {
	e := setup(t)
	admin := testutil.CreateMember(t, e.memberRepo, "Ann Admin", "ann@spelman.test", pwd, []string{member.RoleAdmin}, true)
	ada := testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)

	rec := e.do(http.MethodDelete, "/v1/members/"+admin.ID, e.token(t, admin))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodDelete, "/v1/members/"+ada.ID, e.token(t, admin))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(http.MethodGet, "/v1/members/"+ada.ID, e.token(t, admin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_memberApi_passwordReset(t *testing.T) {
	e := setup(t)
	testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)
	emailsvc.ClearSentMessages()

	success := marshalObj(t, map[string]string{
		"success": "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	// unknown addresses get the same answer
	rec := e.do(http.MethodPost, "/v1/members/password-reset", "", []byte(`{"email": "ghost@spelman.test"}`))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: success}, rec)
	assert.Empty(t, emailsvc.SentMessages())

	rec = e.do(http.MethodPost, "/v1/members/password-reset", "", []byte(`{"email": "ada@spelman.test"}`))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: success}, rec)
	msgs := emailsvc.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ada@spelman.test", msgs[0].To[0].Address)
}

func Test_memberApi_execPositions(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)

	rec := e.do(http.MethodGet, "/v1/members/exec-positions", e.token(t, ada))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, member.ExecPositions)}, rec)
}
