package tests

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeworld/gleeworld/core/member"
	"github.com/gleeworld/gleeworld/core/radio"
	"github.com/gleeworld/gleeworld/testutil"
)

func addTracks(t *testing.T, e *env, token string, titles ...string) []radio.Track {
	t.Helper()
	tracks := make([]radio.Track, 0, len(titles))
	for i, title := range titles {
		rec := e.do(http.MethodPost, "/v1/radio/tracks", token, marshalObj(t, map[string]interface{}{
			"title":            title,
			"audio_url":        "https://cdn.spelman.test/radio/" + strings.ReplaceAll(strings.ToLower(title), " ", "-") + ".mp3",
			"duration_seconds": 180,
			"position":         i,
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var tr radio.Track
		unmarshalBody(t, rec, &tr)
		tracks = append(tracks, tr)
	}
	return tracks
}

func Test_radioApi(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)
	dj := testutil.CreateMember(t, e.memberRepo, "Dee Jay", "dee@spelman.test", pwd, []string{member.RoleExecBoard}, true)

	t.Run("members cannot add tracks", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/radio/tracks", e.token(t, ada), []byte(`{"title": "Lift Every Voice", "audio_url": "https://cdn.spelman.test/a.mp3"}`))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}, rec)
	})

	t.Run("nothing to toggle", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/radio/toggle", e.token(t, dj), []byte(`{"position": 0}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	tracks := addTracks(t, e, e.token(t, dj), "Lift Every Voice", "Ave Maria")

	t.Run("first track is cued", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/v1/radio/state", e.token(t, ada))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var s radio.State
		unmarshalBody(t, rec, &s)
		assert.Equal(t, tracks[0].ID, s.CurrentTrackID)
		assert.Equal(t, radio.DefaultArtist, s.Artist)
		assert.False(t, s.IsPlaying)
	})

	t.Run("toggle and sync", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/radio/toggle", e.token(t, dj), []byte(`{"position": 30}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var s radio.State
		unmarshalBody(t, rec, &s)
		assert.True(t, s.IsPlaying)
		require.NotNil(t, s.StartedAt)
		assert.Equal(t, 30.0, s.PlaybackPositionSeconds)

		rec = e.do(http.MethodGet, "/v1/radio/sync?position=30", e.token(t, ada))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res radio.SyncResult
		unmarshalBody(t, rec, &res)
		assert.False(t, res.Seek)
		assert.GreaterOrEqual(t, res.TargetPosition, 30.0)

		rec = e.do(http.MethodGet, "/v1/radio/sync?position=0", e.token(t, ada))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshalBody(t, rec, &res)
		assert.True(t, res.Seek)
	})

	t.Run("next wraps around and keeps playing", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/v1/radio/next", e.token(t, dj))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var s radio.State
		unmarshalBody(t, rec, &s)
		assert.Equal(t, tracks[1].ID, s.CurrentTrackID)
		assert.True(t, s.IsPlaying)
		assert.Zero(t, s.PlaybackPositionSeconds)

		rec = e.do(http.MethodPost, "/v1/radio/next", e.token(t, dj))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshalBody(t, rec, &s)
		assert.Equal(t, tracks[0].ID, s.CurrentTrackID)
	})
}

func Test_radioApi_websocket(t *testing.T) {
	e := setup(t)
	ada := testutil.CreateMember(t, e.memberRepo, "Ada Soprano", "ada@spelman.test", pwd, nil, true)
	dj := testutil.CreateMember(t, e.memberRepo, "Dee Jay", "dee@spelman.test", pwd, []string{member.RoleExecBoard}, true)
	tracks := addTracks(t, e, e.token(t, dj), "Lift Every Voice", "Ave Maria")

	srv := httptest.NewServer(e.app)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/radio/ws"

	t.Run("token required", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer " + e.token(t, ada)}})
	require.NoError(t, err)
	defer conn.Close()

	read := func() radio.State {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var s radio.State
		require.NoError(t, conn.ReadJSON(&s))
		return s
	}

	initial := read()
	assert.Equal(t, tracks[0].ID, initial.CurrentTrackID)
	assert.Equal(t, 1, e.hub.ListenerCount())

	rec := e.do(http.MethodPost, "/v1/radio/toggle", e.token(t, dj), []byte(`{"position": 12.5}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s := read()
	assert.True(t, s.IsPlaying)
	assert.Equal(t, 12.5, s.PlaybackPositionSeconds)

	rec = e.do(http.MethodPost, "/v1/radio/next", e.token(t, dj))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	s = read()
	assert.Equal(t, tracks[1].ID, s.CurrentTrackID)
	assert.Equal(t, "Ave Maria", s.Title)
}
