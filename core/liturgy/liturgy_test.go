package liturgy_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeworld/gleeworld/core/liturgy"
	inmemdb "github.com/gleeworld/gleeworld/storage/database/inmem"
	"github.com/gleeworld/gleeworld/testutil"
)

const christmasPage = `<html><body>
<h2>The Nativity of the Lord (Christmas) - Mass during the Day</h2>
<div class="b-verse">
  <h3 class="name">Reading 1</h3>
  <div class="address"><a href="#">Is 52:7-10</a></div>
  <div class="content-body"><p>How beautiful upon the mountains<br>are the feet of him who brings glad tidings</p></div>
</div>
<div class="b-verse">
  <h3 class="name">Responsorial Psalm</h3>
  <div class="address">Ps 98:1, 2-3, 3-4, 5-6</div>
  <div class="content-body">All the ends of the earth have seen the saving power of God.</div>
</div>
<div class="b-verse">
  <h3 class="name">Reading 2</h3>
  <div class="address">Heb 1:1-6</div>
  <div class="content-body">In times past, God spoke in partial and various ways.</div>
</div>
<div class="b-verse">
  <h3 class="name">Gospel</h3>
  <div class="address">Jn 1:1-18</div>
  <div class="content-body">In the beginning was the Word.</div>
</div>
</body></html>`

type sources struct {
	usccb    http.HandlerFunc
	calendar http.HandlerFunc
	hits     int32
}

func setup(t *testing.T, src *sources) *liturgy.Service {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&src.hits, 1)
		assert.Equal(t, "GleeWorld/1.0 Educational Use", r.UserAgent())
		switch {
		case len(r.URL.Path) > 7 && r.URL.Path[:7] == "/usccb/" && src.usccb != nil:
			src.usccb(w, r)
		case len(r.URL.Path) > 10 && r.URL.Path[:10] == "/calendar/" && src.calendar != nil:
			src.calendar(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	conf := testutil.NewConfig()
	conf.Liturgy.USCCBBaseURL = srv.URL + "/usccb"
	conf.Liturgy.CalendarAPIBaseURL = srv.URL + "/calendar/"
	return liturgy.NewService(inmemdb.NewLiturgyRepository(inmemdb.Open()), srv.Client(), conf, testutil.NewLogger(conf))
}

func TestService_Sync_usccb(t *testing.T) {
	var gotPath string
	src := &sources{usccb: func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(christmasPage))
	}}
	svc := setup(t, src)

	res, err := svc.Sync(context.Background(), "2026-12-25")
	require.NoError(t, err)
	assert.Equal(t, "/usccb/122526.cfm", gotPath)
	assert.True(t, res.Success)
	assert.Equal(t, liturgy.SourceUSCCB, res.Source)

	r := res.Data
	assert.Equal(t, "2026-12-25", r.Date)
	assert.Equal(t, "The Nativity of the Lord (Christmas) - Mass during the Day", r.Title)
	assert.Equal(t, liturgy.SeasonChristmas, r.LiturgicalSeason)
	assert.Equal(t, "White", r.SeasonColor)
	require.NotNil(t, r.FirstReading)
	assert.Equal(t, "Is 52:7-10", r.FirstReading.Citation)
	assert.Equal(t, "How beautiful upon the mountains\nare the feet of him who brings glad tidings", r.FirstReading.Text)
	require.NotNil(t, r.Psalm)
	assert.Equal(t, "Ps 98:1, 2-3, 3-4, 5-6", r.Psalm.Citation)
	require.NotNil(t, r.SecondReading)
	assert.Equal(t, "Heb 1:1-6", r.SecondReading.Citation)
	require.NotNil(t, r.Gospel)
	assert.Equal(t, "In the beginning was the Word.", r.Gospel.Text)
}

func TestService_Sync_calendarAPI(t *testing.T) {
	var gotPath string
	src := &sources{
		usccb: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html><body><p>Page moved</p></body></html>`))
		},
		calendar: func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"season": "ordinary", "season_week": 29, "celebrations": [
				{"title": "Saint Luke, evangelist", "colour": "red", "rank": "feast"},
				{"title": "Saint Someone", "colour": "white", "rank": "commemoration"}
			]}`))
		},
	}
	svc := setup(t, src)

	res, err := svc.Sync(context.Background(), "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, "/calendar/2026/10/18", gotPath)
	assert.Equal(t, liturgy.SourceCalendarAPI, res.Source)

	r := res.Data
	assert.Equal(t, "Saint Luke, evangelist", r.Title)
	assert.Equal(t, "Saint Luke, evangelist", r.SaintOfDay)
	assert.Equal(t, "Red", r.SeasonColor)
	assert.Equal(t, liturgy.SeasonOrdinary, r.LiturgicalSeason)
	assert.Equal(t, "feast", r.Rank)
	require.NotNil(t, r.SecondReading)
	require.NotNil(t, r.Gospel)
	assert.Contains(t, r.Gospel.Text, "/usccb/101826.cfm")
}

func TestService_Get(t *testing.T) {
	src := &sources{}
	svc := setup(t, src)
	ctx := context.Background()

	_, err := svc.Get(ctx, "18/10/2026")
	require.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&src.hits))

	// weekday: no second reading
	r, err := svc.Get(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, liturgy.SourceFallback, r.Source)
	assert.Nil(t, r.SecondReading)
	assert.Equal(t, "Weekday in Ordinary Time", r.SaintOfDay)
	assert.EqualValues(t, 2, atomic.LoadInt32(&src.hits))

	// served from storage
	again, err := svc.Get(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, r.Date, again.Date)
	assert.EqualValues(t, 2, atomic.LoadInt32(&src.hits))
}

func TestService_Sync_callerCancels(t *testing.T) {
	requested := make(chan struct{})
	release := make(chan struct{})
	src := &sources{usccb: func(w http.ResponseWriter, r *http.Request) {
		close(requested)
		<-release
		_, _ = w.Write([]byte(christmasPage))
	}}
	svc := setup(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		res liturgy.SyncResult
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := svc.Sync(ctx, "2026-12-25")
		done <- result{res, err}
	}()

	<-requested
	cancel()
	close(release)

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, liturgy.SourceUSCCB, got.res.Source)

	stored, err := svc.Get(context.Background(), "2026-12-25")
	require.NoError(t, err)
	assert.Equal(t, liturgy.SourceUSCCB, stored.Source)
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.hits))
}
