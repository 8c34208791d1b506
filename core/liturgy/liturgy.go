// Package liturgy provides the daily liturgical readings used to plan sacred repertoire.
package liturgy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/gleeworld/gleeworld/core"
)

// Sources
const (
	SourceUSCCB       = "usccb"
	SourceCalendarAPI = "calendar_api"
	SourceFallback    = "fallback"
)

const (
	dateLayout      = "2006-01-02"
	userAgent       = "GleeWorld/1.0 Educational Use"
	usccbTimeout    = 5 * time.Second
	calendarTimeout = 10 * time.Second
	syncTimeout     = 30 * time.Second
)

var (
	ErrNotFound = errors.New("readings not found")

	errBadDate = errors.New("date must be formatted YYYY-MM-DD")
)

type Reading struct {
	Citation string `json:"citation"`
	Text     string `json:"text"`
}

type Readings struct {
	Date             string    `json:"date"`
	Title            string    `json:"title"`
	LiturgicalSeason string    `json:"liturgical_season"`
	SeasonColor      string    `json:"season_color"`
	SaintOfDay       string    `json:"saint_of_day"`
	Rank             string    `json:"rank"`
	FirstReading     *Reading  `json:"first_reading"`
	Psalm            *Reading  `json:"psalm"`
	SecondReading    *Reading  `json:"second_reading"`
	Gospel           *Reading  `json:"gospel"`
	Source           string    `json:"source"`
	FetchedAt        time.Time `json:"fetched_at"`
}

type SyncResult struct {
	Success bool     `json:"success"`
	Data    Readings `json:"data"`
	Source  string   `json:"source"`
	Note    string   `json:"note"`
}

type Repository interface {
	GetReadings(ctx context.Context, date string) (Readings, error)
	// SaveReadings inserts or replaces the readings of r.Date.
	SaveReadings(ctx context.Context, r Readings) error
}

type Service struct {
	repo   Repository
	client *http.Client
	conf   core.LiturgyConfig
	logger core.Logger
	group  singleflight.Group
}

func NewService(repo Repository, client *http.Client, conf *core.Config, logger core.Logger) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	return &Service{repo: repo, client: client, conf: conf.Liturgy, logger: logger}
}

// ParseDate validates a YYYY-MM-DD date. An empty date means today (UTC).
func ParseDate(s string) (time.Time, error) {
	s = core.CleanString(s)
	if s == "" {
		return core.NowFunc().Truncate(24 * time.Hour), nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, core.NewFieldError("date", errBadDate.Error())
	}
	return d, nil
}

// Get returns the stored readings of the date, syncing them on a miss.
func (svc *Service) Get(ctx context.Context, date string) (Readings, error) {
	day, err := ParseDate(date)
	if err != nil {
		return Readings{}, err
	}
	r, err := svc.repo.GetReadings(ctx, day.Format(dateLayout))
	if err == nil {
		return r, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Readings{}, err
	}
	res, err := svc.Sync(ctx, date)
	if err != nil {
		return Readings{}, err
	}
	return res.Data, nil
}

// Sync fetches and stores the readings of the date: from the USCCB site, else the liturgical
// calendar API, else a computed fallback. Concurrent syncs of one date share a single fetch.
func (svc *Service) Sync(ctx context.Context, date string) (SyncResult, error) {
	day, err := ParseDate(date)
	if err != nil {
		return SyncResult{}, err
	}
	key := day.Format(dateLayout)
	v, err, _ := svc.group.Do(key, func() (interface{}, error) {
		// detached: the fetch is shared by every caller of the date
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), syncTimeout)
		defer cancel()
		r := svc.fetch(fctx, day)
		if err := svc.repo.SaveReadings(fctx, r); err != nil {
			return Readings{}, errors.Wrap(err, "saving readings")
		}
		return r, nil
	})
	if err != nil {
		return SyncResult{}, err
	}
	r := v.(Readings)
	return SyncResult{Success: true, Data: r, Source: r.Source, Note: noteFor(r.Source)}, nil
}

func noteFor(source string) string {
	switch source {
	case SourceUSCCB:
		return "Readings from the USCCB daily readings."
	case SourceCalendarAPI:
		return "Celebration from the liturgical calendar; full texts are on the USCCB daily readings page."
	}
	return "Computed liturgical data; full texts are on the USCCB daily readings page."
}

func (svc *Service) fetch(ctx context.Context, day time.Time) Readings {
	r, err := svc.fromUSCCB(ctx, day)
	if err == nil {
		return r
	}
	svc.logger.Warn("usccb readings unavailable", err, map[string]interface{}{"date": day.Format(dateLayout)})

	r, err = svc.fromCalendarAPI(ctx, day)
	if err == nil {
		return r
	}
	svc.logger.Warn("liturgical calendar unavailable", err, map[string]interface{}{"date": day.Format(dateLayout)})
	return svc.fallback(day)
}

func (svc *Service) usccbURL(day time.Time) string {
	return fmt.Sprintf("%s/%s.cfm", strings.TrimRight(svc.conf.USCCBBaseURL, "/"), day.Format("010206"))
}

func (svc *Service) get(ctx context.Context, url, accept string, timeout time.Duration) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	resp, err := svc.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, nil, errors.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return resp, cancel, nil
}

func (svc *Service) fromUSCCB(ctx context.Context, day time.Time) (Readings, error) {
	resp, cancel, err := svc.get(ctx, svc.usccbURL(day), "text/html,application/xhtml+xml", usccbTimeout)
	if err != nil {
		return Readings{}, err
	}
	defer cancel()
	defer resp.Body.Close()

	r, ok, err := parseUSCCB(resp.Body)
	if err != nil {
		return Readings{}, errors.Wrap(err, "parsing usccb page")
	}
	if !ok {
		return Readings{}, errors.New("usccb page has no readings")
	}
	season := SeasonOf(day)
	r.Date = day.Format(dateLayout)
	r.LiturgicalSeason = season
	r.SeasonColor = ColorOf(season)
	r.SaintOfDay = SaintOf(day)
	if r.Title == "" {
		r.Title = "Daily Readings for " + day.Format("Monday, January 2, 2006")
	}
	r.Source = SourceUSCCB
	r.FetchedAt = core.NowFunc()
	return r, nil
}

type calendarDay struct {
	Season       string `json:"season"`
	SeasonWeek   int    `json:"season_week"`
	Celebrations []struct {
		Title  string `json:"title"`
		Colour string `json:"colour"`
		Rank   string `json:"rank"`
	} `json:"celebrations"`
}

var calendarSeasons = map[string]string{
	"advent":    SeasonAdvent,
	"christmas": SeasonChristmas,
	"lent":      SeasonLent,
	"easter":    SeasonEaster,
	"ordinary":  SeasonOrdinary,
}

func (svc *Service) fromCalendarAPI(ctx context.Context, day time.Time) (Readings, error) {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(svc.conf.CalendarAPIBaseURL, "/"), day.Format("2006/01/02"))
	resp, cancel, err := svc.get(ctx, url, "application/json", calendarTimeout)
	if err != nil {
		return Readings{}, err
	}
	defer cancel()
	defer resp.Body.Close()

	var cd calendarDay
	if err = json.NewDecoder(resp.Body).Decode(&cd); err != nil {
		return Readings{}, errors.Wrap(err, "decoding calendar day")
	}

	r := svc.placeholder(day)
	if season, ok := calendarSeasons[strings.ToLower(cd.Season)]; ok {
		r.LiturgicalSeason = season
		r.SeasonColor = ColorOf(season)
	}
	var saints []string
	for i, c := range cd.Celebrations {
		if i == 0 {
			r.Rank = c.Rank
			r.Title = c.Title
			if c.Colour != "" {
				r.SeasonColor = colourName(c.Colour)
			}
		}
		if c.Rank != "commemoration" {
			saints = append(saints, c.Title)
		}
	}
	if len(saints) > 0 {
		r.SaintOfDay = strings.Join(saints, ", ")
	}
	r.SecondReading = nil
	if hasSecondReading(day, r.Rank) {
		r.SecondReading = svc.placeholderReading(day, "second reading")
	}
	r.Source = SourceCalendarAPI
	return r, nil
}

func colourName(c string) string {
	if strings.EqualFold(c, "violet") {
		return "Purple"
	}
	c = strings.ToLower(c)
	if c == "" {
		return c
	}
	return strings.ToUpper(c[:1]) + c[1:]
}

func hasSecondReading(day time.Time, rank string) bool {
	rank = strings.ToLower(rank)
	return day.Weekday() == time.Sunday || strings.Contains(rank, "solemnity") || strings.Contains(rank, "feast")
}

func (svc *Service) placeholderReading(day time.Time, what string) *Reading {
	return &Reading{
		Citation: "USCCB Daily Readings",
		Text:     fmt.Sprintf("The %s for %s is available at %s", what, day.Format("Monday, January 2, 2006"), svc.usccbURL(day)),
	}
}

func (svc *Service) placeholder(day time.Time) Readings {
	season := SeasonOf(day)
	return Readings{
		Date:             day.Format(dateLayout),
		Title:            "Daily Readings for " + day.Format("Monday, January 2, 2006"),
		LiturgicalSeason: season,
		SeasonColor:      ColorOf(season),
		SaintOfDay:       SaintOf(day),
		FirstReading:     svc.placeholderReading(day, "first reading"),
		Psalm:            svc.placeholderReading(day, "responsorial psalm"),
		Gospel:           svc.placeholderReading(day, "gospel"),
		FetchedAt:        core.NowFunc(),
	}
}

// fallback computes the readings metadata of the day without any remote source.
func (svc *Service) fallback(day time.Time) Readings {
	r := svc.placeholder(day)
	if hasSecondReading(day, "") {
		r.SecondReading = svc.placeholderReading(day, "second reading")
	}
	r.Source = SourceFallback
	return r
}

// SyncToday is run by the scheduler.
func (svc *Service) SyncToday(ctx context.Context) {
	res, err := svc.Sync(ctx, "")
	if err != nil {
		svc.logger.Error("syncing today's readings", err)
		return
	}
	svc.logger.Info("liturgical readings synced", map[string]interface{}{"date": res.Data.Date, "source": res.Source})
}
