package liturgy

import (
	"fmt"
	"strings"
	"time"
)

// Seasons
const (
	SeasonAdvent    = "Advent"
	SeasonChristmas = "Christmas"
	SeasonLent      = "Lent"
	SeasonEaster    = "Easter"
	SeasonOrdinary  = "Ordinary Time"
)

// EasterSunday computes the date of Easter in the Gregorian calendar (anonymous Gregorian algorithm).
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// firstSundayOfAdvent is the fourth Sunday before Christmas.
func firstSundayOfAdvent(year int) time.Time {
	christmas := time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC)
	back := int(christmas.Weekday())
	if back == 0 {
		back = 7
	}
	return christmas.AddDate(0, 0, -back-21)
}

// baptismOfTheLord ends the Christmas season: the Sunday after January 6.
func baptismOfTheLord(year int) time.Time {
	epiphany := time.Date(year, time.January, 6, 0, 0, 0, 0, time.UTC)
	ahead := 7 - int(epiphany.Weekday())
	return epiphany.AddDate(0, 0, ahead)
}

// SeasonOf returns the liturgical season of the given day.
func SeasonOf(day time.Time) string {
	y, m, d := day.Date()
	day = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	easter := EasterSunday(y)
	ashWednesday := easter.AddDate(0, 0, -46)
	pentecost := easter.AddDate(0, 0, 49)
	switch {
	case !day.After(baptismOfTheLord(y)):
		return SeasonChristmas
	case !day.Before(ashWednesday) && day.Before(easter):
		return SeasonLent
	case !day.Before(easter) && !day.After(pentecost):
		return SeasonEaster
	case m == time.December && d >= 25:
		return SeasonChristmas
	case !day.Before(firstSundayOfAdvent(y)):
		return SeasonAdvent
	}
	return SeasonOrdinary
}

// ColorOf maps a season to its vestment colour.
func ColorOf(season string) string {
	s := strings.ToLower(season)
	switch {
	case strings.Contains(s, "advent"), strings.Contains(s, "lent"):
		return "Purple"
	case strings.Contains(s, "christmas"), strings.Contains(s, "easter"):
		return "White"
	}
	return "Green"
}

var fixedCelebrations = map[string]string{
	"1-1":   "Mary, Mother of God",
	"1-6":   "Epiphany of the Lord",
	"3-19":  "Saint Joseph",
	"3-25":  "Annunciation of the Lord",
	"6-24":  "Birth of John the Baptist",
	"6-29":  "Saints Peter and Paul",
	"8-15":  "Assumption of Mary",
	"11-1":  "All Saints",
	"11-2":  "All Souls",
	"12-8":  "Immaculate Conception",
	"12-25": "Nativity of the Lord",
}

// SaintOf returns the fixed celebration of the day, or a weekday title.
func SaintOf(day time.Time) string {
	if s, ok := fixedCelebrations[fmt.Sprintf("%d-%d", day.Month(), day.Day())]; ok {
		return s
	}
	season := SeasonOf(day)
	if day.Weekday() == time.Sunday {
		return "Sunday in " + season
	}
	return "Weekday in " + season
}
