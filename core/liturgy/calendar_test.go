package liturgy

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEasterSunday(t *testing.T) {
	tests := []struct {
		year int
		want time.Time
	}{
		{2000, date(2000, time.April, 23)},
		{2024, date(2024, time.March, 31)},
		{2025, date(2025, time.April, 20)},
		{2026, date(2026, time.April, 5)},
		{2027, date(2027, time.March, 28)},
	}
	for _, tt := range tests {
		if got := EasterSunday(tt.year); !got.Equal(tt.want) {
			t.Errorf("EasterSunday(%d) = %s, want %s", tt.year, got.Format(dateLayout), tt.want.Format(dateLayout))
		}
	}
}

func TestSeasonOf(t *testing.T) {
	tests := []struct {
		day  time.Time
		want string
	}{
		{date(2026, time.January, 5), SeasonChristmas},
		{date(2026, time.January, 11), SeasonChristmas}, // Baptism of the Lord
		{date(2026, time.January, 12), SeasonOrdinary},
		{date(2026, time.February, 17), SeasonOrdinary},
		{date(2026, time.February, 18), SeasonLent}, // Ash Wednesday
		{date(2026, time.April, 4), SeasonLent},
		{date(2026, time.April, 5), SeasonEaster},
		{date(2026, time.May, 24), SeasonEaster}, // Pentecost
		{date(2026, time.May, 25), SeasonOrdinary},
		{date(2026, time.November, 28), SeasonOrdinary},
		{date(2026, time.November, 29), SeasonAdvent},
		{date(2026, time.December, 24), SeasonAdvent},
		{date(2026, time.December, 25), SeasonChristmas},
		{time.Date(2026, time.December, 31, 23, 59, 0, 0, time.UTC), SeasonChristmas},
	}
	for _, tt := range tests {
		if got := SeasonOf(tt.day); got != tt.want {
			t.Errorf("SeasonOf(%s) = %s, want %s", tt.day.Format(dateLayout), got, tt.want)
		}
	}
}

func TestColorOf(t *testing.T) {
	tests := map[string]string{
		SeasonAdvent:    "Purple",
		SeasonLent:      "Purple",
		SeasonChristmas: "White",
		SeasonEaster:    "White",
		SeasonOrdinary:  "Green",
		"":              "Green",
	}
	for season, want := range tests {
		if got := ColorOf(season); got != want {
			t.Errorf("ColorOf(%q) = %s, want %s", season, got, want)
		}
	}
}

func TestSaintOf(t *testing.T) {
	tests := []struct {
		day  time.Time
		want string
	}{
		{date(2026, time.December, 25), "Nativity of the Lord"},
		{date(2026, time.November, 1), "All Saints"},
		{date(2026, time.October, 18), "Sunday in Ordinary Time"},
		{date(2026, time.October, 19), "Weekday in Ordinary Time"},
		{date(2026, time.March, 4), "Weekday in Lent"},
	}
	for _, tt := range tests {
		if got := SaintOf(tt.day); got != tt.want {
			t.Errorf("SaintOf(%s) = %s, want %s", tt.day.Format(dateLayout), got, tt.want)
		}
	}
}

func TestColourName(t *testing.T) {
	for in, want := range map[string]string{"violet": "Purple", "RED": "Red", "green": "Green", "": ""} {
		if got := colourName(in); got != want {
			t.Errorf("colourName(%q) = %q, want %q", in, got, want)
		}
	}
}
