package attendance

import (
	"testing"
)

func TestSummarize(t *testing.T) {
	rec := func(status string) Record { return Record{Status: status} }

	tests := []struct {
		name    string
		records []Record
		want    Summary
	}{
		{
			name: "no records",
			want: Summary{MemberID: "m", Rate: 100},
		},
		{
			name:    "late counts as attended",
			records: []Record{rec(StatusPresent), rec(StatusLate), rec(StatusAbsent), rec(StatusAbsent)},
			want:    Summary{MemberID: "m", Total: 4, Present: 1, Late: 1, Absent: 2, Rate: 50},
		},
		{
			name:    "excused records are left out of the rate",
			records: []Record{rec(StatusPresent), rec(StatusPresent), rec(StatusAbsent), rec(StatusExcused)},
			want:    Summary{MemberID: "m", Total: 4, Present: 2, Absent: 1, Excused: 1, Rate: 66.7},
		},
		{
			name:    "only excused",
			records: []Record{rec(StatusExcused)},
			want:    Summary{MemberID: "m", Total: 1, Excused: 1, Rate: 100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize("m", tt.records); got != tt.want {
				t.Errorf("Summarize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
