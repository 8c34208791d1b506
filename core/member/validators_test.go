package member

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func Test_checkPasswordPolicy(t *testing.T) {
	LoadCommonPasswords(fstest.MapFS{
		"common.txt": {Data: []byte("qwerty\n  Password1!  \n\nletmein\n")},
	}, "common.txt", nopLogger{})
	defer func() { commonPasswords = nil }()
	assert.Equal(t, []string{"letmein", "password1!", "qwerty"}, commonPasswords)

	tests := []struct {
		name  string
		pwd   string
		attrs []string
		want  string
	}{
		{name: "too short", pwd: "Ab1!", want: pwdMinLenTag},
		{name: "whitespace", pwd: "Glee Club 2026!", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "no special", pwd: "GleeClub2026", want: pwdComplexityTag},
		{name: "no upper", pwd: "gleeclub-2026", want: pwdComplexityTag},
		{name: "similar to name", pwd: "Adasoprano1!", attrs: []string{"Ada Soprano", "ada@spelman.test"}, want: pwdAttrSimTag},
		{name: "common", pwd: "Password1!", want: pwdNoCommonTag},
		{name: "ok", pwd: "Gl33-Club!Admin", attrs: []string{"Ada Soprano", "ada@spelman.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkPasswordPolicy(tt.pwd, tt.attrs...); got != tt.want {
				t.Errorf("checkPasswordPolicy(%q) = %q, want %q", tt.pwd, got, tt.want)
			}
		})
	}
}

func TestLoadCommonPasswords_missingFile(t *testing.T) {
	commonPasswords = []string{"kept"}
	defer func() { commonPasswords = nil }()
	LoadCommonPasswords(fstest.MapFS{}, "nope.txt", nopLogger{})
	assert.Equal(t, []string{"kept"}, commonPasswords)
}

func TestNormalizePosition(t *testing.T) {
	tests := []struct {
		pos    string
		want   string
		isExec bool
	}{
		{pos: "President", want: "president", isExec: true},
		{pos: " Tour Manager ", want: "tour_manager", isExec: true},
		{pos: "section-leader-s1", want: "section_leader_s1", isExec: true},
		{pos: "PR_Coordinator", want: "pr_coordinator", isExec: true},
		{pos: "chief of vibes", want: "chief_of_vibes"},
		{pos: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePosition(tt.pos))
		assert.Equal(t, tt.isExec, IsExecPosition(tt.pos), tt.pos)
	}
}
