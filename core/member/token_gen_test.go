package member

import (
	"testing"
	"time"

	"github.com/gleeworld/gleeworld/core"
)

func TestMakeVerifyToken(t *testing.T) {
	conf := &core.Config{SecretKey: "secret", PasswordResetTimeoutDelta: 3 * 24 * time.Hour}
	svc := &Service{conf: conf}

	now := time.Now()
	m := Member{
		ID:        "0b7e3c1a-member",
		FullName:  "T",
		Email:     "t@spelman.test",
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	m.SetActive(true)
	_ = m.SetPassword("pwd")

	validToken, err := svc.makeToken(m)
	if err != nil {
		t.Fatalf("makeToken() failed: %v", err)
	}

	// generate an expired token
	dayLate := conf.PasswordResetTimeoutDelta + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, _ := svc.makeToken(m)
	nowFunc = time.Now // reset

	// logging in invalidates earlier tokens
	loggedIn := m
	loggedIn.LastLogin = now.Add(time.Minute)

	tests := []struct {
		name    string
		m       Member
		token   string
		wantErr error
	}{
		{name: "no token", m: m, wantErr: errInvalidToken},
		{name: "invalid parts len", m: m, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", m: m, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", m: m, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", m: m, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", m: m, token: expiredToken, wantErr: errTokenExpired},
		{name: "used token", m: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", m: m, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.verifyToken(tt.m, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	m := Member{ID: "5f0c2d7e-9a41-4b53-8f7e-1c2d3e4f5a6b"}
	got, err := decodeUID(EncodeUID(m))
	if err != nil {
		t.Fatalf("decodeUID() failed: %v", err)
	}
	if got != m.ID {
		t.Errorf("decodeUID() = %s, want %s", got, m.ID)
	}
	if _, err = decodeUID("not base64!"); err == nil {
		t.Error("decodeUID() error = nil, want error")
	}
}
