// Package testutil holds fixtures shared by the test suites.
package testutil

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/member"
	logsvc "github.com/gleeworld/gleeworld/services/logger"
)

// NewConfig returns the default configuration tuned for tests: no debug output and no rate limiting.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.SecretKey = "test-secret"
	conf.Server.RateLimit = 0
	return conf
}

// NewLogger returns a silent logger.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

func CreateMember(
	t *testing.T,
	repo member.Repository,
	name, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) member.Member {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	m := member.Member{
		ID:        uuid.New().String(),
		FullName:  name,
		Email:     email,
		Status:    member.StatusActive,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if m.Roles == nil {
		m.Roles = []string{member.RoleMember}
	}
	m.SetActive(isActive)
	if pwd != "" {
		if err := m.SetPassword(pwd); err != nil {
			t.Fatalf("CreateMember() failed: %v", err)
		}
	}
	m, err := repo.CreateMember(context.Background(), m)
	if err != nil {
		t.Fatalf("CreateMember() failed: %v", err)
	}
	return m
}

// FakeCompleter is a scripted core.Completer.
type FakeCompleter struct {
	mu sync.Mutex

	ToolArgs json.RawMessage
	JSON     json.RawMessage
	// Replies are handed out one per Chat call.
	Replies []core.ChatMessage
	Err     error

	Calls      int
	LastSystem string
	LastUser   string
	LastTool   string
	// LastChat holds the messages and tool names of the latest Chat call.
	LastChat      []core.ChatMessage
	LastChatTools []string
}

var _ core.Completer = (*FakeCompleter)(nil)

func (f *FakeCompleter) CallTool(_ context.Context, system, user string, tool core.Tool) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	f.LastSystem, f.LastUser, f.LastTool = system, user, tool.Name
	if f.Err != nil {
		return nil, f.Err
	}
	return f.ToolArgs, nil
}

func (f *FakeCompleter) CompleteJSON(_ context.Context, system, user string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	f.LastSystem, f.LastUser = system, user
	if f.Err != nil {
		return nil, f.Err
	}
	return f.JSON, nil
}

func (f *FakeCompleter) Chat(_ context.Context, system string, msgs []core.ChatMessage, tools []core.Tool) (core.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	f.LastSystem = system
	f.LastChat = append([]core.ChatMessage(nil), msgs...)
	f.LastChatTools = nil
	for _, tool := range tools {
		f.LastChatTools = append(f.LastChatTools, tool.Name)
	}
	if f.Err != nil {
		return core.ChatMessage{}, f.Err
	}
	if len(f.Replies) == 0 {
		return core.ChatMessage{Role: core.RoleAssistant}, nil
	}
	reply := f.Replies[0]
	f.Replies = f.Replies[1:]
	return reply, nil
}

func (f *FakeCompleter) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}
