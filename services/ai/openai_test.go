package aisvc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/testutil"
)

type upstream struct {
	status   int
	body     string
	lastBody map[string]interface{}
	auth     string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	u.auth = r.Header.Get("Authorization")
	raw, _ := io.ReadAll(r.Body)
	u.lastBody = nil
	_ = json.Unmarshal(raw, &u.lastBody)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(u.status)
	_, _ = io.WriteString(w, u.body)
}

func newCompleter(t *testing.T) (*Completer, *upstream) {
	up := &upstream{}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	conf := testutil.NewConfig()
	conf.AI.APIKey = "sk-test"
	conf.AI.BaseURL = srv.URL + "/v1"
	conf.AI.Model = "gpt-test"
	return NewCompleter(conf), up
}

const toolCallBody = `{
	"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-test",
	"choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
		"role": "assistant", "content": "",
		"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "submit_grade", "arguments": "{\"overall_feedback\":\"Nice.\"}"}}]
	}}]
}`

const jsonBody = `{
	"id": "chatcmpl-2", "object": "chat.completion", "created": 1, "model": "gpt-test",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"grade\": 88}"}}]
}`

func errorBody(msg string) string {
	return `{"error": {"message": "` + msg + `", "type": "error", "code": null}}`
}

func TestCompleter_CallTool(t *testing.T) {
	c, up := newCompleter(t)
	tool := core.Tool{Name: "submit_grade", Parameters: map[string]interface{}{"type": "object"}}

	up.status, up.body = http.StatusOK, toolCallBody
	args, err := c.CallTool(context.Background(), "system", "user", tool)
	require.NoError(t, err)
	assert.JSONEq(t, `{"overall_feedback":"Nice."}`, string(args))
	assert.Equal(t, "Bearer sk-test", up.auth)
	assert.Equal(t, "gpt-test", up.lastBody["model"])
	require.NotNil(t, up.lastBody["tool_choice"])

	_, err = c.CallTool(context.Background(), "system", "user", core.Tool{Name: "submit_midterm_grades"})
	assert.EqualError(t, err, "model did not call submit_midterm_grades")
}

func TestCompleter_CompleteJSON(t *testing.T) {
	c, up := newCompleter(t)

	up.status, up.body = http.StatusOK, jsonBody
	out, err := c.CompleteJSON(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"grade": 88}`, string(out))
	format, ok := up.lastBody["response_format"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])

	up.body = `{"id": "chatcmpl-3", "object": "chat.completion", "choices": []}`
	_, err = c.CompleteJSON(context.Background(), "system", "user")
	assert.Equal(t, errNoChoice, err)
}

func TestCompleter_upstreamErrors(t *testing.T) {
	c, up := newCompleter(t)

	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: core.ErrRateLimited},
		{name: "credits exhausted", status: http.StatusPaymentRequired, wantErr: core.ErrCreditsExhausted},
		{name: "server error", status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up.status, up.body = tt.status, errorBody(http.StatusText(tt.status))

			_, err := c.CompleteJSON(context.Background(), "system", "user")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			assert.NotEqual(t, core.ErrRateLimited, errors.Cause(err))
			assert.NotEqual(t, core.ErrCreditsExhausted, errors.Cause(err))
			assert.Contains(t, err.Error(), "chat completion")
		})
	}
}

func TestCompleter_Chat(t *testing.T) {
	c, up := newCompleter(t)
	tool := core.Tool{Name: "open_score", Parameters: map[string]interface{}{"type": "object"}}

	up.status, up.body = http.StatusOK, strings.Replace(toolCallBody, "submit_grade", "open_score", 1)
	reply, err := c.Chat(context.Background(), "system", []core.ChatMessage{{Role: core.RoleUser, Content: "open it"}}, []core.Tool{tool})
	require.NoError(t, err)
	assert.Equal(t, core.RoleAssistant, reply.Role)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "call_1", reply.ToolCalls[0].ID)
	assert.Equal(t, "open_score", reply.ToolCalls[0].Name)
	assert.Equal(t, "auto", up.lastBody["tool_choice"])
	msgs, ok := up.lastBody["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])

	// tool results go back without tools
	up.body = jsonBody
	follow := []core.ChatMessage{
		{Role: core.RoleUser, Content: "open it"},
		reply,
		{Role: core.RoleTool, Content: `{"success": true}`, ToolCallID: "call_1"},
	}
	reply, err = c.Chat(context.Background(), "system", follow, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"grade": 88}`, reply.Content)
	assert.Nil(t, up.lastBody["tools"])
	assert.Nil(t, up.lastBody["tool_choice"])
	msgs = up.lastBody["messages"].([]interface{})
	require.Len(t, msgs, 4)
	assert.Equal(t, "call_1", msgs[3].(map[string]interface{})["tool_call_id"])

	up.status, up.body = http.StatusTooManyRequests, errorBody("slow down")
	_, err = c.Chat(context.Background(), "system", follow, nil)
	assert.Equal(t, core.ErrRateLimited, err)
}
