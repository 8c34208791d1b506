// Package aisvc talks to an OpenAI-compatible chat-completion API.
package aisvc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/gleeworld/gleeworld/core"
)

var errNoChoice = errors.New("model returned no choice")

type Completer struct {
	client *openai.Client
	model  string
}

var _ core.Completer = (*Completer)(nil)

func NewCompleter(conf *core.Config) *Completer {
	cfg := openai.DefaultConfig(conf.AI.APIKey)
	if conf.AI.BaseURL != "" {
		cfg.BaseURL = conf.AI.BaseURL
	}
	return &Completer{client: openai.NewClientWithConfig(cfg), model: conf.AI.Model}
}

func messages(system, user string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
}

func (c *Completer) CallTool(ctx context.Context, system, user string, tool core.Tool) (json.RawMessage, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages(system, user),
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: tool.Name},
		},
	})
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errNoChoice
	}
	for _, call := range resp.Choices[0].Message.ToolCalls {
		if call.Function.Name == tool.Name {
			return json.RawMessage(call.Function.Arguments), nil
		}
	}
	return nil, errors.Errorf("model did not call %s", tool.Name)
}

func (c *Completer) CompleteJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages(system, user),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errNoChoice
	}
	return json.RawMessage(resp.Choices[0].Message.Content), nil
}

func (c *Completer) Chat(ctx context.Context, system string, msgs []core.ChatMessage, tools []core.Tool) (core.ChatMessage, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(msgs)+1),
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range msgs {
		om := openai.ChatCompletionMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
		for _, call := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, openai.ToolCall{
				ID:       call.ID,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: call.Name, Arguments: string(call.Arguments)},
			})
		}
		req.Messages = append(req.Messages, om)
	}
	for _, tool := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return core.ChatMessage{}, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return core.ChatMessage{}, errNoChoice
	}
	msg := resp.Choices[0].Message
	out := core.ChatMessage{Role: core.RoleAssistant, Content: msg.Content}
	for _, call := range msg.ToolCalls {
		args := call.Function.Arguments
		if args == "" {
			args = "{}"
		}
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{ID: call.ID, Name: call.Function.Name, Arguments: json.RawMessage(args)})
	}
	return out, nil
}

// mapError translates upstream rate-limit and billing failures to core errors.
func mapError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch status {
	case http.StatusTooManyRequests:
		return core.ErrRateLimited
	case http.StatusPaymentRequired:
		return core.ErrCreditsExhausted
	}
	return errors.Wrap(err, "chat completion")
}
