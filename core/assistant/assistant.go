// Package assistant is the Glee Assistant: a chat helper that looks things up in GleeWorld
// through LLM tool calls and hands UI actions back to the client.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/attendance"
	"github.com/gleeworld/gleeworld/core/grading"
	"github.com/gleeworld/gleeworld/core/library"
	"github.com/gleeworld/gleeworld/core/member"
)

const (
	defaultDaysAhead = 7
	maxDaysAhead     = 90
	maxEvents        = 10
	maxScores        = 5
	maxRecipients    = 3
)

// Pages the assistant can send a member to.
var pageRoutes = map[string]string{
	"dashboard":      "/dashboard",
	"music-library":  "/music-library",
	"calendar":       "/calendar",
	"glee-academy":   "/glee-academy",
	"email-composer": "/compose",
	"notifications":  "/notifications",
	"radio":          "/radio",
}

type (
	AssignmentLister interface {
		Assignments(ctx context.Context) ([]grading.Assignment, error)
	}

	EventQuerier interface {
		QueryEvents(ctx context.Context, filter *attendance.EventFilter, ordering []core.DBOrdering) ([]attendance.Event, error)
	}

	Catalogue interface {
		Get(ctx context.Context, id string) (library.SheetMusic, error)
		Query(ctx context.Context, filter *library.Filter, ordering []core.DBOrdering) ([]library.SheetMusic, error)
	}

	Directory interface {
		Query(ctx context.Context, filter *member.QueryFilter, ordering []core.DBOrdering) ([]member.Member, error)
	}
)

type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=4000"`
}

type Request struct {
	Messages []Message `json:"messages" validate:"required,min=1,max=50,dive"`
}

func (r *Request) Validate(validate *validator.Validate) error {
	for i := range r.Messages {
		r.Messages[i].Role = core.CleanString(r.Messages[i].Role, true /* lower */)
		r.Messages[i].Content = strings.TrimSpace(r.Messages[i].Content)
	}
	return validate.Struct(r)
}

type Recipient struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Action is something the client should do on the member's behalf.
type Action struct {
	Action     string      `json:"action"`
	Route      string      `json:"route,omitempty"`
	ScoreID    string      `json:"score_id,omitempty"`
	Title      string      `json:"title,omitempty"`
	URL        string      `json:"url,omitempty"`
	Recipients []Recipient `json:"recipients,omitempty"`
	Message    string      `json:"message"`
}

type Reply struct {
	Message string   `json:"message"`
	Actions []Action `json:"actions"`
}

type Service struct {
	llm         core.Completer
	assignments AssignmentLister
	events      EventQuerier
	catalogue   Catalogue
	directory   Directory
	validate    *validator.Validate
	logger      core.Logger
}

func NewService(
	llm core.Completer,
	assignments AssignmentLister,
	events EventQuerier,
	catalogue Catalogue,
	directory Directory,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		llm:         llm,
		assignments: assignments,
		events:      events,
		catalogue:   catalogue,
		directory:   directory,
		validate:    validate,
		logger:      logger,
	}
}

// Ask answers the conversation. When the model calls tools, they are run and the model is asked
// once more with their results; tool results carrying an action are returned to the client.
func (svc *Service) Ask(ctx context.Context, actor member.Member, req Request) (Reply, error) {
	if err := req.Validate(svc.validate); err != nil {
		return Reply{}, err
	}
	system := systemPrompt(actor, core.NowFunc())
	msgs := make([]core.ChatMessage, 0, len(req.Messages)+4)
	for _, m := range req.Messages {
		msgs = append(msgs, core.ChatMessage{Role: m.Role, Content: m.Content})
	}

	first, err := svc.llm.Chat(ctx, system, msgs, tools)
	if err != nil {
		return Reply{}, errors.Wrap(err, "asking the assistant")
	}
	reply := Reply{Message: first.Content, Actions: []Action{}}
	if len(first.ToolCalls) == 0 {
		return reply, nil
	}

	msgs = append(msgs, first)
	for _, call := range first.ToolCalls {
		result, action := svc.execute(ctx, call)
		if action != nil {
			reply.Actions = append(reply.Actions, *action)
			result = action
		}
		content, err := json.Marshal(result)
		if err != nil {
			return Reply{}, errors.Wrapf(err, "encoding %s result", call.Name)
		}
		msgs = append(msgs, core.ChatMessage{Role: core.RoleTool, Content: string(content), ToolCallID: call.ID})
	}

	final, err := svc.llm.Chat(ctx, system, msgs, nil)
	if err != nil {
		return Reply{}, errors.Wrap(err, "asking the assistant with tool results")
	}
	reply.Message = final.Content
	return reply, nil
}

func systemPrompt(actor member.Member, now time.Time) string {
	return fmt.Sprintf(`You are Glee Assistant, a helpful AI assistant for GleeWorld, the digital platform of the Spelman College Glee Club. You help members with:

- Finding and opening sheet music
- Checking assignment due dates
- Getting rehearsal, concert and event information
- Navigating the platform
- Preparing emails to other members

Be friendly, concise and helpful. Use the available tools to look things up or to act for the member.

You are talking with %s. Today's date is %s.`, actor.FullName, now.Format("Monday, January 2, 2006"))
}

// execute runs one tool call. Lookup failures are reported to the model, not to the member.
func (svc *Service) execute(ctx context.Context, call core.ToolCall) (interface{}, *Action) {
	var args struct {
		DaysAhead     int    `json:"days_ahead"`
		Query         string `json:"query"`
		ScoreID       string `json:"score_id"`
		Page          string `json:"page"`
		RecipientName string `json:"recipient_name"`
	}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			svc.logger.Warn("assistant tool arguments", err, map[string]interface{}{"tool": call.Name})
		}
	}

	switch call.Name {
	case toolAssignmentsDueToday:
		return svc.assignmentsDueToday(ctx), nil
	case toolUpcomingEvents:
		return svc.upcomingEvents(ctx, args.DaysAhead), nil
	case toolSearchMusic:
		return svc.searchMusic(ctx, args.Query), nil
	case toolOpenScore:
		return svc.openScore(ctx, args.ScoreID)
	case toolNavigate:
		route, ok := pageRoutes[args.Page]
		if !ok {
			route = pageRoutes["dashboard"]
		}
		return nil, &Action{Action: "navigate", Route: route, Message: fmt.Sprintf("Navigating to %s.", strings.ReplaceAll(args.Page, "-", " "))}
	case toolPrepareEmail:
		return svc.prepareEmail(ctx, args.RecipientName)
	}
	return map[string]interface{}{"message": "Unknown tool"}, nil
}

func (svc *Service) assignmentsDueToday(ctx context.Context) map[string]interface{} {
	all, err := svc.assignments.Assignments(ctx)
	if err != nil {
		svc.logger.Error("assistant: querying assignments", err)
		return map[string]interface{}{"assignments": []grading.Assignment{}, "message": "Could not fetch assignments"}
	}
	y, m, d := core.NowFunc().Date()
	due := make([]map[string]interface{}, 0)
	for _, a := range all {
		if a.DueAt == nil {
			continue
		}
		if ay, am, ad := a.DueAt.UTC().Date(); ay == y && am == m && ad == d {
			due = append(due, map[string]interface{}{"id": a.ID, "title": a.Title, "kind": a.Kind, "due_at": a.DueAt})
		}
	}
	msg := "No assignments due today!"
	if len(due) > 0 {
		msg = fmt.Sprintf("You have %d assignment(s) due today.", len(due))
	}
	return map[string]interface{}{"assignments": due, "count": len(due), "message": msg}
}

func (svc *Service) upcomingEvents(ctx context.Context, daysAhead int) map[string]interface{} {
	if daysAhead <= 0 {
		daysAhead = defaultDaysAhead
	}
	if daysAhead > maxDaysAhead {
		daysAhead = maxDaysAhead
	}
	now := core.NowFunc()
	filter := &attendance.EventFilter{From: now, To: now.AddDate(0, 0, daysAhead)}
	events, err := svc.events.QueryEvents(ctx, filter, []core.DBOrdering{{Field: "starts_at", Ascending: true}})
	if err != nil {
		svc.logger.Error("assistant: querying events", err)
		return map[string]interface{}{"events": []attendance.Event{}, "message": "Could not fetch events"}
	}
	if len(events) > maxEvents {
		events = events[:maxEvents]
	}
	msg := fmt.Sprintf("No events scheduled in the next %d days.", daysAhead)
	if len(events) > 0 {
		msg = fmt.Sprintf("Found %d upcoming event(s) in the next %d days.", len(events), daysAhead)
	}
	return map[string]interface{}{"events": events, "count": len(events), "message": msg}
}

func (svc *Service) searchMusic(ctx context.Context, query string) map[string]interface{} {
	query = core.CleanString(query)
	scores, err := svc.catalogue.Query(ctx, &library.Filter{Search: query}, []core.DBOrdering{{Field: "title", Ascending: true}})
	if err != nil {
		svc.logger.Error("assistant: searching the library", err)
		return map[string]interface{}{"scores": []library.SheetMusic{}, "message": "Could not search music library"}
	}
	if len(scores) > maxScores {
		scores = scores[:maxScores]
	}
	found := make([]map[string]interface{}, 0, len(scores))
	for _, sm := range scores {
		found = append(found, map[string]interface{}{
			"id": sm.ID, "title": sm.Title, "composer": sm.Composer, "voicing": sm.Voicing, "pdf_url": sm.PDFURL,
		})
	}
	msg := fmt.Sprintf("No scores found matching %q.", query)
	if len(found) > 0 {
		msg = fmt.Sprintf("Found %d score(s) matching %q.", len(found), query)
	}
	return map[string]interface{}{"scores": found, "count": len(found), "message": msg}
}

func (svc *Service) openScore(ctx context.Context, id string) (interface{}, *Action) {
	sm, err := svc.catalogue.Get(ctx, core.CleanString(id))
	if err != nil {
		if errors.Cause(err) != library.ErrNotFound {
			svc.logger.Error("assistant: getting score", err)
		}
		return map[string]interface{}{"success": false, "message": "Score not found"}, nil
	}
	return nil, &Action{
		Action:  "open_score",
		ScoreID: sm.ID,
		Title:   sm.Title,
		URL:     sm.PDFURL,
		Message: fmt.Sprintf("Opening %q. Click to view the score.", sm.Title),
	}
}

func (svc *Service) prepareEmail(ctx context.Context, name string) (interface{}, *Action) {
	name = core.CleanString(name)
	notFound := map[string]interface{}{"success": false, "message": fmt.Sprintf("Could not find a member named %q.", name)}
	if name == "" {
		return notFound, nil
	}
	active := true
	members, err := svc.directory.Query(ctx, &member.QueryFilter{Search: name, IsActive: &active}, []core.DBOrdering{{Field: "full_name", Ascending: true}})
	if err != nil {
		svc.logger.Error("assistant: searching members", err)
		return notFound, nil
	}
	if len(members) == 0 {
		return notFound, nil
	}
	if len(members) > maxRecipients {
		members = members[:maxRecipients]
	}
	recipients := make([]Recipient, 0, len(members))
	for _, m := range members {
		recipients = append(recipients, Recipient{ID: m.ID, FullName: m.FullName, Email: m.Email})
	}
	return nil, &Action{
		Action:     "prepare_email",
		Recipients: recipients,
		Message:    fmt.Sprintf("Found %d member(s) matching %q. Ready to compose an email.", len(recipients), name),
	}
}
