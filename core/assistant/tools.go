package assistant

import (
	"sort"

	"github.com/gleeworld/gleeworld/core"
)

const (
	toolAssignmentsDueToday = "get_assignments_due_today"
	toolUpcomingEvents      = "get_upcoming_events"
	toolSearchMusic         = "search_music_library"
	toolOpenScore           = "open_score"
	toolNavigate            = "navigate_to_page"
	toolPrepareEmail        = "prepare_message"
)

func object(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func pageNames() []string {
	names := make([]string, 0, len(pageRoutes))
	for name := range pageRoutes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var tools = []core.Tool{
	{
		Name:        toolAssignmentsDueToday,
		Description: "Get the assignments due today",
		Parameters:  object(map[string]interface{}{}),
	},
	{
		Name:        toolUpcomingEvents,
		Description: "Get upcoming rehearsals, concerts and other events",
		Parameters: object(map[string]interface{}{
			"days_ahead": map[string]interface{}{
				"type":        "integer",
				"description": "Number of days to look ahead (default 7)",
			},
		}),
	},
	{
		Name:        toolSearchMusic,
		Description: "Search the sheet music library by title, composer or arranger",
		Parameters: object(map[string]interface{}{
			"query": map[string]interface{}{"type": "string", "description": "Search text"},
		}, "query"),
	},
	{
		Name:        toolOpenScore,
		Description: "Open a sheet music score for viewing",
		Parameters: object(map[string]interface{}{
			"score_id": map[string]interface{}{"type": "string", "description": "ID of the score"},
		}, "score_id"),
	},
	{
		Name:        toolNavigate,
		Description: "Take the member to a page of the platform",
		Parameters: object(map[string]interface{}{
			"page": map[string]interface{}{"type": "string", "enum": pageNames()},
		}, "page"),
	},
	{
		Name:        toolPrepareEmail,
		Description: "Find a member by name and prepare an email to them",
		Parameters: object(map[string]interface{}{
			"recipient_name": map[string]interface{}{"type": "string", "description": "Name of the member"},
		}, "recipient_name"),
	},
}
