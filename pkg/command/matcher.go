package command

import (
	"regexp"
	"strings"

	"github.com/peakform/coachflow/pkg/schema"
)

// exactNavigation maps whole phrases to tabs. Checked before any pattern
// so "show dashboard" can never fall through to the regex rules.
var exactNavigation = map[string]schema.Tab{
	"show dashboard":  schema.TabDashboard,
	"open dashboard":  schema.TabDashboard,
	"go to dashboard": schema.TabDashboard,
	"dashboard":       schema.TabDashboard,
	"show food":       schema.TabFood,
	"open food":       schema.TabFood,
	"food log":        schema.TabFood,
	"show workouts":   schema.TabWorkouts,
	"open workouts":   schema.TabWorkouts,
	"show stats":      schema.TabStats,
	"open stats":      schema.TabStats,
	"show settings":   schema.TabSettings,
	"open settings":   schema.TabSettings,
}

var helpPhrases = map[string]bool{
	"help":            true,
	"what can you do": true,
	"show commands":   true,
}

// quickLogPrefixes map a leading phrase to the kind of quick log. The
// remainder of the input becomes the payload. Longer prefixes are listed
// first so "log water" wins over "log".
var quickLogPrefixes = []struct {
	prefix  string
	logType schema.QuickLogType
}{
	{"log water", schema.QuickLogWater},
	{"add water", schema.QuickLogWater},
	{"log weight", schema.QuickLogWeight},
	{"log workout", schema.QuickLogWorkout},
	{"log food", schema.QuickLogFood},
	{"add food", schema.QuickLogFood},
	{"i ate", schema.QuickLogFood},
	{"log", schema.QuickLogFood},
}

var (
	tabNavigationRe = regexp.MustCompile(`^(?:show|open|go to)\s+(?:the\s+)?(dashboard|food|workouts?|stats|settings)(?:\s+tab)?$`)

	mealNavigationRe    = regexp.MustCompile(`^show\s+(?:my\s+)?(breakfast|lunch|dinner|snacks?)(?:\s+(?:from\s+)?(today|yesterday))?$`)
	workoutNavigationRe = regexp.MustCompile(`^show\s+(?:my\s+)?(?:(push|pull|legs?|upper|lower|cardio)\s+)?workouts?(?:\s+(?:from\s+)?(today|yesterday|this week|last week))?$`)
	statsNavigationRe   = regexp.MustCompile(`^show\s+(?:my\s+)?(weight|calories|protein|steps|volume)\s+(?:trend|stats|progress)(?:\s+(?:for\s+)?(this week|this month|last month|all time))?$`)
)

// Match resolves text against the local command vocabulary. First match
// wins in a fixed precedence order: exact navigation, quick log, tab
// navigation, meal navigation, workout navigation, stats navigation.
// No match means schema.CommandNone, never an error.
func Match(text string) schema.LocalCommand {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return schema.NoCommand()
	}

	if tab, ok := exactNavigation[normalized]; ok {
		return schema.Navigate(tab)
	}
	if helpPhrases[normalized] {
		return schema.Help()
	}

	if cmd, ok := matchQuickLog(normalized); ok {
		return cmd
	}

	if m := tabNavigationRe.FindStringSubmatch(normalized); m != nil {
		return schema.Navigate(tabFromName(m[1]))
	}

	if m := mealNavigationRe.FindStringSubmatch(normalized); m != nil {
		cmd := schema.Navigate(schema.TabFood)
		cmd.MealType = strings.TrimSuffix(m[1], "s")
		cmd.TimeFrame = m[2]
		return cmd
	}

	if m := workoutNavigationRe.FindStringSubmatch(normalized); m != nil {
		cmd := schema.Navigate(schema.TabWorkouts)
		cmd.Filter = m[1]
		cmd.TimeFrame = m[2]
		return cmd
	}

	if m := statsNavigationRe.FindStringSubmatch(normalized); m != nil {
		cmd := schema.Navigate(schema.TabStats)
		cmd.Metric = m[1]
		cmd.TimeFrame = m[2]
		return cmd
	}

	return schema.NoCommand()
}

func matchQuickLog(normalized string) (schema.LocalCommand, bool) {
	for _, rule := range quickLogPrefixes {
		// Prefixes only match on a word boundary, so "login help" is not
		// a quick log.
		if normalized != rule.prefix && !strings.HasPrefix(normalized, rule.prefix+" ") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(normalized, rule.prefix))
		if rest == "" && rule.prefix == "log" {
			// A bare "log" carries no payload to record.
			continue
		}
		return schema.QuickLog(rule.logType, rest), true
	}
	return schema.LocalCommand{}, false
}

func tabFromName(name string) schema.Tab {
	switch name {
	case "dashboard":
		return schema.TabDashboard
	case "food":
		return schema.TabFood
	case "workout", "workouts":
		return schema.TabWorkouts
	case "stats":
		return schema.TabStats
	case "settings":
		return schema.TabSettings
	}
	return schema.TabDashboard
}

// Respond returns the canned assistant reply for a resolved local command.
func Respond(cmd schema.LocalCommand) string {
	switch cmd.Kind {
	case schema.CommandNavigate:
		return navigateResponse(cmd)
	case schema.CommandQuickLog:
		switch cmd.LogType {
		case schema.QuickLogWater:
			return "Logged your water. Stay hydrated!"
		case schema.QuickLogWeight:
			return "Got it, weight recorded."
		case schema.QuickLogWorkout:
			return "Workout logged. Nice work!"
		default:
			return "Logged it. Anything else?"
		}
	case schema.CommandHelp:
		return "You can ask me about training and nutrition, log food or water, or say things like \"show dashboard\" or \"show my workouts this week\"."
	}
	return ""
}

func navigateResponse(cmd schema.LocalCommand) string {
	switch cmd.Tab {
	case schema.TabDashboard:
		return "Opening your dashboard."
	case schema.TabFood:
		if cmd.MealType != "" {
			return "Here's your " + cmd.MealType + " log."
		}
		return "Opening your food log."
	case schema.TabWorkouts:
		return "Opening your workouts."
	case schema.TabStats:
		if cmd.Metric != "" {
			return "Here's your " + cmd.Metric + " trend."
		}
		return "Opening your stats."
	case schema.TabSettings:
		return "Opening settings."
	}
	return "Done."
}
