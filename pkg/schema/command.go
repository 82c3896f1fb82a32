package schema

// CommandKind discriminates local commands.
type CommandKind string

const (
	CommandNone     CommandKind = "none"
	CommandNavigate CommandKind = "navigate"
	CommandQuickLog CommandKind = "quick_log"
	CommandHelp     CommandKind = "help"
)

// Tab is a navigation target inside the app.
type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabFood      Tab = "food"
	TabWorkouts  Tab = "workouts"
	TabStats     Tab = "stats"
	TabSettings  Tab = "settings"
)

// QuickLogType identifies what a quick-log command records.
type QuickLogType string

const (
	QuickLogFood    QuickLogType = "food"
	QuickLogWater   QuickLogType = "water"
	QuickLogWeight  QuickLogType = "weight"
	QuickLogWorkout QuickLogType = "workout"
)

// LocalCommand is an instantly resolvable intent that needs no model call.
// Kind selects which payload fields are meaningful; everything else is zero.
type LocalCommand struct {
	Kind    CommandKind
	Tab     Tab
	LogType QuickLogType
	Payload string

	// Enhanced navigation qualifiers, populated only for CommandNavigate
	// matches produced by the richer patterns.
	MealType  string
	TimeFrame string
	Filter    string
	Metric    string
}

// NoCommand is the absence of a local command match.
func NoCommand() LocalCommand {
	return LocalCommand{Kind: CommandNone}
}

// Navigate creates a plain tab navigation command.
func Navigate(tab Tab) LocalCommand {
	return LocalCommand{Kind: CommandNavigate, Tab: tab}
}

// QuickLog creates a quick-log command carrying the raw payload text.
func QuickLog(logType QuickLogType, payload string) LocalCommand {
	return LocalCommand{Kind: CommandQuickLog, LogType: logType, Payload: payload}
}

// Help creates the help command.
func Help() LocalCommand {
	return LocalCommand{Kind: CommandHelp}
}

// IsNone reports whether no local command matched.
func (c LocalCommand) IsNone() bool {
	return c.Kind == CommandNone || c.Kind == ""
}
