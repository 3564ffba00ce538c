package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/tracker"
)

type Type string

const (
	TypeProjects Type = "projects"
	TypeImport   Type = "import"
	TypeProgress Type = "progress"
	TypeGantt    Type = "gantt"
	TypeStatus   Type = "status"
	TypeDelay    Type = "delay"
	TypeSweep    Type = "sweep"
	TypeMove     Type = "move"
	TypeSchedule Type = "schedule"
	TypeStart    Type = "start"
	TypeRecord   Type = "record"
	TypeCycles   Type = "cycles"
	TypeExport   Type = "export"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

type ImportArgs struct {
	Path string
}

type ProjectArgs struct {
	ProjectID string
}

type GanttArgs struct {
	ProjectID string
	Scale     tracker.Scale
}

type StatusArgs struct {
	ProjectID string
	TaskID    string
	Status    model.TaskStatus
}

type DelayArgs struct {
	ProjectID string
	TaskID    string
	Action    model.DelayAction
}

// SweepArgs.Date is zero when the sweep should run for today.
type SweepArgs struct {
	Date time.Time
}

type MoveArgs struct {
	CycleID string
	Date    time.Time
}

type ScheduleArgs struct {
	At           time.Time
	StudyMinutes int
	PauseMinutes int
	Cycles       int
	Subject      string
	// Repeat is set when the session should be booked as a series of Count.
	Repeat *model.RepeatRule
	Count  int
}

type CycleArgs struct {
	CycleID string
}

type CyclesArgs struct {
	Date time.Time
}

type ExportArgs struct {
	From time.Time
	To   time.Time
}

type Command struct {
	Type     Type
	Raw      string
	Import   *ImportArgs
	Project  *ProjectArgs
	Gantt    *GanttArgs
	Status   *StatusArgs
	Delay    *DelayArgs
	Sweep    *SweepArgs
	Move     *MoveArgs
	Schedule *ScheduleArgs
	Cycle    *CycleArgs
	Cycles   *CyclesArgs
	Export   *ExportArgs
}

// Parse reads one command line. Dates are interpreted in the local zone.
func Parse(input string) (Command, error) {
	return ParseIn(input, time.Local)
}

func ParseIn(input string, loc *time.Location) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if loc == nil {
		loc = time.Local
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeProjects:
		return Command{Type: TypeProjects, Raw: input}, nil
	case TypeImport:
		if len(args) != 1 {
			return Command{}, invalid("import requires a file path")
		}
		return Command{Type: TypeImport, Raw: input, Import: &ImportArgs{Path: args[0]}}, nil
	case TypeProgress:
		if len(args) != 1 {
			return Command{}, invalid("progress requires a project id")
		}
		return Command{Type: TypeProgress, Raw: input, Project: &ProjectArgs{ProjectID: args[0]}}, nil
	case TypeGantt:
		return parseGantt(input, args)
	case TypeStatus:
		return parseStatus(input, args)
	case TypeDelay:
		return parseDelay(input, args)
	case TypeSweep:
		return parseSweep(input, args, loc)
	case TypeMove:
		return parseMove(input, args, loc)
	case TypeSchedule:
		return parseSchedule(input, args, loc)
	case TypeStart, TypeRecord:
		if len(args) != 1 {
			return Command{}, invalid("%s requires a cycle id", head)
		}
		return Command{Type: Type(head), Raw: input, Cycle: &CycleArgs{CycleID: args[0]}}, nil
	case TypeCycles:
		return parseCycles(input, args, loc)
	case TypeExport:
		return parseExport(input, args, loc)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseGantt(raw string, args []string) (Command, error) {
	if len(args) < 1 || len(args) > 2 {
		return Command{}, invalid("gantt requires a project id and an optional scale")
	}
	scale := tracker.ScaleWeek
	if len(args) == 2 {
		scale = tracker.Scale(strings.ToLower(args[1]))
		if !scale.IsValid() {
			return Command{}, invalid("unknown scale %q, want day, week or month", args[1])
		}
	}
	return Command{Type: TypeGantt, Raw: raw, Gantt: &GanttArgs{ProjectID: args[0], Scale: scale}}, nil
}

func parseStatus(raw string, args []string) (Command, error) {
	if len(args) != 3 {
		return Command{}, invalid("status requires project, task and status")
	}
	st, err := model.ParseTaskStatus(args[2])
	if err != nil {
		return Command{}, invalid("%v", err)
	}
	return Command{Type: TypeStatus, Raw: raw, Status: &StatusArgs{ProjectID: args[0], TaskID: args[1], Status: st}}, nil
}

func parseDelay(raw string, args []string) (Command, error) {
	if len(args) != 3 {
		return Command{}, invalid("delay requires project, task and translate|compress")
	}
	action := model.DelayAction(strings.ToLower(args[2]))
	if !action.IsValid() {
		return Command{}, invalid("unknown delay action %q", args[2])
	}
	return Command{Type: TypeDelay, Raw: raw, Delay: &DelayArgs{ProjectID: args[0], TaskID: args[1], Action: action}}, nil
}

func parseSweep(raw string, args []string, loc *time.Location) (Command, error) {
	var date time.Time
	switch len(args) {
	case 0:
	case 1:
		d, err := parseDate(args[0], loc)
		if err != nil {
			return Command{}, err
		}
		date = d
	default:
		return Command{}, invalid("sweep takes at most one date")
	}
	return Command{Type: TypeSweep, Raw: raw, Sweep: &SweepArgs{Date: date}}, nil
}

func parseMove(raw string, args []string, loc *time.Location) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("move requires a cycle id and a date")
	}
	d, err := parseDate(args[1], loc)
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeMove, Raw: raw, Move: &MoveArgs{CycleID: args[0], Date: d}}, nil
}

// parseSchedule reads "<when> <study> <pause> <cycles> <subject...>" with
// optional repeat:<kind>[/<interval>] and count:<n> tokens anywhere after
// the fixed arguments.
func parseSchedule(raw string, args []string, loc *time.Location) (Command, error) {
	if len(args) < 4 {
		return Command{}, invalid("schedule requires when, study minutes, pause minutes and cycles")
	}
	at, err := time.ParseInLocation(dateTimeLayout, args[0], loc)
	if err != nil {
		return Command{}, invalid("bad start %q, want YYYY-MM-DDTHH:MM", args[0])
	}
	nums := make([]int, 3)
	for i, name := range []string{"study minutes", "pause minutes", "cycles"} {
		n, err := strconv.Atoi(args[i+1])
		if err != nil {
			return Command{}, invalid("%s must be a number, got %q", name, args[i+1])
		}
		nums[i] = n
	}

	out := &ScheduleArgs{At: at, StudyMinutes: nums[0], PauseMinutes: nums[1], Cycles: nums[2]}
	subject := make([]string, 0, len(args))
	for _, arg := range args[4:] {
		lower := strings.ToLower(arg)
		switch {
		case strings.HasPrefix(lower, "repeat:"):
			rule, err := parseRepeat(strings.TrimPrefix(lower, "repeat:"))
			if err != nil {
				return Command{}, err
			}
			out.Repeat = &rule
		case strings.HasPrefix(lower, "count:"):
			n, err := strconv.Atoi(strings.TrimPrefix(lower, "count:"))
			if err != nil || n <= 0 {
				return Command{}, invalid("count must be a positive number, got %q", arg)
			}
			out.Count = n
		default:
			subject = append(subject, arg)
		}
	}
	out.Subject = strings.Join(subject, " ")
	if out.Repeat != nil && out.Count == 0 {
		out.Count = 5
	}
	if out.Repeat == nil && out.Count > 0 {
		return Command{}, invalid("count needs a repeat rule")
	}
	return Command{Type: TypeSchedule, Raw: raw, Schedule: out}, nil
}

func parseRepeat(raw string) (model.RepeatRule, error) {
	kind, interval, hasInterval := strings.Cut(raw, "/")
	rule := model.RepeatRule{Kind: model.RepeatKind(kind)}
	switch rule.Kind {
	case model.RepeatDaily, model.RepeatEveryWeekday:
		if hasInterval {
			return model.RepeatRule{}, invalid("repeat %s takes no interval", kind)
		}
	case model.RepeatEveryNDays, model.RepeatEveryNWeeks:
		n, err := strconv.Atoi(interval)
		if !hasInterval || err != nil || n <= 0 {
			return model.RepeatRule{}, invalid("repeat %s needs a positive interval, e.g. %s/2", kind, kind)
		}
		rule.Interval = n
	default:
		return model.RepeatRule{}, invalid("unknown repeat kind %q", kind)
	}
	return rule, nil
}

func parseCycles(raw string, args []string, loc *time.Location) (Command, error) {
	var date time.Time
	switch len(args) {
	case 0:
	case 1:
		d, err := parseDate(args[0], loc)
		if err != nil {
			return Command{}, err
		}
		date = d
	default:
		return Command{}, invalid("cycles takes at most one date")
	}
	return Command{Type: TypeCycles, Raw: raw, Cycles: &CyclesArgs{Date: date}}, nil
}

func parseExport(raw string, args []string, loc *time.Location) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("export requires a from and a to date")
	}
	from, err := parseDate(args[0], loc)
	if err != nil {
		return Command{}, err
	}
	to, err := parseDate(args[1], loc)
	if err != nil {
		return Command{}, err
	}
	if to.Before(from) {
		return Command{}, invalid("export range ends before it starts")
	}
	// the to date is inclusive
	return Command{Type: TypeExport, Raw: raw, Export: &ExportArgs{From: from, To: to.AddDate(0, 0, 1)}}, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, invalid("bad date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}
