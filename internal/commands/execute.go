package commands

import "fmt"

type Result struct {
	Message string
	// Markdown marks Message as markdown the caller may render.
	Markdown bool
}

type Handlers struct {
	Projects func() (Result, error)
	Import   func(ImportArgs) (Result, error)
	Progress func(ProjectArgs) (Result, error)
	Gantt    func(GanttArgs) (Result, error)
	Status   func(StatusArgs) (Result, error)
	Delay    func(DelayArgs) (Result, error)
	Sweep    func(SweepArgs) (Result, error)
	Move     func(MoveArgs) (Result, error)
	Schedule func(ScheduleArgs) (Result, error)
	Start    func(CycleArgs) (Result, error)
	Record   func(CycleArgs) (Result, error)
	Cycles   func(CyclesArgs) (Result, error)
	Export   func(ExportArgs) (Result, error)
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeProjects:
		if handlers.Projects == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Projects()
	case TypeImport:
		if handlers.Import == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Import(*cmd.Import)
	case TypeProgress:
		if handlers.Progress == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Progress(*cmd.Project)
	case TypeGantt:
		if handlers.Gantt == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Gantt(*cmd.Gantt)
	case TypeStatus:
		if handlers.Status == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Status(*cmd.Status)
	case TypeDelay:
		if handlers.Delay == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Delay(*cmd.Delay)
	case TypeSweep:
		if handlers.Sweep == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Sweep(*cmd.Sweep)
	case TypeMove:
		if handlers.Move == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Move(*cmd.Move)
	case TypeSchedule:
		if handlers.Schedule == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Schedule(*cmd.Schedule)
	case TypeStart:
		if handlers.Start == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Start(*cmd.Cycle)
	case TypeRecord:
		if handlers.Record == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Record(*cmd.Cycle)
	case TypeCycles:
		if handlers.Cycles == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Cycles(*cmd.Cycles)
	case TypeExport:
		if handlers.Export == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Export(*cmd.Export)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

// Usage lists every command with its arguments.
func Usage() []string {
	return []string{
		"projects",
		"import <file.json|file.yaml>",
		"progress <project>",
		"gantt <project> [day|week|month]",
		"status <project> <task> <status>",
		"delay <project> <task> translate|compress",
		"sweep [YYYY-MM-DD]",
		"move <cycle> <YYYY-MM-DD>",
		"schedule <YYYY-MM-DDTHH:MM> <study> <pause> <cycles> <subject> [repeat:<kind>[/n]] [count:n]",
		"start <cycle>",
		"record <cycle>",
		"cycles [YYYY-MM-DD]",
		"export <YYYY-MM-DD> <YYYY-MM-DD>",
	}
}
