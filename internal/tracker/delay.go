package tracker

import (
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
)

// DelayDays is the whole number of days, rounded up, that end lies before now.
func DelayDays(end, now time.Time) int {
	late := now.Sub(end)
	if late <= 0 {
		return 0
	}
	days := int(late / day)
	if late%day != 0 {
		days++
	}
	return days
}

// ApplyDelayConsequence reshapes the direct dependents of a delayed task.
// translate shifts each dependent window by the delay; compress keeps the
// end and moves the start forward. A compression that would leave a
// dependent with no duration rejects the whole operation.
func ApplyDelayConsequence(p model.Project, principal, delayedTaskID string, action model.DelayAction, now time.Time) (model.Project, error) {
	if principal != p.Owner {
		return model.Project{}, model.Unauthorizedf("principal %q does not own project %s", principal, p.ID)
	}
	if !action.IsValid() {
		return model.Project{}, model.Validationf("%v: %q", model.ErrInvalidDelayAction, action)
	}
	pi, ti, ok := p.FindTask(delayedTaskID)
	if !ok {
		return model.Project{}, model.NotFoundf("task %s in project %s", delayedTaskID, p.ID)
	}
	delayed := p.Phases[pi].Tasks[ti]
	if st := DeriveStatus(delayed, p.Tasks(), now); st != model.TaskDelayed {
		return model.Project{}, model.Validationf("task %s is %s, not Delayed", delayedTaskID, st)
	}

	shift := time.Duration(DelayDays(delayed.End, now)) * day
	out := p.Clone()
	for i := range out.Phases {
		for j := range out.Phases[i].Tasks {
			d := &out.Phases[i].Tasks[j]
			if !d.DependsOn(delayedTaskID) {
				continue
			}
			switch action {
			case model.DelayTranslate:
				d.Start = d.Start.Add(shift)
				d.End = d.End.Add(shift)
			case model.DelayCompress:
				remaining := d.Duration() - shift
				if remaining <= 0 {
					return model.Project{}, model.Validationf("compressing task %s by %s leaves no duration", d.ID, shift)
				}
				d.Start = d.End.Add(-remaining)
			}
		}
	}
	return out, nil
}
