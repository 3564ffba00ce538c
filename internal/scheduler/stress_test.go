package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Each owner re-queues its reminders and next sweep the way the sweep
// handler does, while the other owners do the same concurrently.
func TestEngineStressRequeueChurn(t *testing.T) {
	engine := NewEngine(64)
	engine.Start()
	defer engine.Stop()

	const owners = 8
	const reminders = 20
	const rounds = 50

	later := time.Date(2099, 1, 1, 8, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	wg.Add(owners)
	for w := 0; w < owners; w++ {
		owner := fmt.Sprintf("owner-%d", w)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				sweep := SweepJob(owner, later.Add(time.Duration(r)*time.Minute))
				engine.Cancel(sweep.ID)
				if err := engine.Schedule(sweep); err != nil {
					t.Errorf("schedule sweep: %v", err)
					return
				}
				for i := 0; i < reminders; i++ {
					job := Job{
						ID:    fmt.Sprintf("reminder:%s-event-%d", owner, i),
						Kind:  JobSessionReminder,
						Owner: owner,
						RefID: fmt.Sprintf("%s-event-%d", owner, i),
						RunAt: later.Add(time.Duration(i+r) * time.Second),
					}
					engine.Cancel(job.ID)
					if err := engine.Schedule(job); err != nil {
						t.Errorf("schedule reminder: %v", err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	if got, want := engine.Pending(), owners*(reminders+1); got != want {
		t.Fatalf("expected one pending job per id, got=%d want=%d", got, want)
	}
	for w := 0; w < owners; w++ {
		owner := fmt.Sprintf("owner-%d", w)
		if !engine.Cancel(SweepJob(owner, later).ID) {
			t.Fatalf("expected pending sweep for %s", owner)
		}
		for i := 0; i < reminders; i++ {
			if !engine.Cancel(fmt.Sprintf("reminder:%s-event-%d", owner, i)) {
				t.Fatalf("expected pending reminder %d for %s", i, owner)
			}
		}
	}
	if engine.Pending() != 0 {
		t.Fatalf("expected empty queue, got %d", engine.Pending())
	}
}

// Cancels race the engine loop; every job that was not cancelled must be
// delivered exactly once with its kind intact.
func TestEngineStressMixedKindsWithCancel(t *testing.T) {
	engine := NewEngine(4096)
	engine.Start()
	defer engine.Stop()

	const workers = 8
	const perWorker = 100

	now := time.Now().UTC()
	var wantSweeps, wantReminders int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		w := w
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				kind := JobSessionReminder
				if i%5 == 0 {
					kind = JobSweep
				}
				job := Job{
					ID:    fmt.Sprintf("w%d-%d", w, i),
					Kind:  kind,
					Owner: fmt.Sprintf("owner-%d", w),
					RunAt: now.Add(time.Duration((w+i)%40+20) * time.Millisecond),
				}
				if err := engine.Schedule(job); err != nil {
					t.Errorf("schedule failed: %v", err)
					return
				}
				if i%4 == 3 && engine.Cancel(job.ID) {
					continue
				}
				if kind == JobSweep {
					atomic.AddInt64(&wantSweeps, 1)
				} else {
					atomic.AddInt64(&wantReminders, 1)
				}
			}
		}()
	}
	wg.Wait()

	want := atomic.LoadInt64(&wantSweeps) + atomic.LoadInt64(&wantReminders)
	seen := make(map[string]bool, want)
	var sweeps, remindersGot int64
	deadline := time.After(5 * time.Second)
	for int64(len(seen)) < want {
		select {
		case <-deadline:
			t.Fatalf("timeout: received=%d want=%d dropped=%d", len(seen), want, engine.Dropped())
		case job := <-engine.C():
			if seen[job.ID] {
				t.Fatalf("job %s delivered twice", job.ID)
			}
			seen[job.ID] = true
			switch job.Kind {
			case JobSweep:
				sweeps++
			case JobSessionReminder:
				remindersGot++
			default:
				t.Fatalf("unexpected kind %q", job.Kind)
			}
		}
	}

	select {
	case job := <-engine.C():
		t.Fatalf("cancelled or duplicate job delivered: %+v", job)
	case <-time.After(150 * time.Millisecond):
	}
	if sweeps != wantSweeps || remindersGot != wantReminders {
		t.Fatalf("kind mix: sweeps=%d/%d reminders=%d/%d", sweeps, wantSweeps, remindersGot, wantReminders)
	}
	if engine.Dropped() != 0 {
		t.Fatalf("expected zero drops with active consumer, got=%d", engine.Dropped())
	}
}
