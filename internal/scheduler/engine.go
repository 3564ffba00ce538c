package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidRunTime = errors.New("scheduler: invalid run time")
	ErrInvalidJobKind = errors.New("scheduler: invalid job kind")
	ErrEngineStopped  = errors.New("scheduler: engine stopped")
)

type JobKind string

const (
	// JobSweep reschedules an owner's unfinished study cycles.
	JobSweep JobKind = "sweep"
	// JobSessionReminder fires LeadMinutes before a calendar event.
	JobSessionReminder JobKind = "session_reminder"
)

func (k JobKind) IsValid() bool {
	return k == JobSweep || k == JobSessionReminder
}

type Job struct {
	ID    string
	Kind  JobKind
	Owner string
	// RefID names the calendar event for reminders.
	RefID string
	Title string
	RunAt time.Time
}

type queueItem struct {
	job Job
	seq uint64
}

type priorityQueue []queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i].job.RunAt, pq[j].job.RunAt
	if a.Equal(b) {
		return pq[i].seq < pq[j].seq
	}
	return a.Before(b)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}

type Engine struct {
	mu      sync.Mutex
	queue   priorityQueue
	seq     uint64
	out     chan Job
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(priorityQueue, 0),
		out:    make(chan Job, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// C delivers due jobs. It is closed after Stop.
func (e *Engine) C() <-chan Job {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Schedule(job Job) error {
	if job.RunAt.IsZero() {
		return ErrInvalidRunTime
	}
	if !job.Kind.IsValid() {
		return ErrInvalidJobKind
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}

	e.seq++
	heap.Push(&e.queue, queueItem{job: job, seq: e.seq})
	e.signalWakeup()
	return nil
}

// Cancel removes every pending job with id and reports whether any was found.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	found := false
	for i := 0; i < len(e.queue); {
		if e.queue[i].job.ID == id {
			heap.Remove(&e.queue, i)
			found = true
			continue
		}
		i++
	}
	if found {
		e.signalWakeup()
	}
	return found
}

func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.RunAt)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := e.popDue(time.Now().UTC())
			for _, job := range due {
				select {
				case e.out <- job:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return Job{}, false
	}
	return e.queue[0].job, true
}

func (e *Engine) popDue(now time.Time) []Job {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Job, 0)
	for len(e.queue) > 0 {
		next := e.queue[0].job
		if next.RunAt.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(queueItem)
		out = append(out, item.job)
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
