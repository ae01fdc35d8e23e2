package display

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"preload/pkg/events"
)

// Tracker forwards loader notifications to a Task. Loaders deliver
// notifications one at a time, so a Tracker needs no locking.
// Mutable
type Tracker struct {
	task   Task
	target string
	start  time.Time
	loaded int64
	now    func() time.Time
}

// NewTracker returns a Tracker reporting the load of target on task.
func NewTracker(task Task, target string) *Tracker {
	return &Tracker{task: task, target: target, now: time.Now}
}

// Handle is an events.Subscriber.
func (t *Tracker) Handle(evt events.Event) {
	switch evt.Type {
	case events.LoadStart:
		t.start = t.now()
		t.task.SetStage("Fetch", t.target)
	case events.Progress:
		if t.start.IsZero() {
			t.start = t.now()
		}
		if evt.Loaded > 0 {
			t.loaded = evt.Loaded
		}
		t.task.Progress(int(evt.Progress*100), t.message(evt.Loaded, evt.Total))
	case events.Complete:
		msg := ""
		if t.loaded > 0 {
			msg = humanize.Bytes(uint64(t.loaded))
		}
		t.task.Done(msg)
	case events.Error:
		err := evt.Source
		if err == nil {
			err = errors.New("load failed")
		}
		t.task.Fail(err)
	}
}

func (t *Tracker) message(loaded, total int64) string {
	if loaded == 0 && total == 0 {
		return ""
	}
	return ProgressMessage(loaded, total, t.now().Sub(t.start))
}

// ProgressMessage describes a transfer of loaded out of total bytes.
// A zero total means the size is unknown.
func ProgressMessage(loaded, total int64, elapsed time.Duration) string {
	if total <= 0 {
		return fmt.Sprintf("%s downloaded", humanize.Bytes(uint64(loaded)))
	}
	msg := fmt.Sprintf("%s / %s", humanize.Bytes(uint64(loaded)), humanize.Bytes(uint64(total)))
	if secs := elapsed.Seconds(); secs > 0 {
		msg += fmt.Sprintf(" (%s/s)", humanize.Bytes(uint64(float64(loaded)/secs)))
	}
	return msg
}
