// Package scheduler runs periodic background telemetry for the allocator
// daemon, generalized from cc-backend/internal/taskManager's
// gocron.NewScheduler()+gocron.DurationJob pattern — there used for
// database maintenance jobs, here for allocator stats logging.
package scheduler

import (
	"bytes"
	"time"

	"github.com/go-co-op/gocron/v2"

	"govetachun/kbuddy/internal/buddy"
	"govetachun/kbuddy/pkg/klog"
)

// Scheduler owns a single gocron.Scheduler running the allocator's
// periodic report job.
type Scheduler struct {
	s gocron.Scheduler
}

// Start creates the scheduler and registers the stats job at interval,
// logging an alloc.Report() snapshot through klog every tick.
func Start(alloc *buddy.Allocator, interval time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	if _, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { logReport(alloc) }),
	); err != nil {
		return nil, err
	}
	s.Start()
	return &Scheduler{s: s}, nil
}

// Stop shuts the scheduler down, waiting for any in-flight job.
func (sc *Scheduler) Stop() error {
	return sc.s.Shutdown()
}

func logReport(alloc *buddy.Allocator) {
	var buf bytes.Buffer
	if err := alloc.Report(&buf); err != nil {
		klog.Warnf("scheduler: report failed: %v", err)
		return
	}
	klog.Infof("allocator stats:\n%s", buf.String())
}
