package buddy

import (
	"fmt"
	"io"

	"govetachun/kbuddy/internal/klock"
)

// LevelStats is the free-node count for one tree level.
type LevelStats struct {
	Level int
	Free  int
}

// Stats is a point-in-time snapshot of the allocator, per spec.md §4.4:
// "the contract is only that the reported used+free equals PAGES and
// per-level counts sum consistently". It is a diagnostic aid, not part of
// the correctness contract.
type Stats struct {
	TotalPages int
	UsedPages  int
	FreePages  int
	PerLevel   []LevelStats
	Lock       klock.Stats
}

// Stats computes a snapshot under the lock. Safe to call concurrently with
// Alloc/Free.
func (a *Allocator) Stats() Stats {
	a.lock.Acquire()
	defer a.lock.Release()

	s := Stats{
		TotalPages: a.cfg.Pages,
		PerLevel:   make([]LevelStats, len(a.free)),
		Lock:       a.lock.Stats(),
	}
	for lvl, fl := range a.free {
		pages := fl.count << lvl
		s.FreePages += pages
		s.PerLevel[lvl] = LevelStats{Level: lvl, Free: fl.count}
	}
	s.UsedPages = s.TotalPages - s.FreePages
	return s
}

// Report writes a human-readable summary to w, per spec.md §4.4. Optional:
// implementations may omit it entirely; this one is kept for the periodic
// scheduler log and the HTTP diagnostic surface's /report endpoint.
func (a *Allocator) Report(w io.Writer) error {
	s := a.Stats()
	if _, err := fmt.Fprintf(w, "pages: total=%d used=%d free=%d\n", s.TotalPages, s.UsedPages, s.FreePages); err != nil {
		return err
	}
	for _, l := range s.PerLevel {
		if l.Free == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "  level %2d (%6d pages/block): %d free\n", l.Level, 1<<l.Level, l.Free); err != nil {
			return err
		}
	}
	return nil
}
