// Package config is the allocator daemon's compile/boot-time
// configuration: PAGE_SIZE, PAGES, the single-block allocation cap, and
// the toggles for the ambient HTTP/metrics/scheduler surface (spec.md §6's
// external collaborators, plus the daemon's own observability knobs,
// neither of which spec.md's core cares about).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"govetachun/kbuddy/internal/buddy"
	"govetachun/kbuddy/pkg/kutil"
)

// Config is the full set of knobs cmd/kbuddyd wires up.
type Config struct {
	PageSize      uintptr `json:"pageSize"`
	Pages         int     `json:"pages"`
	MaxAllocPages int     `json:"maxAllocPages"`

	HTTPAddr       string        `json:"httpAddr"`
	MetricsEnabled bool          `json:"metricsEnabled"`
	StatsInterval  time.Duration `json:"statsInterval"`
	Gops           bool          `json:"gops"`
}

// Default mirrors the reference configuration named in spec.md §3.1: 16384
// pages, page size 4096, cap 512 (Pages/32).
func Default() Config {
	return Config{
		PageSize:       4096,
		Pages:          16384,
		MaxAllocPages:  512,
		HTTPAddr:       ":8089",
		MetricsEnabled: true,
		StatsInterval:  30 * time.Second,
	}
}

// Option mutates a Config under construction, generalized from the
// cloudwego-gopkg buddy allocator's validated-option constructor
// (NewBuddyAllocatorWithBlockSize), which checks each size argument before
// accepting it rather than after.
type Option func(*Config) error

// WithPages overrides the page count; must remain a power of two.
func WithPages(pages int) Option {
	return func(c *Config) error {
		if !kutil.IsPowerOfTwo(pages) {
			return fmt.Errorf("config: pages must be a power of two, got %d", pages)
		}
		c.Pages = pages
		return nil
	}
}

// WithPageSize overrides the page size in bytes; must be positive.
func WithPageSize(size uintptr) Option {
	return func(c *Config) error {
		if size == 0 {
			return fmt.Errorf("config: pageSize must be positive")
		}
		c.PageSize = size
		return nil
	}
}

// WithMaxAllocPages overrides the single-block allocation cap (spec.md §9
// Open Question).
func WithMaxAllocPages(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("config: maxAllocPages must be positive")
		}
		c.MaxAllocPages = n
		return nil
	}
}

// New builds a Config from Default with opts applied in order, failing on
// the first invalid option.
func New(opts ...Option) (Config, error) {
	c := Default()
	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return Config{}, err
		}
	}
	if c.MaxAllocPages > c.Pages/2 {
		return Config{}, fmt.Errorf("config: maxAllocPages (%d) cannot exceed half the arena (%d)", c.MaxAllocPages, c.Pages/2)
	}
	return c, nil
}

// LoadFile overlays JSON fields from path onto Default(), in the manner of
// cc-backend/cmd/cc-backend/main.go's -config handling: a missing file at
// the caller-supplied path is tolerated (defaults stand), any other I/O or
// decode error is returned.
func LoadFile(path string) (Config, error) {
	c := Default()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return c, nil
}

// BuddyConfig projects the allocator-relevant fields into buddy.Config.
func (c Config) BuddyConfig() buddy.Config {
	return buddy.Config{
		PageSize:      c.PageSize,
		Pages:         c.Pages,
		MaxAllocPages: c.MaxAllocPages,
	}
}
