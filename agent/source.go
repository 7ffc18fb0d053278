// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/simonz130/dbgpipe/breakpoint"
	"gopkg.in/yaml.v3"
)

// Source is where breakpoints come from and where results go.
type Source interface {
	// ListActive returns the breakpoints that should be set right now.
	ListActive(ctx context.Context) ([]*breakpoint.Breakpoint, error)
	// Report hands over a breakpoint sent back by the debugger.
	Report(ctx context.Context, bp *breakpoint.Breakpoint) error
}

var (
	errDuplicateID = errors.New("agent: duplicate breakpoint id")
	errEmptyEntry  = errors.New("agent: empty breakpoint entry")
)

// StaticSource is a Source over a fixed list of breakpoints. A breakpoint
// stops being active once it is reported in its final state.
type StaticSource struct {
	mu       sync.Mutex
	active   []*breakpoint.Breakpoint
	reported []*breakpoint.Breakpoint
}

// NewStaticSource returns a StaticSource serving bps.
func NewStaticSource(bps ...*breakpoint.Breakpoint) (*StaticSource, error) {
	seen := make(map[string]bool, len(bps))
	active := make([]*breakpoint.Breakpoint, 0, len(bps))
	for i, bp := range bps {
		if bp == nil {
			return nil, fmt.Errorf("%w: %d", errEmptyEntry, i)
		}
		if seen[bp.ID] {
			return nil, fmt.Errorf("%w: %s", errDuplicateID, bp.ID)
		}
		seen[bp.ID] = true
		active = append(active, bp.Clone())
	}
	return &StaticSource{active: active}, nil
}

type staticFile struct {
	Breakpoints []*breakpoint.Breakpoint `yaml:"breakpoints"`
}

// LoadStaticSource reads a StaticSource from a YAML file holding a
// breakpoints list. Entries without an id get a random one and every entry
// is activated.
func LoadStaticSource(path string) (*StaticSource, error) {
	raw, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, err
	}

	var file staticFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("agent: load %s: %w", path, err)
	}
	for i, bp := range file.Breakpoints {
		if bp == nil {
			return nil, fmt.Errorf("agent: load %s: %w: %d", path, errEmptyEntry, i)
		}
		if bp.ID == "" {
			bp.ID = uuid.NewString()
		}
		bp.Activated = true
	}
	return NewStaticSource(file.Breakpoints...)
}

// ListActive implements Source.
func (s *StaticSource) ListActive(context.Context) ([]*breakpoint.Breakpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*breakpoint.Breakpoint, len(s.active))
	for i, bp := range s.active {
		out[i] = bp.Clone()
	}
	return out, nil
}

// Report implements Source.
func (s *StaticSource) Report(_ context.Context, bp *breakpoint.Breakpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reported = append(s.reported, bp.Clone())
	if !bp.IsFinalState {
		return nil
	}
	for i, a := range s.active {
		if a.ID == bp.ID {
			s.active = append(s.active[:i], s.active[i+1:]...)
			break
		}
	}
	return nil
}

// Reported returns every breakpoint reported so far, in order.
func (s *StaticSource) Reported() []*breakpoint.Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*breakpoint.Breakpoint, len(s.reported))
	copy(out, s.reported)
	return out
}
