// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// PropertyEvaluationOption is passed to the debugger to make it evaluate
// object properties.
const PropertyEvaluationOption = "--property-evaluation"

// ProjectIDEnv is consulted when no project id is configured.
const ProjectIDEnv = "GOOGLE_CLOUD_PROJECT"

// DefaultPipeName is the pipe the debugger connects to unless told otherwise.
const DefaultPipeName = "dotnet-debugger"

var (
	errMissingOption  = errors.New("agent: missing option")
	errNegativeWait   = errors.New("agent: wait_time must not be negative")
	errFileNotFound   = errors.New("agent: file not found")
	errUnknownOptions = errors.New("agent: unknown options")
)

// Options configures the agent.
type Options struct {
	// Module is the name of the application to debug.
	Module string `toml:"module"`
	// Version is the version of the application to debug.
	Version string `toml:"version"`
	// Debugger is the path of the debugger executable.
	Debugger string `toml:"debugger"`
	// Application is the path of the application to debug.
	Application string `toml:"application"`
	// ProjectID is the project the debuggee belongs to.
	ProjectID string `toml:"project_id"`
	// PropertyEvaluation makes the debugger evaluate object properties.
	PropertyEvaluation bool `toml:"property_evaluation"`
	// WaitTime is the number of seconds between two polls for breakpoints.
	WaitTime int `toml:"wait_time"`
	// PipeName names the pipe shared with the debugger.
	PipeName string `toml:"pipe_name"`
}

// DefaultOptions returns Options with the defaults filled in.
func DefaultOptions() *Options {
	return &Options{
		WaitTime: 2,
		PipeName: DefaultPipeName,
	}
}

// LoadOptions reads options from the TOML file at path, on top of the
// defaults. Unknown keys are rejected.
func LoadOptions(path string) (*Options, error) {
	opts := DefaultOptions()
	md, err := toml.DecodeFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("agent: load %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w in %s: %s", errUnknownOptions, path, strings.Join(keys, ", "))
	}
	return opts, nil
}

// Validate checks the options and normalizes them: the project id falls
// back to $GOOGLE_CLOUD_PROJECT and the application path is made absolute.
func (o *Options) Validate() error {
	if o.ProjectID == "" {
		o.ProjectID = os.Getenv(ProjectIDEnv)
	}
	if o.PipeName == "" {
		o.PipeName = DefaultPipeName
	}

	for _, opt := range []struct {
		name, value string
	}{
		{"module", o.Module},
		{"version", o.Version},
		{"debugger", o.Debugger},
		{"application", o.Application},
		{"project_id", o.ProjectID},
	} {
		if opt.value == "" {
			return fmt.Errorf("%w: %s", errMissingOption, opt.name)
		}
	}
	if o.WaitTime < 0 {
		return fmt.Errorf("%w: %d", errNegativeWait, o.WaitTime)
	}

	if err := checkFile(o.Debugger, "debugger"); err != nil {
		return err
	}
	app, err := filepath.Abs(o.Application)
	if err != nil {
		return err
	}
	o.Application = app
	return checkFile(o.Application, "application")
}

func checkFile(path, what string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s file '%s'", errFileNotFound, what, path)
	}
	return nil
}

// DebuggerArguments returns the arguments to start the debugger with: the
// application path, then PropertyEvaluationOption if enabled.
func (o *Options) DebuggerArguments() []string {
	args := []string{o.Application}
	if o.PropertyEvaluation {
		args = append(args, PropertyEvaluationOption)
	}
	return args
}

// Interval returns WaitTime as a duration.
func (o *Options) Interval() time.Duration {
	return time.Duration(o.WaitTime) * time.Second
}
