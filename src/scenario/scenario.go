// Package scenario loads simulation inputs: the processes to spawn, when
// they arrive and which resources they hold during their life.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"schedsim/src/model"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid scenario")

// Keys left out of a scenario file take the machine defaults. Explicit zero
// values are kept: `resources: 0` runs without resources.
type Scenario struct {
	Name        string    `yaml:"name"`
	MaxPriority int       `yaml:"maxPriority"`
	Resources   int       `yaml:"resources"`
	MaxTicks    int       `yaml:"maxTicks"`
	Processes   []Process `yaml:"processes"`
}

type Process struct {
	Name     string    `yaml:"name,omitempty"`
	Arrival  int       `yaml:"arrival"`
	Lifespan int       `yaml:"lifespan"`
	Priority int       `yaml:"priority"`
	Requests []Request `yaml:"requests,omitempty"`
}

// The process holds Resource from age At for Duration ticks of its own
// execution.
type Request struct {
	Resource int `yaml:"resource"`
	At       int `yaml:"at"`
	Duration int `yaml:"duration"`
}

// Age at which the request releases its resource.
func (r Request) End() int {
	return r.At + r.Duration
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes YAML over the defaults and validates. Unknown keys are
// rejected.
func Parse(data []byte) (*Scenario, error) {
	s := &Scenario{
		MaxPriority: model.MAX_PRIORITY,
		Resources:   model.NR_RESOURCES,
		MaxTicks:    model.DEFAULT_MAX_TICK,
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if s.Name == "" {
		s.Name = "anonymous"
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Marshal encodes the scenario back to YAML.
func (s *Scenario) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Validate reports the first problem found.
func (s *Scenario) Validate() error {
	if len(s.Processes) == 0 {
		return fmt.Errorf("%w: no processes", ErrInvalid)
	}
	if len(s.Processes) > model.MAX_PROCESSES {
		return fmt.Errorf("%w: %d processes, at most %d", ErrInvalid, len(s.Processes), model.MAX_PROCESSES)
	}
	if s.MaxPriority < 0 || s.Resources < 0 || s.MaxTicks < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalid)
	}

	for i, p := range s.Processes {
		if err := s.validateProcess(p); err != nil {
			return fmt.Errorf("%w: process %d (%s): %v", ErrInvalid, i, p.Name, err)
		}
	}
	return nil
}

func (s *Scenario) validateProcess(p Process) error {
	if p.Arrival < 0 {
		return fmt.Errorf("negative arrival %d", p.Arrival)
	}
	if p.Lifespan <= 0 {
		return fmt.Errorf("lifespan must be positive, got %d", p.Lifespan)
	}
	if p.Priority < 0 || p.Priority > s.MaxPriority {
		return fmt.Errorf("priority %d outside [0, %d]", p.Priority, s.MaxPriority)
	}

	for j, r := range p.Requests {
		if r.Resource < 0 || r.Resource >= s.Resources {
			return fmt.Errorf("request %d: no resource %d", j, r.Resource)
		}
		if r.At < 0 || r.Duration <= 0 {
			return fmt.Errorf("request %d: bad window at %d for %d", j, r.At, r.Duration)
		}
		if r.End() > p.Lifespan {
			return fmt.Errorf("request %d: held until age %d past lifespan %d", j, r.End(), p.Lifespan)
		}
		for k, o := range p.Requests[:j] {
			if o.Resource == r.Resource && r.At < o.End() && o.At < r.End() {
				return fmt.Errorf("requests %d and %d overlap on resource %d", k, j, r.Resource)
			}
		}
	}
	return nil
}
