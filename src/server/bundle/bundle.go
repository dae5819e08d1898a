package bundle

import (
	"errors"
	"fmt"
	"schedsim/src/model"
	"schedsim/src/server/kernel"
	"schedsim/src/server/resource"
	"schedsim/src/server/scheduler"
	"strings"
)

var ErrUnknownBundle = errors.New("unknown bundle")

// Short names accepted on the command line, like the queue policies of the
// server.
type Alias string

const (
	FifoBundle     Alias = "fifo"
	SjfBundle      Alias = "sjf"
	StcfBundle     Alias = "stcf"
	RrBundle       Alias = "rr"
	PriorityBundle Alias = "prio"
	AgingBundle    Alias = "pa"
	PcpBundle      Alias = "pcp"
	PipBundle      Alias = "pip"
	PrioFcfsBundle Alias = "prio-fcfs"
)

// A Bundle pairs a scheduling policy with a resource protocol. It is the
// unit the driver swaps.
type Bundle struct {
	Name     string
	Alias    Alias
	Policy   scheduler.Policy
	Protocol resource.Protocol
}

// Schedule picks the process to run this tick and makes it current.
// Returns model.None on an idle tick.
func (b *Bundle) Schedule(s *kernel.State) (model.Handle, error) {
	next, err := b.Policy.Schedule(s)
	if err != nil {
		return model.None, fmt.Errorf("%s: schedule: %w", b.Name, err)
	}
	if err := s.Dispatch(next); err != nil {
		return model.None, fmt.Errorf("%s: schedule: %w", b.Name, err)
	}
	return next, nil
}

// Acquire resource id for the current process. false means the current
// process is now blocked and Schedule must run before the tick ends.
func (b *Bundle) Acquire(s *kernel.State, id int) (bool, error) {
	granted, err := b.Protocol.Acquire(s, id)
	if err != nil {
		return false, fmt.Errorf("%s: acquire: %w", b.Name, err)
	}
	return granted, nil
}

// Release resource id held by the current process.
func (b *Bundle) Release(s *kernel.State, id int) error {
	if err := b.Protocol.Release(s, id); err != nil {
		return fmt.Errorf("%s: release: %w", b.Name, err)
	}
	return nil
}

func (b *Bundle) String() string {
	return b.Name
}

// All returns a fresh instance of every bundle, in display order.
func All() []*Bundle {
	return []*Bundle{
		{"FIFO", FifoBundle, scheduler.NewFIFO(), resource.NewFCFS()},
		{"Shortest-Job First", SjfBundle, scheduler.NewSJF(), resource.NewFCFS()},
		{"Shortest Time-to-Complete First", StcfBundle, scheduler.NewSTCF(), resource.NewFCFS()},
		{"Round-Robin", RrBundle, scheduler.NewRR(), resource.NewFCFS()},
		{"Priority", PriorityBundle, scheduler.NewPriority(), resource.NewPreemptive()},
		{"Priority + aging", AgingBundle, scheduler.NewPriorityAging(), resource.NewPreemptive()},
		{"Priority + PCP Protocol", PcpBundle, scheduler.NewPriority(), resource.NewPCP()},
		{"Priority + PIP Protocol", PipBundle, scheduler.NewPriority(), resource.NewPIP()},
		{"Priority + FCFS Protocol", PrioFcfsBundle, scheduler.NewPriority(), resource.NewPrioRelease()},
	}
}

// Lookup finds a bundle by display name or alias, ignoring case.
func Lookup(name string) (*Bundle, error) {
	name = strings.TrimSpace(name)
	for _, b := range All() {
		if strings.EqualFold(b.Name, name) || strings.EqualFold(string(b.Alias), name) {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownBundle, name)
}

// Names lists the display names of every bundle.
func Names() []string {
	bundles := All()
	names := make([]string, len(bundles))
	for i, b := range bundles {
		names[i] = b.Name
	}
	return names
}
