package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"schedsim/src/model"
	"strconv"
)

const (
	TimelineFile  = "timeline.csv"
	ProcessesFile = "processes.csv"
	SummaryFile   = "summary.csv"
)

type csvOut struct {
	f *os.File
	w *csv.Writer
}

func openCSV(path string, hdr []string) (*csvOut, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	c := &csvOut{f: f, w: csv.NewWriter(f)}
	if err := c.w.Write(hdr); err != nil {
		_ = f.Close()
		return nil, err
	}
	return c, nil
}

func (c *csvOut) write(row []string) error {
	return c.w.Write(row)
}

func (c *csvOut) close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		_ = c.f.Close()
		return err
	}
	return c.f.Close()
}

func itoa(v int) string    { return strconv.Itoa(v) }
func f64(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// WriteCSV writes timeline.csv, processes.csv and summary.csv into dir,
// replacing previous files.
func (c *Collector) WriteCSV(dir string) error {
	writers := []func(string) error{c.writeTimeline, c.writeProcesses, c.writeSummary}
	for _, write := range writers {
		if err := write(dir); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func (c *Collector) writeTimeline(dir string) error {
	out, err := openCSV(filepath.Join(dir, TimelineFile), []string{
		"tick", "running", "previous", "decision", "ready", "blocked", "finished",
	})
	if err != nil {
		return err
	}

	for _, e := range c.timeline {
		err := out.write([]string{
			itoa(e.Tick),
			itoa(int(e.Running)),
			itoa(int(e.Previous)),
			string(e.Decision),
			model.FormatArray(e.Ready),
			model.FormatArray(e.Blocked),
			model.FormatArray(e.Finished),
		})
		if err != nil {
			_ = out.close()
			return err
		}
	}
	return out.close()
}

func (c *Collector) writeProcesses(dir string) error {
	out, err := openCSV(filepath.Join(dir, ProcessesFile), []string{
		"pid", "lifespan", "priority", "arrival", "first_run", "finish",
		"run", "wait", "blocked", "turnaround", "response",
	})
	if err != nil {
		return err
	}

	for _, p := range c.procs {
		err := out.write([]string{
			itoa(int(p.PID)),
			itoa(p.Lifespan),
			itoa(p.Priority),
			itoa(p.Arrival),
			itoa(p.FirstRun),
			itoa(p.Finish),
			itoa(p.Run),
			itoa(p.Wait),
			itoa(p.Blocked),
			itoa(p.Turnaround()),
			itoa(p.Response()),
		})
		if err != nil {
			_ = out.close()
			return err
		}
	}
	return out.close()
}

func (c *Collector) writeSummary(dir string) error {
	out, err := openCSV(filepath.Join(dir, SummaryFile), []string{
		"run", "bundle", "ticks", "processes",
		"context_switches", "preemptions", "idle_ticks", "inversions",
		"avg_turnaround", "avg_wait", "jain_fairness", "work_conserving_ratio",
	})
	if err != nil {
		return err
	}

	s := c.Summary()
	err = out.write([]string{
		s.RunID.String(),
		s.Bundle,
		itoa(s.Ticks),
		itoa(s.Processes),
		itoa(s.ContextSwitches),
		itoa(s.Preemptions),
		itoa(s.IdleTicks),
		itoa(s.Inversions),
		f64(s.AvgTurnaround),
		f64(s.AvgWait),
		f64(s.Jain),
		f64(c.WorkConserving()),
	})
	if err != nil {
		_ = out.close()
		return err
	}
	return out.close()
}
