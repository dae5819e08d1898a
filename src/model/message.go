package model

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Message types exchanged between the trace server and its clients.
type MessageType string

const (
	TICK_MESSAGE    MessageType = "tick"
	SUMMARY_MESSAGE MessageType = "summary"
	ERROR_MESSAGE   MessageType = "error"
)

// How the running process was chosen for a tick.
type Decision string

const (
	DECISION_IDLE     Decision = "idle"
	DECISION_CONTINUE Decision = "continue"
	DECISION_SWITCH   Decision = "switch"
	DECISION_PREEMPT  Decision = "preempt"
)

// Asks the server to run a scenario under a policy bundle.
type SimulationRequest struct {
	ID     uuid.UUID
	Bundle string
	// Scenario file contents (YAML).
	Scenario []byte
}

// One simulated tick.
type TickEvent struct {
	RunID    uuid.UUID
	Tick     int
	Running  Handle
	Previous Handle
	Decision Decision
	Ready    []Handle
	Blocked  []Handle
	Finished []Handle
}

// End-of-run statistics.
type Summary struct {
	RunID           uuid.UUID
	Bundle          string
	Ticks           int
	Processes       int
	ContextSwitches int
	Preemptions     int
	IdleTicks       int
	Inversions      int
	AvgTurnaround   float64
	AvgWait         float64
	Jain            float64
}

// Sent instead of a summary when the run aborted.
type RunError struct {
	RunID   uuid.UUID
	Message string
}

// A message that can be written to a stream.
type Message interface {
	Write(writer io.Writer) error
}

// Format mimics HTTP:
// Headers - "Key: Value" separated by \n
// Followed by empty line
// Followed by optional data (requests only, sized by Content-Length)

// Write a SimulationRequest.
func (r *SimulationRequest) Write(writer io.Writer) (err error) {
	_, err = fmt.Fprintf(writer, "ID: %s\nBundle: %s\nContent-Length: %d\n\n",
		r.ID, r.Bundle, len(r.Scenario))
	if err != nil {
		return
	}
	_, err = writer.Write(r.Scenario)
	return
}

// Read a SimulationRequest.
func ReadSimulationRequest(reader *bufio.Reader) (req *SimulationRequest, err error) {
	headers, err := readHeaders(reader)
	if err != nil {
		return
	}

	request := &SimulationRequest{Bundle: headers["Bundle"]}
	if request.ID, err = uuid.Parse(headers["ID"]); err != nil {
		return
	}

	contentLength, err := strconv.Atoi(headers["Content-Length"])
	if err != nil {
		return
	}
	request.Scenario = make([]byte, contentLength)
	if _, err = io.ReadFull(reader, request.Scenario); err != nil {
		return
	}

	req = request
	return
}

// Write a TickEvent.
func (e *TickEvent) Write(writer io.Writer) (err error) {
	_, err = fmt.Fprintf(writer,
		"Type: %s\nRun: %s\nTick: %d\nRunning: %d\nPrevious: %d\nDecision: %s\n"+
			"Ready: %s\nBlocked: %s\nFinished: %s\n\n",
		TICK_MESSAGE, e.RunID, e.Tick, e.Running, e.Previous, e.Decision,
		FormatArray(e.Ready), FormatArray(e.Blocked), FormatArray(e.Finished))
	return
}

// Write a Summary.
func (s *Summary) Write(writer io.Writer) (err error) {
	_, err = fmt.Fprintf(writer,
		"Type: %s\nRun: %s\nBundle: %s\nTicks: %d\nProcesses: %d\n"+
			"Context-Switches: %d\nPreemptions: %d\nIdle-Ticks: %d\nInversions: %d\n"+
			"Avg-Turnaround: %s\nAvg-Wait: %s\nJain: %s\n\n",
		SUMMARY_MESSAGE, s.RunID, s.Bundle, s.Ticks, s.Processes,
		s.ContextSwitches, s.Preemptions, s.IdleTicks, s.Inversions,
		formatFloat(s.AvgTurnaround), formatFloat(s.AvgWait), formatFloat(s.Jain))
	return
}

// Write a RunError.
func (e *RunError) Write(writer io.Writer) (err error) {
	_, err = fmt.Fprintf(writer, "Type: %s\nRun: %s\nMessage: %s\n\n",
		ERROR_MESSAGE, e.RunID, strings.ReplaceAll(e.Message, "\n", " "))
	return
}

func (e *RunError) Error() string {
	return e.Message
}

// Read the next server message: *TickEvent, *Summary or *RunError.
func ReadMessage(reader *bufio.Reader) (msg Message, err error) {
	headers, err := readHeaders(reader)
	if err != nil {
		return
	}

	var runID uuid.UUID
	if runID, err = uuid.Parse(headers["Run"]); err != nil {
		return
	}

	h := headerParser{headers: headers}
	switch MessageType(headers["Type"]) {
	case TICK_MESSAGE:
		msg = &TickEvent{
			RunID:    runID,
			Tick:     h.atoi("Tick"),
			Running:  Handle(h.atoi("Running")),
			Previous: Handle(h.atoi("Previous")),
			Decision: Decision(headers["Decision"]),
			Ready:    h.handles("Ready"),
			Blocked:  h.handles("Blocked"),
			Finished: h.handles("Finished"),
		}
	case SUMMARY_MESSAGE:
		msg = &Summary{
			RunID:           runID,
			Bundle:          headers["Bundle"],
			Ticks:           h.atoi("Ticks"),
			Processes:       h.atoi("Processes"),
			ContextSwitches: h.atoi("Context-Switches"),
			Preemptions:     h.atoi("Preemptions"),
			IdleTicks:       h.atoi("Idle-Ticks"),
			Inversions:      h.atoi("Inversions"),
			AvgTurnaround:   h.atof("Avg-Turnaround"),
			AvgWait:         h.atof("Avg-Wait"),
			Jain:            h.atof("Jain"),
		}
	case ERROR_MESSAGE:
		msg = &RunError{RunID: runID, Message: headers["Message"]}
	default:
		err = fmt.Errorf("unknown message type %q", headers["Type"])
		return
	}

	err = h.err
	if err != nil {
		msg = nil
	}
	return
}

func readHeaders(reader *bufio.Reader) (headers map[string]string, err error) {
	result := map[string]string{}

	for {
		var line string
		if line, err = reader.ReadString('\n'); err != nil {
			return
		}

		line = line[:len(line)-1] // Removes the \n
		if len(line) == 0 {
			headers = result
			return
		}

		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 {
			err = errors.New("not a key value pair")
			return
		}

		result[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
}

// Collects the first conversion error.
type headerParser struct {
	headers map[string]string
	err     error
}

func (h *headerParser) atoi(key string) int {
	v, err := strconv.Atoi(h.headers[key])
	if err != nil && h.err == nil {
		h.err = fmt.Errorf("header %s: %w", key, err)
	}
	return v
}

func (h *headerParser) atof(key string) float64 {
	v, err := strconv.ParseFloat(h.headers[key], 64)
	if err != nil && h.err == nil {
		h.err = fmt.Errorf("header %s: %w", key, err)
	}
	return v
}

func (h *headerParser) handles(key string) []Handle {
	values, err := ParseArray(h.headers[key])
	if err != nil && h.err == nil {
		h.err = fmt.Errorf("header %s: %w", key, err)
	}
	result := make([]Handle, len(values))
	for i, v := range values {
		result[i] = Handle(v)
	}
	return result
}

// Formats handles as "[1, 2, 3]".
func FormatArray(handles []Handle) string {
	parts := make([]string, len(handles))
	for i, h := range handles {
		parts[i] = strconv.Itoa(int(h))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Converts a string like "[1, 2, 3, 4]" to a slice of int.
func ParseArray(input string) ([]int, error) {
	input = strings.TrimPrefix(input, "[")
	input = strings.TrimSuffix(input, "]")
	input = strings.TrimSpace(input)

	if input == "" {
		return []int{}, nil
	}

	elements := strings.Split(input, ",")

	result := make([]int, 0, len(elements))
	for _, element := range elements {
		value, err := strconv.Atoi(strings.TrimSpace(element))
		if err != nil {
			return nil, err
		}
		result = append(result, value)
	}

	return result, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
