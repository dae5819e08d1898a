package model_test

import (
	"bufio"
	"bytes"
	"schedsim/src/model"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var runID = uuid.MustParse("6f1c1d52-7d43-4bd4-9a07-0d2b4c8c4c11")

func TestWriteRequest(t *testing.T) {
	buf := &bytes.Buffer{}
	(&model.SimulationRequest{
		ID:       runID,
		Bundle:   "FIFO",
		Scenario: []byte("name: x\n"),
	}).Write(buf)
	expected := []byte(`ID: 6f1c1d52-7d43-4bd4-9a07-0d2b4c8c4c11
Bundle: FIFO
Content-Length: 8

name: x
`)

	assert.Equal(t, expected, buf.Bytes())
}

func TestReadRequest(t *testing.T) {
	buf := bytes.NewBuffer([]byte(`ID: 6f1c1d52-7d43-4bd4-9a07-0d2b4c8c4c11
Bundle: Priority + PIP Protocol
Content-Length: 8

name: x
`))
	req, err := model.ReadSimulationRequest(bufio.NewReader(buf))

	assert.NotNil(t, req)
	assert.Nil(t, err)

	assert.Equal(t, runID, req.ID)
	assert.Equal(t, "Priority + PIP Protocol", req.Bundle)
	assert.Equal(t, []byte("name: x\n"), req.Scenario)
}

func TestReadRequestFail(t *testing.T) {
	buf := bytes.NewBuffer([]byte(`Bundle: FIFO`))
	req, err := model.ReadSimulationRequest(bufio.NewReader(buf))

	assert.Nil(t, req)
	assert.NotNil(t, err)
}

func TestTickEventRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	event := &model.TickEvent{
		RunID:    runID,
		Tick:     7,
		Running:  2,
		Previous: model.None,
		Decision: model.DECISION_PREEMPT,
		Ready:    []model.Handle{0, 1},
		Blocked:  []model.Handle{},
		Finished: []model.Handle{3},
	}
	assert.Nil(t, event.Write(buf))
	assert.Contains(t, buf.String(), "Ready: [0, 1]\n")

	msg, err := model.ReadMessage(bufio.NewReader(buf))
	assert.Nil(t, err)
	assert.Equal(t, event, msg)
}

func TestReadMessageSummaryAndError(t *testing.T) {
	buf := &bytes.Buffer{}
	summary := &model.Summary{RunID: runID, Bundle: "Round-Robin", Ticks: 9, Processes: 3, Jain: 1}
	assert.Nil(t, summary.Write(buf))
	assert.Nil(t, (&model.RunError{RunID: runID, Message: "release\nnot owner"}).Write(buf))

	reader := bufio.NewReader(buf)

	msg, err := model.ReadMessage(reader)
	assert.Nil(t, err)
	assert.Equal(t, summary, msg)

	msg, err = model.ReadMessage(reader)
	assert.Nil(t, err)
	assert.Equal(t, &model.RunError{RunID: runID, Message: "release not owner"}, msg)
}

func TestReadMessageUnknownType(t *testing.T) {
	buf := bytes.NewBufferString("Type: video\nRun: 6f1c1d52-7d43-4bd4-9a07-0d2b4c8c4c11\n\n")
	msg, err := model.ReadMessage(bufio.NewReader(buf))

	assert.Nil(t, msg)
	assert.NotNil(t, err)
}

func TestParseArray(t *testing.T) {
	values, err := model.ParseArray("[1, 2, 3, 4]")
	assert.Nil(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, values)

	values, err = model.ParseArray("[]")
	assert.Nil(t, err)
	assert.Empty(t, values)

	_, err = model.ParseArray("[1, x]")
	assert.NotNil(t, err)
}

func TestProcessRemaining(t *testing.T) {
	p := model.NewProcess(0, 3, 5)
	assert.Equal(t, 3, p.Remaining())
	assert.True(t, p.Runnable())
	assert.Equal(t, model.NoQueue, p.Queue)
	assert.Equal(t, 5, p.PriorityBase)

	p.Age = 3
	assert.True(t, p.Finished())
	assert.False(t, p.Runnable())
}
