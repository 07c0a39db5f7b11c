package scanner

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Scan states. The values are stored in ScanReport.State.
const (
	StateIdle     = "idle"
	StateLoading  = "loading"
	StateScanning = "scanning"
	StateDone     = "done"
	StateFailed   = "failed"
)

// Scan events.
const (
	eventLoad   = "load"
	eventLoaded = "loaded"
	eventFinish = "finish"
	eventFail   = "fail"
)

type scanContext struct {
	URL string
}

// scanMachine tracks the lifecycle of one scan.
type scanMachine struct {
	interpreter *statekit.Interpreter[scanContext]
}

func newScanMachine(url string) (*scanMachine, error) {
	builder := statekit.NewMachine[scanContext]("contrast-scan").
		WithInitial(statekit.StateID(StateIdle)).
		WithContext(scanContext{URL: url})

	builder.State(StateIdle).
		On(eventLoad).Target(StateLoading).
		Done()

	builder.State(StateLoading).
		On(eventLoaded).Target(StateScanning).
		On(eventFail).Target(StateFailed).
		Done()

	builder.State(StateScanning).
		On(eventFinish).Target(StateDone).
		On(eventFail).Target(StateFailed).
		Done()

	builder.State(StateDone).Done()
	builder.State(StateFailed).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &scanMachine{interpreter: interpreter}, nil
}

// send delivers event and returns an error if it did not cause a transition.
func (m *scanMachine) send(event string) error {
	before := m.current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if m.current() == before {
		return fmt.Errorf("event %q is not allowed in state %q", event, before)
	}
	return nil
}

func (m *scanMachine) current() string {
	return string(m.interpreter.State().Value)
}
