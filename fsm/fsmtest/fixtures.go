// Package fsmtest provides fixtures and helpers for testing code built on fsm.
package fsmtest

import (
	"github.com/amp-labs/lifecycle/fsm"
	"github.com/amp-labs/lifecycle/store/memory"
)

// VehicleInitialState is the initial state of the vehicle machine.
const VehicleInitialState = "parked"

// VehicleYAML is the vehicle machine as a definition document.
const VehicleYAML = `name: vehicle
initial_state: parked
transitions:
  ignite:
    parked: idling
    stalled: stalled
  park:
    idling: parked
    first_gear: parked
  shift_up:
    idling: first_gear
    first_gear: second_gear
    second_gear: third_gear
  shift_down:
    first_gear: idling
    second_gear: first_gear
    third_gear: second_gear
  crash:
    first_gear: stalled
    second_gear: stalled
    third_gear: stalled
  repair:
    stalled: parked
  idle:
    first_gear: idling
  turn_off:
    all: parked
  baz: {}
`

// VehicleDot is the exact Graphviz rendering of the vehicle table.
const VehicleDot = "digraph finite_state_machine {\n" +
	"\trankdir=LR\n" +
	"\tfontsize=12\n" +
	"\tnode [shape = circle];\n" +
	"\tparked -> idling [ label = \"ignite\" ];\n" +
	"\tstalled -> stalled [ label = \"ignite\" ];\n" +
	"\tidling -> parked [ label = \"park\" ];\n" +
	"\tfirst_gear -> parked [ label = \"park\" ];\n" +
	"\tidling -> first_gear [ label = \"shift_up\" ];\n" +
	"\tfirst_gear -> second_gear [ label = \"shift_up\" ];\n" +
	"\tsecond_gear -> third_gear [ label = \"shift_up\" ];\n" +
	"\tfirst_gear -> idling [ label = \"shift_down\" ];\n" +
	"\tsecond_gear -> first_gear [ label = \"shift_down\" ];\n" +
	"\tthird_gear -> second_gear [ label = \"shift_down\" ];\n" +
	"\tfirst_gear -> stalled [ label = \"crash\" ];\n" +
	"\tsecond_gear -> stalled [ label = \"crash\" ];\n" +
	"\tthird_gear -> stalled [ label = \"crash\" ];\n" +
	"\tstalled -> parked [ label = \"repair\" ];\n" +
	"\tfirst_gear -> idling [ label = \"idle\" ];\n" +
	"\tall -> parked [ label = \"turn_off\" ];\n" +
	"}"

// VehicleTable returns the vehicle transition table: nine transitions over
// six states, including a wildcard transition and an empty one.
func VehicleTable() *fsm.Table {
	return fsm.MustTable(
		fsm.Define("ignite", fsm.Move("parked", "idling"), fsm.Move("stalled", "stalled")),
		fsm.Define("park", fsm.Move("idling", "parked"), fsm.Move("first_gear", "parked")),
		fsm.Define("shift_up",
			fsm.Move("idling", "first_gear"),
			fsm.Move("first_gear", "second_gear"),
			fsm.Move("second_gear", "third_gear"),
		),
		fsm.Define("shift_down",
			fsm.Move("first_gear", "idling"),
			fsm.Move("second_gear", "first_gear"),
			fsm.Move("third_gear", "second_gear"),
		),
		fsm.Define("crash",
			fsm.Move("first_gear", "stalled"),
			fsm.Move("second_gear", "stalled"),
			fsm.Move("third_gear", "stalled"),
		),
		fsm.Define("repair", fsm.Move("stalled", "parked")),
		fsm.Define("idle", fsm.Move("first_gear", "idling")),
		fsm.Define("turn_off", fsm.Move(fsm.Wildcard, "parked")),
		fsm.Define("baz"),
	)
}

// VehicleRecords returns the four stored vehicles: two parked, one idling
// and one stalled.
func VehicleRecords() []*memory.Record {
	return []*memory.Record{
		memory.Hydrate("1", map[string]any{"title": "Audi Q4", "state": "parked"}),
		memory.Hydrate("2", map[string]any{"title": "Toyota Yaris", "state": "parked"}),
		memory.Hydrate("3", map[string]any{"title": "Opel Astra", "state": "idling", "previous_state": "parked"}),
		memory.Hydrate("4", map[string]any{"title": "Nissan Leaf", "state": "stalled", "previous_state": "third_gear"}),
	}
}

// VehicleStore returns a memory store holding VehicleRecords.
func VehicleStore(hooks ...memory.SaveHook) *memory.Store {
	store := memory.NewStore(hooks...)

	for _, r := range VehicleRecords() {
		store.Save(r)
	}

	return store
}
