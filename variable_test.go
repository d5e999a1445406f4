package fxplc

import (
	"testing"

	"github.com/GoAethereal/cancel"
)

func TestVariableRegistryLookup(t *testing.T) {
	defs := []VariableDefinition{
		{Name: "motor_run", Register: Ref{Class: Output, Index: 12}},
		{Name: "setpoint", Register: Ref{Class: Data, Index: 100}, Encoding: WordSigned},
	}
	r, err := NewVariableRegistry(defs)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Lookup("missing"); err == nil {
		t.Error("Lookup(missing): expected VariableNotFound")
	}

	d, err := r.Lookup("motor_run")
	if err != nil || d.Register.Index != 12 {
		t.Errorf("Lookup(motor_run) = %v, %v", d, err)
	}

	list := r.List()
	if len(list) != 2 || list[0].Name != "motor_run" || list[1].Name != "setpoint" {
		t.Errorf("List() = %v, want insertion order", list)
	}
}

func TestVariableRegistryDuplicateName(t *testing.T) {
	defs := []VariableDefinition{
		{Name: "dup", Register: Ref{Class: Memory, Index: 1}},
		{Name: "dup", Register: Ref{Class: Memory, Index: 2}},
	}
	if _, err := NewVariableRegistry(defs); err == nil {
		t.Error("expected error for duplicate variable name")
	}
}

func TestWriteVariableReadOnly(t *testing.T) {
	c := NewMockClient()

	// X is always read-only regardless of the ReadOnly flag.
	d := VariableDefinition{Name: "sensor", Register: Ref{Class: Input, Index: 0}}
	_, err := writeVariable(cancel.New(), c, d, true)
	e, ok := err.(*Error)
	if !ok || e.Kind != ReadOnly {
		t.Errorf("write to X: got %v, want ReadOnly", err)
	}

	d2 := VariableDefinition{Name: "locked", Register: Ref{Class: Memory, Index: 1}, ReadOnly: true}
	_, err = writeVariable(cancel.New(), c, d2, true)
	e, ok = err.(*Error)
	if !ok || e.Kind != ReadOnly {
		t.Errorf("write to ReadOnly var: got %v, want ReadOnly", err)
	}
}

func TestToggleVariable(t *testing.T) {
	c := NewMockClient() // ReadBit always returns false
	d := VariableDefinition{Name: "coil", Register: Ref{Class: Memory, Index: 1}}

	got, err := toggleVariable(cancel.New(), c, d)
	if err != nil {
		t.Fatal(err)
	}
	if got != true {
		t.Errorf("toggleVariable on false = %v, want true", got)
	}
}

func TestCoerceBool(t *testing.T) {
	cases := []struct {
		in   interface{}
		want bool
	}{
		{0, false},
		{1, true},
		{int16(0), false},
		{int16(5), true},
		{true, true},
		{false, false},
	}
	for _, c := range cases {
		if got := coerceBool(c.in); got != c.want {
			t.Errorf("coerceBool(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
