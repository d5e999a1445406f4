package fxplc

import "github.com/GoAethereal/cancel"

// VariableDefinition names a register and how to treat it (spec.md §6,
// "Variable file"). Group is an optional display/ordering hint; it plays
// no role in dispatch.
type VariableDefinition struct {
	Name     string
	Register Ref
	Group    string
	Encoding NumberEncoding
	ReadOnly bool
}

// VariableRegistry is an insertion-ordered name -> VariableDefinition map
// (spec.md §4.F). It is read-only after construction; the worker and
// facade only ever read from it.
type VariableRegistry struct {
	order  []string
	byName map[string]VariableDefinition
}

// NewVariableRegistry builds a registry from defs, in the given order.
// Duplicate names are rejected.
func NewVariableRegistry(defs []VariableDefinition) (*VariableRegistry, error) {
	r := &VariableRegistry{byName: make(map[string]VariableDefinition, len(defs))}
	for _, d := range defs {
		if _, exists := r.byName[d.Name]; exists {
			return nil, errInvalidRegister("duplicate variable name " + d.Name)
		}
		r.byName[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// Lookup returns the definition for name, or VariableNotFound.
func (r *VariableRegistry) Lookup(name string) (VariableDefinition, error) {
	d, ok := r.byName[name]
	if !ok {
		return VariableDefinition{}, errVariableNotFound(name)
	}
	return d, nil
}

// List returns every definition in insertion order.
func (r *VariableRegistry) List() []VariableDefinition {
	out := make([]VariableDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// isBitClass reports whether class dispatches to the bit operations
// rather than the numeric ones (spec.md §4.F).
func isBitClass(c Class) bool {
	switch c {
	case State, Input, Output, Memory, Timer:
		return true
	}
	return false
}

// readVariable dispatches a generic read by register class (spec.md
// §4.F): bit classes read a bool, D/C read a number per the variable's
// encoding.
func readVariable(ctx cancel.Context, c plcClient, d VariableDefinition) (interface{}, error) {
	if isBitClass(d.Register.Class) {
		return c.ReadBit(ctx, d.Register)
	}
	return c.ReadNumber(ctx, d.Register, d.Encoding)
}

// writeVariable dispatches a generic write by register class. X is
// always read-only, matching the physical semantics of an input
// terminal; any variable explicitly marked ReadOnly is rejected the same
// way (spec.md §4.F).
func writeVariable(ctx cancel.Context, c plcClient, d VariableDefinition, value interface{}) (interface{}, error) {
	if d.ReadOnly || d.Register.Class == Input {
		return nil, errReadOnly(d.Name)
	}
	if isBitClass(d.Register.Class) {
		b := coerceBool(value)
		if err := c.WriteBit(ctx, d.Register, b); err != nil {
			return nil, err
		}
		return b, nil
	}
	n := coerceFloat(value)
	if err := c.WriteNumber(ctx, d.Register, n, d.Encoding); err != nil {
		return nil, err
	}
	return n, nil
}

// enableVariable/disableVariable/toggleVariable implement the named
// convenience operations of spec.md §4.F.

func enableVariable(ctx cancel.Context, c plcClient, d VariableDefinition) (interface{}, error) {
	return writeVariable(ctx, c, d, true)
}

func disableVariable(ctx cancel.Context, c plcClient, d VariableDefinition) (interface{}, error) {
	return writeVariable(ctx, c, d, false)
}

func toggleVariable(ctx cancel.Context, c plcClient, d VariableDefinition) (interface{}, error) {
	if d.ReadOnly || d.Register.Class == Input {
		return nil, errReadOnly(d.Name)
	}
	current, err := c.ReadBit(ctx, d.Register)
	if err != nil {
		return nil, err
	}
	if err := c.WriteBit(ctx, d.Register, !current); err != nil {
		return nil, err
	}
	return !current, nil
}

// coerceBool implements the "0 -> false, any nonzero -> true" rule of
// spec.md §4.F for write values of the bool and number types listed
// below; a value of any other type coerces to false.
func coerceBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int16:
		return v != 0
	case int32:
		return v != 0
	case uint16:
		return v != 0
	case uint32:
		return v != 0
	case float32:
		return v != 0
	case float64:
		return v != 0
	}
	return false
}

func coerceFloat(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	}
	return 0
}
