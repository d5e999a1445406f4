package fxplc

import "github.com/GoAethereal/cancel"

// Gateway is the external API facade of spec.md §4.G: every call is
// protocol-agnostic and goes through the Broker, so a REST shell, a CLI,
// or any other surface is a thin adapter over this type (out of scope
// here per spec.md §1's Non-goals).
type Gateway struct {
	broker *Broker
	vars   *VariableRegistry
}

// NewGateway builds a Gateway over an already-started Broker and a
// (possibly empty) variable registry.
func NewGateway(broker *Broker, vars *VariableRegistry) *Gateway {
	if vars == nil {
		vars, _ = NewVariableRegistry(nil)
	}
	return &Gateway{broker: broker, vars: vars}
}

// RegisterValue is the shape returned by the named-variable operations:
// the variable's name, its register, and the value read or written. The
// raw-register operations return the bare value instead.
type RegisterValue struct {
	Name     string
	Register Ref
	Value    interface{}
}

// ReadRaw reads refText directly, decoded per enc for D/C classes and as
// a bool for bit classes (spec.md §4.G).
func (g *Gateway) ReadRaw(refText string, enc NumberEncoding) (interface{}, error) {
	ref, err := ParseRef(refText)
	if err != nil {
		return nil, err
	}
	return g.broker.enqueue(func(ctx cancel.Context, c plcClient) (interface{}, error) {
		return readVariable(ctx, c, VariableDefinition{Register: ref, Encoding: enc})
	})
}

// WriteRaw writes value to refText and returns the value actually
// written (spec.md §4.G).
func (g *Gateway) WriteRaw(refText string, value interface{}, enc NumberEncoding) (interface{}, error) {
	ref, err := ParseRef(refText)
	if err != nil {
		return nil, err
	}
	return g.broker.enqueue(func(ctx cancel.Context, c plcClient) (interface{}, error) {
		return writeVariable(ctx, c, VariableDefinition{Register: ref, Encoding: enc}, value)
	})
}

// EnableRaw/DisableRaw/ToggleRaw are the named convenience operations
// against a raw register reference (spec.md §4.G).

func (g *Gateway) EnableRaw(refText string) (interface{}, error) {
	return g.rawBitOp(refText, enableVariable)
}

func (g *Gateway) DisableRaw(refText string) (interface{}, error) {
	return g.rawBitOp(refText, disableVariable)
}

func (g *Gateway) ToggleRaw(refText string) (interface{}, error) {
	return g.rawBitOp(refText, toggleVariable)
}

func (g *Gateway) rawBitOp(refText string, op func(cancel.Context, plcClient, VariableDefinition) (interface{}, error)) (interface{}, error) {
	ref, err := ParseRef(refText)
	if err != nil {
		return nil, err
	}
	return g.broker.enqueue(func(ctx cancel.Context, c plcClient) (interface{}, error) {
		return op(ctx, c, VariableDefinition{Register: ref})
	})
}

// ReadVar reads a named variable (spec.md §4.G, §6).
func (g *Gateway) ReadVar(name string) (RegisterValue, error) {
	d, err := g.vars.Lookup(name)
	if err != nil {
		return RegisterValue{}, err
	}
	value, err := g.broker.enqueue(func(ctx cancel.Context, c plcClient) (interface{}, error) {
		return readVariable(ctx, c, d)
	})
	if err != nil {
		return RegisterValue{}, err
	}
	return RegisterValue{Name: d.Name, Register: d.Register, Value: value}, nil
}

// WriteVar writes a named variable.
func (g *Gateway) WriteVar(name string, value interface{}) (RegisterValue, error) {
	d, err := g.vars.Lookup(name)
	if err != nil {
		return RegisterValue{}, err
	}
	written, err := g.broker.enqueue(func(ctx cancel.Context, c plcClient) (interface{}, error) {
		return writeVariable(ctx, c, d, value)
	})
	if err != nil {
		return RegisterValue{}, err
	}
	return RegisterValue{Name: d.Name, Register: d.Register, Value: written}, nil
}

// EnableVar/DisableVar/ToggleVar are the named convenience operations
// against a registered variable (spec.md §4.G).

func (g *Gateway) EnableVar(name string) (RegisterValue, error) {
	return g.namedBitOp(name, enableVariable)
}

func (g *Gateway) DisableVar(name string) (RegisterValue, error) {
	return g.namedBitOp(name, disableVariable)
}

func (g *Gateway) ToggleVar(name string) (RegisterValue, error) {
	return g.namedBitOp(name, toggleVariable)
}

func (g *Gateway) namedBitOp(name string, op func(cancel.Context, plcClient, VariableDefinition) (interface{}, error)) (RegisterValue, error) {
	d, err := g.vars.Lookup(name)
	if err != nil {
		return RegisterValue{}, err
	}
	value, err := g.broker.enqueue(func(ctx cancel.Context, c plcClient) (interface{}, error) {
		return op(ctx, c, d)
	})
	if err != nil {
		return RegisterValue{}, err
	}
	return RegisterValue{Name: d.Name, Register: d.Register, Value: value}, nil
}

// ListVariables returns every registered variable's current value
// (spec.md §6, list_vars).
func (g *Gateway) ListVariables() ([]RegisterValue, error) {
	defs := g.vars.List()
	out := make([]RegisterValue, 0, len(defs))
	for _, d := range defs {
		rv, err := g.ReadVar(d.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, nil
}

// Pause and Resume expose the broker's lifecycle controls through the
// facade (spec.md §4.G).

func (g *Gateway) Pause() error {
	return g.broker.Pause()
}

func (g *Gateway) Resume() error {
	return g.broker.Resume()
}

// ErrorMessage maps an error's Kind to the external-facing message of
// spec.md §4.G's mapping table. Unrecognized errors fall through to
// "request error", matching the table's catch-all for client/broker
// failure kinds.
func ErrorMessage(err error) string {
	e, ok := err.(*Error)
	if !ok {
		return "request error"
	}
	switch e.Kind {
	case QueueFull:
		return "too many requests"
	case ServicePaused:
		return "service paused"
	case RequestTimeout:
		return "request timeout"
	case ReadOnly:
		return "variable is read-only"
	case VariableNotFound:
		return "variable not found"
	case RequestError, NotSupportedCommand, ResponseMalformed, NoResponse, InvalidRegister:
		return "request error"
	default:
		return "request error"
	}
}
