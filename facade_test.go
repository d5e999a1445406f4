package fxplc

import "testing"

func TestErrorMessageMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errQueueFull, "too many requests"},
		{errServicePaused, "service paused"},
		{errRequestTimeout, "request timeout"},
		{errRequestError, "request error"},
		{errNotSupportedCommand, "request error"},
		{errResponseMalformed("x"), "request error"},
		{errNoResponse, "request error"},
		{errInvalidRegister("x"), "request error"},
		{errReadOnly("v"), "variable is read-only"},
		{errVariableNotFound("v"), "variable not found"},
	}
	for _, c := range cases {
		if got := ErrorMessage(c.err); got != c.want {
			t.Errorf("ErrorMessage(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestGatewayReadVarUnknownName(t *testing.T) {
	b := NewBroker()
	g := NewGateway(b, nil)

	_, err := g.ReadVar("nope")
	e, ok := err.(*Error)
	if !ok || e.Kind != VariableNotFound {
		t.Errorf("ReadVar(unknown): got %v, want VariableNotFound", err)
	}
}

func TestGatewayPauseResumeBeforeStart(t *testing.T) {
	b := NewBroker()
	g := NewGateway(b, nil)

	if err := g.Pause(); err != nil {
		t.Fatalf("Pause on stopped broker: %v", err)
	}
	if err := g.Resume(); err != nil {
		t.Fatalf("Resume after pausing a never-started broker: %v", err)
	}
	defer g.Pause()
}

func TestGatewayListVariablesAgainstMock(t *testing.T) {
	vars, err := NewVariableRegistry([]VariableDefinition{
		{Name: "a", Register: Ref{Class: Memory, Index: 1}},
		{Name: "b", Register: Ref{Class: Data, Index: 10}, Encoding: WordSigned},
	})
	if err != nil {
		t.Fatal(err)
	}
	b := NewBroker()
	if err := b.Start(TransportConfig{Path: mockPath}); err != nil {
		t.Fatal(err)
	}
	defer b.Pause()

	g := NewGateway(b, vars)
	list, err := g.ListVariables()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "a" || list[1].Name != "b" {
		t.Errorf("ListVariables() = %v", list)
	}
}
