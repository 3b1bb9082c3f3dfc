package epa_test

import (
	"context"
	"fmt"
	"log"
	"reflect"

	"github.com/aretw0/epa"
	"github.com/aretw0/epa/pkg/adapters/memory"
	"github.com/aretw0/epa/pkg/capability"
	"github.com/aretw0/epa/pkg/domain"
)

// Conn is a hand-instrumented subject: each classified method runs its
// body through the monitor.
type Conn struct {
	mon       *epa.Monitor
	connected bool
}

func (c *Conn) IsConnected() bool { return c.connected }

func (c *Conn) Connect() error {
	return c.mon.Call("Conn", "Connect()", c, func() error {
		c.connected = true
		return nil
	})
}

func (c *Conn) Send(msg string) error {
	return c.mon.Call("Conn", "Send(string)", c, func() error {
		if !c.connected {
			return domain.NewException("IllegalStateException", "not connected")
		}
		return nil
	})
}

// ExampleNew demonstrates a monitor built from Go values and an in-memory trace.
func ExampleNew() {
	automaton, err := domain.NewAutomaton("Conn", "Idle",
		[]domain.State{"Idle", "Connected"},
		[]domain.Action{"connect", "send"},
	)
	if err != nil {
		log.Fatal(err)
	}

	subject := &capability.SubjectType{
		Name: "Conn",
		Type: reflect.TypeOf(&Conn{}),
		Operations: []capability.Operation{
			{Signature: "Connect()", Action: "connect"},
			{Signature: "Send(string)", Action: "send", EnabledExceptions: "Exception", NotEnabledExceptions: "IllegalStateException"},
		},
		Queries: []capability.Query{{State: "Connected", Method: "IsConnected"}},
	}

	taxonomy := domain.NewTaxonomy().
		MustDeclare("Exception", "").
		MustDeclare("IllegalStateException", "Exception")

	trace := memory.NewRecorder()
	mon, err := epa.New(
		epa.WithAutomaton(automaton),
		epa.WithSubject(subject),
		epa.WithTaxonomy(taxonomy),
		epa.WithRecorder(trace),
	)
	if err != nil {
		log.Fatal(err)
	}

	good := &Conn{mon: mon}
	_ = good.Connect()
	_ = good.Send("hello")

	bad := &Conn{mon: mon}
	err = bad.Send("too early")
	fmt.Println(err)
	fmt.Println("excluded:", mon.IsInvalid(bad))

	transitions, _ := trace.Transitions(context.Background(), 1)
	for _, t := range transitions {
		fmt.Println(t)
	}

	// Output:
	// IllegalStateException: not connected
	// excluded: true
	// (Idle, connect, Connected)
	// (Connected, send, Connected)
}
