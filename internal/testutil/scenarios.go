package testutil

import "github.com/roach88/sdfsched/internal/ir"

// ScenarioA is a producer of rate 2 feeding a consumer of rate 1.
// Solved counts: A=1, B=2.
func ScenarioA() *ir.Model {
	return NewModel("scenario-a").
		Actor("A", Out("out", 2)).
		Actor("B", In("in", 1)).
		Connect("A.out", "B.in").
		Build()
}

// ScenarioB is one actor whose rate-0 input is fed from the boundary.
func ScenarioB() *ir.Model {
	return NewModel("scenario-b").
		Input("in").
		Actor("A", In("in", 0)).
		Connect("in", "A.in").
		Build()
}

// ScenarioC is a two-actor loop closed through a relay holding one token.
func ScenarioC() *ir.Model {
	return NewModel("scenario-c").
		Actor("A", In("in", 1), Out("out", 1)).
		Actor("B", In("in", 1), Out("out", 1)).
		Relay("D", 1).
		Connect("A.out", "B.in").
		Connect("B.out", "D.input").
		Connect("D.output", "A.in").
		Build()
}

// ScenarioD drives one receiver from two boundary inputs.
func ScenarioD() *ir.Model {
	return NewModel("scenario-d").
		Input("in1", "in2").
		Actor("A", In("in", 1)).
		Connect("in1", "A.in").
		Connect("in2", "A.in").
		Build()
}

// ScenarioE has an actor X wired to nothing.
func ScenarioE() *ir.Model {
	return NewModel("scenario-e").
		Actor("A", Out("out", 1)).
		Actor("B", In("in", 1)).
		Actor("X", In("in", 1)).
		Connect("A.out", "B.in").
		Build()
}

// Join merges two boundary inputs into one output while a second output
// depends on the second input alone.
//
//	in1 -> U.in(1)  U.out(2) -> V.a(1)
//	in2 -> W.in(2)  W.out(2) -> V.b(1)  V.out(1) -> out1
//	                W.side(1) -> out2
//
// Solved counts: U=1, V=2, W=1; rates in1=1, in2=2, out1=2, out2=1.
func Join() *ir.Model {
	return NewModel("join").
		Input("in1", "in2").
		Output("out1", "out2").
		Actor("U", In("in", 1), Out("out", 2)).
		Actor("V", In("a", 1), In("b", 1), Out("out", 1)).
		Actor("W", In("in", 2), Out("out", 2), Out("side", 1)).
		Connect("in1", "U.in").
		Connect("in2", "W.in").
		Connect("U.out", "V.a").
		Connect("W.out", "V.b").
		Connect("V.out", "out1").
		Connect("W.side", "out2").
		Build()
}
