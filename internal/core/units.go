// Package core describes the function units a fetched instruction is
// bound to, adapted from the execution-unit registry the teacher model
// built per processor core. This simulator does not model per-unit
// contention (the spec only bounds issue/retire by width), so the
// registry's only remaining job is the op_type -> latency/name mapping
// fetch uses to stamp each instruction and to reject unknown op types.
package core

import "github.com/pkg/errors"

// FunctionUnit describes one of the three fixed-latency execution
// units a decoded op_type is routed to.
type FunctionUnit struct {
	Name    string
	OpType  int
	Latency int
}

// units is indexed by op_type; there is exactly one unit per type in
// this model (no redundant units, no contention).
var units = []FunctionUnit{
	{Name: "ALU", OpType: 0, Latency: 1},
	{Name: "Multiply", OpType: 1, Latency: 2},
	{Name: "Complex", OpType: 2, Latency: 5},
}

// ErrUnsupportedOpType is returned by Lookup for any op_type outside
// {0,1,2}.
var ErrUnsupportedOpType = errors.New("unsupported op type")

// Lookup returns the function unit bound to opType, or
// ErrUnsupportedOpType.
func Lookup(opType int) (FunctionUnit, error) {
	for _, u := range units {
		if u.OpType == opType {
			return u, nil
		}
	}
	return FunctionUnit{}, errors.Wrapf(ErrUnsupportedOpType, "op_type %d", opType)
}
