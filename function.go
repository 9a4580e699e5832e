/*
Copyright 2016-2017 by Milo Christiansen

This software is provided 'as-is', without any express or implied warranty. In
no event will the authors be held liable for any damages arising from the use of
this software.

Permission is granted to anyone to use this software for any purpose, including
commercial applications, and to alter it and redistribute it freely, subject to
the following restrictions:

1. The origin of this software must not be misrepresented; you must not claim
that you wrote the original software. If you use this software in a product, an
acknowledgment in the product documentation would be appreciated but is not
required.

2. Altered source versions must be plainly marked as such, and must not be
misrepresented as being the original software.

3. This notice may not be removed or altered from any source distribution.
*/

package rembulan

import "bytes"
import "fmt"
import "text/tabwriter"

import "github.com/missingfaktor/rembulan/luautil"

// Proto is one compiled function body: the emitted instruction stream plus
// the data it references. The host execution environment walks the code and
// calls the named dispatch entries; this package never interprets it.
type Proto struct {
	code       []Instruction
	constants  []Value
	prototypes []*Proto

	// The capture table: upCells[i] is the register in the *enclosing* frame
	// whose cell becomes upvalue i of closures made from this prototype.
	// Generated at compile time, so upvalue lookup never needs reflection.
	upCells []int

	parameterCount int
	registerCount  int
	isVararg       bool

	source      string // Debug info
	lineDefined int    // Debug info
}

// Code returns the emitted instruction stream.
func (p *Proto) Code() []Instruction {
	return p.code
}

// Constants returns the constant pool. Entries are nil, bool, int64,
// float64, or string.
func (p *Proto) Constants() []Value {
	return p.constants
}

// Prototypes returns the nested function prototypes.
func (p *Proto) Prototypes() []*Proto {
	return p.prototypes
}

// UpCells returns the capture table, upvalue index to enclosing frame
// register.
func (p *Proto) UpCells() []int {
	return p.upCells
}

func (p *Proto) ParameterCount() int {
	return p.parameterCount
}

func (p *Proto) RegisterCount() int {
	return p.registerCount
}

func (p *Proto) IsVararg() bool {
	return p.isVararg
}

func (p *Proto) Source() string {
	return p.source
}

func (p *Proto) String() string {
	return p.str("")
}

func (p *Proto) str(prefix string) string {
	out := new(bytes.Buffer)
	fmt.Fprintf(out, "%v:%v params:%v regs:%v\n", p.source, p.lineDefined, p.parameterCount, p.registerCount)

	w := tabwriter.NewWriter(out, 2, 8, 2, ' ', 0)
	fmt.Fprintf(out, "%v Code:\n", prefix)
	for j, i := range p.code {
		fmt.Fprintf(w, "%v  [%v]\t%v\t\n", prefix, j, i)
	}
	w.Flush()

	fmt.Fprintf(out, "%v Constants:\n", prefix)
	if len(p.constants) == 0 {
		fmt.Fprintf(out, "%v  None.\n", prefix)
	}
	for i, v := range p.constants {
		fmt.Fprintf(w, "%v  [%v]\t%#v\n", prefix, i, v)
	}
	w.Flush()

	fmt.Fprintf(out, "%v Captures:\n", prefix)
	if len(p.upCells) == 0 {
		fmt.Fprintf(out, "%v  None.\n", prefix)
	}
	for i, r := range p.upCells {
		fmt.Fprintf(w, "%v  [%v]\tr(%v)\n", prefix, i, r)
	}
	w.Flush()

	fmt.Fprintf(out, "%v Closures:\n", prefix)
	if len(p.prototypes) == 0 {
		fmt.Fprintf(out, "%v  None.\n", prefix)
	}
	for i, c := range p.prototypes {
		fmt.Fprintf(out, "%v  [%v] %v\n", prefix, i, c.str(fmt.Sprintf("%v  [%v]", prefix, i)))
	}

	return string(bytes.TrimSpace(out.Bytes()))
}

// Cell is the shared storage for one captured variable. All closures that
// capture the same variable hold the same cell.
type Cell struct {
	v Value
}

// NewCell boxes a value as captured variable storage.
func NewCell(v Value) *Cell {
	return &Cell{v: v}
}

// Get returns the cell's current value.
func (c *Cell) Get() Value {
	return c.v
}

// Set replaces the cell's current value.
func (c *Cell) Set(v Value) {
	c.v = v
}

// NativeFunction is the prototype to which native functions must conform.
// Results go into the sink, which is reset before the call.
type NativeFunction func(l *State, sink *ObjectSink, args ...Value)

// Function is a callable value: either a native function or a closure over a
// compiled prototype and its captured cells.
type Function struct {
	proto  *Proto
	native NativeFunction

	upVals []*Cell
}

// NewNative wraps a native function as a callable value.
func NewNative(f NativeFunction) *Function {
	return &Function{native: f}
}

// NewClosure binds a compiled prototype to its captured cells. The cell count
// must match the prototype's capture table.
func NewClosure(p *Proto, cells ...*Cell) *Function {
	if len(cells) != len(p.upCells) {
		luautil.Raise("Closure capture count does not match the prototype's capture table.", luautil.ErrTypMajorInternal)
	}
	return &Function{proto: p, upVals: cells}
}

// Proto returns the compiled prototype, nil for native functions.
func (f *Function) Proto() *Proto {
	return f.proto
}

// UpvalueCount returns the number of captured variables.
func (f *Function) UpvalueCount() int {
	return len(f.upVals)
}

// Upvalue reads captured variable i. Raises a wrapped error for an index
// with no captured variable.
func (f *Function) Upvalue(i int) Value {
	if i < 0 || i >= len(f.upVals) {
		luautil.RaiseExisting(fmt.Errorf("function has no upvalue %d", i), "Unable to read captured variable.")
	}
	return f.upVals[i].v
}

// SetUpvalue writes captured variable i. Raises a wrapped error for an index
// with no captured variable.
func (f *Function) SetUpvalue(i int, v Value) {
	if i < 0 || i >= len(f.upVals) {
		luautil.RaiseExisting(fmt.Errorf("function has no upvalue %d", i), "Unable to write captured variable.")
	}
	f.upVals[i].v = v
}
