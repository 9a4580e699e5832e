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

// The typed intermediate representation consumed by the code generator.
//
// A frontend lowers source text to one FuncBody per function. The node set is
// closed: Node is sealed by an unexported marker method, and the code
// generator matches exhaustively over it, so a new node kind without a
// handler fails at compile time instead of being silently skipped. Nodes are
// read-only input, the generator never modifies them.
//
// Registers are plain ints, indexes into the frame described by the
// FuncBody's RegisterCount.
package ir

// Op identifies one of the language's operators. Every operator has a generic
// runtime dispatch entry, the arithmetic and bitwise ones additionally have a
// specialized numeric entry.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpIDiv

	OpBand
	OpBor
	OpBxor
	OpShl
	OpShr

	OpUnm
	OpBnot

	OpConcat
	OpLen

	OpEq
	OpLt
	OpLe

	OpCount int = iota
)

var opNames = [...]string{
	"add", "sub", "mul", "div", "mod", "pow", "idiv",
	"band", "bor", "bxor", "shl", "shr",
	"unm", "bnot",
	"concat", "len",
	"eq", "lt", "le",
}

func (op Op) String() string {
	if op < 0 || int(op) >= OpCount {
		return "invalid"
	}
	return opNames[op]
}

// IsUnary reports whether the operator takes a single operand.
func (op Op) IsUnary() bool {
	return op == OpUnm || op == OpBnot || op == OpLen
}

// CallKind selects the calling convention a call site compiles to.
type CallKind int

const (
	// CallNormal calls return control to the caller.
	CallNormal CallKind = iota

	// CallTail transfers control to the callee, the caller's frame is dead.
	CallTail
)

var callKindNames = [...]string{"call", "tailcall"}

func (k CallKind) String() string {
	return callKindNames[k]
}

// Node is one elementary operation in a function body. The set of
// implementations in this package is the complete set.
type Node interface {
	irNode()
}

// Block is a straight sequence of nodes.
type Block []Node

// LoadConst writes a constant into a register.
// Val must be nil, a bool, an int64, a float64, or a string.
type LoadConst struct {
	Dest int
	Val  interface{}
}

// Move copies one register to another.
type Move struct {
	Dest, Src int
}

// NewTable creates an empty table, with optional size hints.
type NewTable struct {
	Dest      int
	ArraySize int
	HashSize  int
}

// BinOp applies a binary operator to two registers.
type BinOp struct {
	Op       Op
	Dest     int
	LHS, RHS int
}

// UnOp applies a unary operator to a register.
type UnOp struct {
	Op        Op
	Dest, Src int
}

// Index reads Obj[Key].
type Index struct {
	Dest, Obj, Key int
}

// NewIndex writes Obj[Key] = Val.
type NewIndex struct {
	Obj, Key, Val int
}

// Call invokes the value in Fn with the values in Args, storing Results
// values starting at Dest. With Spread set the frame's pending vararg tail is
// appended after Args, consuming the vararg marker.
type Call struct {
	Kind    CallKind
	Fn      int
	Args    []int
	Dest    int
	Results int
	Spread  bool
}

// Closure materializes prototype Proto into a function value, binding the
// listed registers as its captured variables. Visiting this node obliges the
// code generator to have each listed register in captured state before the
// closure instruction is emitted.
type Closure struct {
	Dest   int
	Proto  int
	Upvals []int
}

// Vararg marks the registers from At up as holding the frame's variable
// length argument tail.
type Vararg struct {
	At int
}

// Spread materializes Count values from the pending vararg tail into fixed
// registers starting at Dest, consuming the vararg marker.
type Spread struct {
	Dest, Count int
}

// Return ends the function, returning Count values starting at Base.
type Return struct {
	Base, Count int
}

// If branches on the truth of a register. Control from the two arms
// converges at an implicit join point after the node.
type If struct {
	Cond int
	Then Block
	Else Block
}

// NumericFor is a numeric for loop header. Var holds the loop variable
// (initialized to the start value), Limit and Step the bounds. The loop
// variable being numeric is a language level precondition. The loop body's
// exit edge joins back to the header.
type NumericFor struct {
	Var, Limit, Step int
	Body             Block
}

func (LoadConst) irNode()  {}
func (Move) irNode()       {}
func (NewTable) irNode()   {}
func (BinOp) irNode()      {}
func (UnOp) irNode()       {}
func (Index) irNode()      {}
func (NewIndex) irNode()   {}
func (Call) irNode()       {}
func (Closure) irNode()    {}
func (Vararg) irNode()     {}
func (Spread) irNode()     {}
func (Return) irNode()     {}
func (If) irNode()         {}
func (NumericFor) irNode() {}

// FuncBody is the IR graph for one function, plus its frame shape.
type FuncBody struct {
	RegisterCount int
	ParamCount    int
	IsVararg      bool

	Body Block

	// Nested function bodies, referenced by index from Closure nodes.
	Protos []*FuncBody

	Source string // Debug info
	Line   int    // Debug info
}
