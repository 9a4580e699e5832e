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

import "fmt"
import "strings"

import "github.com/missingfaktor/rembulan/ir"

// Dispatch entry names, as the host runtime sees them. The generic form of
// every operator and the numeric form of the arithmetic/bitwise operators
// share a name; the instruction's kind tells the two calling conventions
// apart.
const (
	EntryAdd  = "add"
	EntrySub  = "sub"
	EntryMul  = "mul"
	EntryDiv  = "div"
	EntryMod  = "mod"
	EntryPow  = "pow"
	EntryUnm  = "unm"
	EntryIDiv = "idiv"

	EntryBand = "band"
	EntryBor  = "bor"
	EntryBxor = "bxor"
	EntryBnot = "bnot"
	EntryShl  = "shl"
	EntryShr  = "shr"

	EntryConcat = "concat"
	EntryLen    = "len"

	EntryEq = "eq"
	EntryLt = "lt"
	EntryLe = "le"

	EntryIndex    = "index"
	EntryNewIndex = "newindex"

	EntryCall = "call"

	EntryContinueLoop = "continueLoop"
)

// entryName maps an IR operator to its dispatch entry name.
var entryName = [ir.OpCount]string{
	ir.OpAdd: EntryAdd, ir.OpSub: EntrySub, ir.OpMul: EntryMul,
	ir.OpDiv: EntryDiv, ir.OpMod: EntryMod, ir.OpPow: EntryPow,
	ir.OpIDiv: EntryIDiv,
	ir.OpBand: EntryBand, ir.OpBor: EntryBor, ir.OpBxor: EntryBxor,
	ir.OpShl: EntryShl, ir.OpShr: EntryShr,
	ir.OpUnm: EntryUnm, ir.OpBnot: EntryBnot,
	ir.OpConcat: EntryConcat, ir.OpLen: EntryLen,
	ir.OpEq: EntryEq, ir.OpLt: EntryLt, ir.OpLe: EntryLe,
}

// hasNumericEntry marks the operators with a specialized numeric entry.
// Comparison, concat, length, indexing and calls are generic only.
var hasNumericEntry = [ir.OpCount]bool{
	ir.OpAdd: true, ir.OpSub: true, ir.OpMul: true,
	ir.OpDiv: true, ir.OpMod: true, ir.OpPow: true,
	ir.OpIDiv: true,
	ir.OpBand: true, ir.OpBor: true, ir.OpBxor: true,
	ir.OpShl: true, ir.OpShr: true,
	ir.OpUnm: true, ir.OpBnot: true,
}

// InstKind identifies an instruction's shape and calling convention.
type InstKind int

const (
	// InstLoadK loads constant Const into Dest.
	InstLoadK InstKind = iota

	// InstMove copies Args[0] into Dest.
	InstMove

	// InstNewTable creates a table in Dest.
	InstNewTable

	// InstDynamic calls the generic dispatch entry Entry with the boxed
	// values in Args, results land in Dest and up. For Entry "call" the
	// first Arg is the callee, CallKind selects the convention, and Count
	// is the wanted result count.
	InstDynamic

	// InstNumeric calls the specialized numeric dispatch entry Entry with
	// the unboxed numeric values in Args, the numeric result lands in Dest.
	InstNumeric

	// InstClosure materializes prototype Proto into Dest, binding the cells
	// of the registers in Upvals.
	InstClosure

	// InstVararg copies Count values from the frame's vararg tail into
	// registers starting at Dest.
	InstVararg

	// InstTest jumps by Offset if Args[0] is false.
	InstTest

	// InstJump jumps by Offset unconditionally.
	InstJump

	// InstForTest calls the numeric loop continuation test with Args
	// (variable, limit, step) and jumps by Offset when the loop is done.
	InstForTest

	// InstReturn returns Count values starting at Dest.
	InstReturn
)

// Instruction is one emitted target instruction. The encoding is symbolic:
// the host maps each instruction onto whatever its real instruction set
// looks like, only the logical operation is contractual. Jump offsets are
// relative to the next instruction, like the teacher format this replaces:
// the target of a jump at pc is pc + Offset + 1.
type Instruction struct {
	Kind  InstKind
	Entry string

	Dest   int
	Args   []int
	Const  int
	Proto  int
	Upvals []int
	Offset int
	Count  int

	CallKind ir.CallKind

	// Append the frame's vararg tail after Args (calls only).
	Spread bool
}

func dynamic(entry string, dest int, args ...int) Instruction {
	return Instruction{Kind: InstDynamic, Entry: entry, Dest: dest, Args: args}
}

func numeric(entry string, dest int, args ...int) Instruction {
	return Instruction{Kind: InstNumeric, Entry: entry, Dest: dest, Args: args}
}

func regList(args []int) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("r%d", a)
	}
	return strings.Join(parts, ", ")
}

func (i Instruction) String() string {
	switch i.Kind {
	case InstLoadK:
		return fmt.Sprintf("LOADK\tr%d <- k%d", i.Dest, i.Const)
	case InstMove:
		return fmt.Sprintf("MOVE\tr%d <- r%d", i.Dest, i.Args[0])
	case InstNewTable:
		return fmt.Sprintf("NEWTABLE\tr%d", i.Dest)
	case InstDynamic:
		if i.Entry == EntryCall {
			spread := ""
			if i.Spread {
				spread = ", ..."
			}
			return fmt.Sprintf("%v\t%v r%d #%d <- (%v%v)", strings.ToUpper(i.CallKind.String()), i.Entry, i.Dest, i.Count, regList(i.Args), spread)
		}
		if i.Dest < 0 {
			return fmt.Sprintf("DYN\t%v (%v)", i.Entry, regList(i.Args))
		}
		return fmt.Sprintf("DYN\t%v r%d <- (%v)", i.Entry, i.Dest, regList(i.Args))
	case InstNumeric:
		return fmt.Sprintf("NUM\t%v r%d <- (%v)", i.Entry, i.Dest, regList(i.Args))
	case InstClosure:
		ups := make([]string, len(i.Upvals))
		for j, r := range i.Upvals {
			ups[j] = fmt.Sprintf("^r%d", r)
		}
		return fmt.Sprintf("CLOSURE\tr%d <- p%d [%v]", i.Dest, i.Proto, strings.Join(ups, ", "))
	case InstVararg:
		return fmt.Sprintf("VARARG\tr%d #%d", i.Dest, i.Count)
	case InstTest:
		return fmt.Sprintf("TEST\tr%d ? %+d", i.Args[0], i.Offset)
	case InstJump:
		return fmt.Sprintf("JMP\t%+d", i.Offset)
	case InstForTest:
		return fmt.Sprintf("FORTEST\t%v (%v) ? %+d", i.Entry, regList(i.Args), i.Offset)
	case InstReturn:
		return fmt.Sprintf("RET\tr%d #%d", i.Dest, i.Count)
	default:
		return fmt.Sprintf("UNKNOWN\t%d", i.Kind)
	}
}
