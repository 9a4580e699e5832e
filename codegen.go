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

import "github.com/missingfaktor/rembulan/ir"
import "github.com/missingfaktor/rembulan/luautil"

func mkoffset(from, to int) int {
	return to - from - 1 // -1 to correct for the automatic +1 to the PC after each instruction.
}

type genState struct {
	f    *Proto
	body *ir.FuncBody
}

// CompileProto lowers one function body (and, recursively, its nested
// bodies) into a compiled prototype. Any defect raised during the walk is
// returned as an error; defects mean the IR or this generator broke their
// contract, not that the user's program is wrong.
func CompileProto(body *ir.FuncBody) (p *Proto, err error) {
	// Quick-and-dirty error trapping.
	defer func() {
		if x := recover(); x != nil {
			switch e := x.(type) {
			case luautil.Error:
				err = e
			case error:
				err = luautil.Error{Err: e, Type: luautil.ErrTypWrapped}
			default:
				err = luautil.Error{Msg: fmt.Sprint(x), Type: luautil.ErrTypEvil}
			}
		}
	}()

	return compileBody(body), nil
}

func compileBody(body *ir.FuncBody) *Proto {
	if body.ParamCount > body.RegisterCount {
		luautil.Raise("Function body declares more parameters than registers.", luautil.ErrTypMajorInternal)
	}

	f := &Proto{
		parameterCount: body.ParamCount,
		registerCount:  body.RegisterCount,
		isVararg:       body.IsVararg,
		source:         body.Source,
		lineDefined:    body.Line,
	}
	for _, child := range body.Protos {
		f.prototypes = append(f.prototypes, compileBody(child))
	}

	state := &genState{f: f, body: body}
	state.genBlock(EntrySlots(body.RegisterCount, body.ParamCount), body.Body)
	return f
}

func (state *genState) addInst(inst Instruction) int {
	state.f.code = append(state.f.code, inst)
	return len(state.f.code) - 1
}

// constK returns a valid index for the given constant, adding it to the
// pool if needed. val MUST be an int64, float64, bool, nil, or string!
func (state *genState) constK(val Value) int {
	for i, v := range state.f.constants {
		if val == v {
			return i
		}
	}
	at := len(state.f.constants)
	state.f.constants = append(state.f.constants, val)
	return at
}

func constSlotType(v Value) SlotType {
	switch v.(type) {
	case nil:
		return SlotNil
	case bool:
		return SlotBoolean
	case int64:
		return SlotNumberInteger
	case float64:
		return SlotNumberFloat
	case string:
		return SlotString
	default:
		luautil.Raise("IR constant is not nil, bool, int64, float64, or string.", luautil.ErrTypMajorInternal)
		panic("UNREACHABLE")
	}
}

// numericResultType gives the slot type of a specialized entry's result.
func numericResultType(op ir.Op, lt, rt SlotType) SlotType {
	switch op {
	case ir.OpDiv, ir.OpPow:
		return SlotNumberFloat
	case ir.OpBand, ir.OpBor, ir.OpBxor, ir.OpShl, ir.OpShr, ir.OpBnot:
		return SlotNumberInteger
	case ir.OpUnm:
		return lt
	default: // add, sub, mul, mod, idiv
		if lt == SlotNumberInteger && rt == SlotNumberInteger {
			return SlotNumberInteger
		}
		if lt == SlotNumberFloat && rt == SlotNumberFloat {
			return SlotNumberFloat
		}
		return SlotNumber
	}
}

// dynamicResultType gives the slot type of a generic entry's result.
// Comparisons always produce a boolean, everything else can produce
// anything once metamethods are in play.
func dynamicResultType(op ir.Op) SlotType {
	switch op {
	case ir.OpEq, ir.OpLt, ir.OpLe:
		return SlotBoolean
	default:
		return SlotAny
	}
}

// forVarType gives the loop variable's type from its initial value and the
// step: a pure integer loop stays integer, a float anywhere makes it float,
// anything weaker (the runtime still guarantees numeric) widens to number.
func forVarType(v, s SlotType) SlotType {
	if v == SlotNumberInteger && s == SlotNumberInteger {
		return SlotNumberInteger
	}
	if v == SlotNumberFloat || s == SlotNumberFloat {
		return SlotNumberFloat
	}
	return SlotNumber
}

func (state *genState) genBlock(slots *Slots, blk ir.Block) *Slots {
	for _, n := range blk {
		slots = state.genNode(slots, n)
	}
	return slots
}

// genNode emits the instructions for one IR node and returns the slot
// snapshot after it. The match is exhaustive over the IR's closed node set;
// hitting the default arm means the IR grew a kind this generator does not
// handle, which is a contract violation.
func (state *genState) genNode(slots *Slots, n ir.Node) *Slots {
	switch n := n.(type) {
	case ir.LoadConst:
		k := state.constK(n.Val)
		state.addInst(Instruction{Kind: InstLoadK, Dest: n.Dest, Const: k})
		return slots.UpdateType(n.Dest, constSlotType(n.Val))

	case ir.Move:
		t := slots.GetType(n.Src)
		state.addInst(Instruction{Kind: InstMove, Dest: n.Dest, Args: []int{n.Src}})
		return slots.UpdateType(n.Dest, t)

	case ir.NewTable:
		state.addInst(Instruction{Kind: InstNewTable, Dest: n.Dest})
		return slots.UpdateType(n.Dest, SlotTable)

	case ir.BinOp:
		if n.Op.IsUnary() {
			luautil.Raise("Unary operator in a binary IR node.", luautil.ErrTypMajorInternal)
		}
		entry := binEntry(n.Op)
		lt := slots.GetType(n.LHS)
		rt := slots.GetType(n.RHS)

		if hasNumericEntry[n.Op] && lt.IsNumber() && rt.IsNumber() {
			state.addInst(numeric(entry, n.Dest, n.LHS, n.RHS))
			return slots.UpdateType(n.Dest, numericResultType(n.Op, lt, rt))
		}
		state.addInst(dynamic(entry, n.Dest, n.LHS, n.RHS))
		return slots.UpdateType(n.Dest, dynamicResultType(n.Op))

	case ir.UnOp:
		if !n.Op.IsUnary() {
			luautil.Raise("Binary operator in a unary IR node.", luautil.ErrTypMajorInternal)
		}
		entry := binEntry(n.Op)
		st := slots.GetType(n.Src)

		if hasNumericEntry[n.Op] && st.IsNumber() {
			state.addInst(numeric(entry, n.Dest, n.Src))
			return slots.UpdateType(n.Dest, numericResultType(n.Op, st, st))
		}
		state.addInst(dynamic(entry, n.Dest, n.Src))
		if n.Op == ir.OpLen && st == SlotString {
			return slots.UpdateType(n.Dest, SlotNumberInteger)
		}
		return slots.UpdateType(n.Dest, dynamicResultType(n.Op))

	case ir.Index:
		slots.GetType(n.Obj)
		slots.GetType(n.Key)
		state.addInst(dynamic(EntryIndex, n.Dest, n.Obj, n.Key))
		return slots.UpdateType(n.Dest, SlotAny)

	case ir.NewIndex:
		slots.GetType(n.Obj)
		slots.GetType(n.Key)
		slots.GetType(n.Val)
		state.addInst(Instruction{Kind: InstDynamic, Entry: EntryNewIndex, Dest: -1, Args: []int{n.Obj, n.Key, n.Val}})
		return slots

	case ir.Call:
		slots.GetType(n.Fn)
		for _, a := range n.Args {
			slots.GetType(a)
		}
		if n.Spread && !slots.HasVarargs() {
			luautil.Raise("Spread call site with no pending varargs.", luautil.ErrTypMajorInternal)
		}

		args := make([]int, 0, len(n.Args)+1)
		args = append(args, n.Fn)
		args = append(args, n.Args...)
		state.addInst(Instruction{
			Kind: InstDynamic, Entry: EntryCall,
			Dest: n.Dest, Args: args, Count: n.Results,
			CallKind: n.Kind, Spread: n.Spread,
		})

		if n.Spread {
			slots = slots.ConsumeVarargs()
		}
		if n.Kind == ir.CallTail {
			// Control never comes back, the snapshot past this point only
			// feeds the join of dead paths.
			return slots
		}
		for i := 0; i < n.Results; i++ {
			slots = slots.UpdateType(n.Dest+i, SlotAny)
		}
		return slots

	case ir.Closure:
		if n.Proto < 0 || n.Proto >= len(state.f.prototypes) {
			luautil.Raise("Closure node references a prototype that does not exist.", luautil.ErrTypMajorInternal)
		}

		// Every captured variable's slot must be captured before the
		// closure is materialized.
		for _, r := range n.Upvals {
			slots = slots.Capture(r)
		}
		state.f.prototypes[n.Proto].upCells = append([]int(nil), n.Upvals...)

		state.addInst(Instruction{Kind: InstClosure, Dest: n.Dest, Proto: n.Proto, Upvals: n.Upvals})
		return slots.UpdateType(n.Dest, SlotFunction)

	case ir.Vararg:
		if !state.body.IsVararg {
			luautil.Raise("Vararg marker in a fixed arity function.", luautil.ErrTypMajorInternal)
		}
		return slots.SetVarargs(n.At)

	case ir.Spread:
		if !slots.HasVarargs() {
			luautil.Raise("Vararg spread with no pending varargs.", luautil.ErrTypMajorInternal)
		}
		slots = slots.ConsumeVarargs()

		state.addInst(Instruction{Kind: InstVararg, Dest: n.Dest, Count: n.Count})
		for i := 0; i < n.Count; i++ {
			slots = slots.UpdateType(n.Dest+i, SlotAny)
		}
		return slots

	case ir.Return:
		if n.Count > 0 {
			slots.GetType(n.Base)
			slots.GetType(n.Base + n.Count - 1)
		}
		state.addInst(Instruction{Kind: InstReturn, Dest: n.Base, Count: n.Count})
		return slots

	case ir.If:
		slots.GetType(n.Cond)

		testPC := state.addInst(Instruction{Kind: InstTest, Args: []int{n.Cond}})
		thenSlots := state.genBlock(slots, n.Then)
		jmpPC := state.addInst(Instruction{Kind: InstJump})
		state.f.code[testPC].Offset = mkoffset(testPC, len(state.f.code))
		elseSlots := state.genBlock(slots, n.Else)
		state.f.code[jmpPC].Offset = mkoffset(jmpPC, len(state.f.code))

		return thenSlots.Join(elseSlots)

	case ir.NumericFor:
		entry := slots.UpdateType(n.Var, forVarType(slots.GetType(n.Var), slots.GetType(n.Step)))
		entry.GetType(n.Limit)

		// The loop header is a join point fed by the entry edge and the
		// back edge. Emit speculatively and roll back until the header
		// snapshot stops widening; the lattice is finite so this is a
		// handful of passes at worst.
		cur := entry
		for {
			mark := len(state.f.code)

			testPC := state.addInst(Instruction{Kind: InstForTest, Entry: EntryContinueLoop, Args: []int{n.Var, n.Limit, n.Step}})
			out := state.genBlock(cur, n.Body)

			// var += step, then back to the test. Numeric-ness here is a
			// language level precondition, not something inferred, so the
			// specialized entry is always correct.
			state.addInst(numeric(EntryAdd, n.Var, n.Var, n.Step))
			out = out.UpdateType(n.Var, forVarType(out.GetType(n.Var), out.GetType(n.Step)))

			jmpPC := state.addInst(Instruction{Kind: InstJump})
			state.f.code[jmpPC].Offset = mkoffset(jmpPC, testPC)

			next := cur.Join(out)
			if next.Equals(cur) {
				state.f.code[testPC].Offset = mkoffset(testPC, len(state.f.code))
				return cur
			}

			state.f.code = state.f.code[:mark]
			cur = next
		}

	default:
		luautil.Raise(fmt.Sprintf("Unhandled IR node kind %T.", n), luautil.ErrTypMajorInternal)
		panic("UNREACHABLE")
	}
}

// binEntry maps an operator to its entry name, rejecting anything outside
// the closed operator set.
func binEntry(op ir.Op) string {
	if op < 0 || int(op) >= ir.OpCount || entryName[op] == "" {
		luautil.Raise(fmt.Sprintf("Unhandled IR operator %v.", op), luautil.ErrTypMajorInternal)
	}
	return entryName[op]
}
