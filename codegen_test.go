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

import "testing"

import "github.com/missingfaktor/rembulan/ir"
import "github.com/missingfaktor/rembulan/luautil"
import "github.com/missingfaktor/rembulan/testhelp"

func mustCompile(t *testing.T, body *ir.FuncBody) *Proto {
	t.Helper()
	p, err := CompileProto(body)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func compileErrType(body *ir.FuncBody) luautil.ErrType {
	_, err := CompileProto(body)
	if err == nil {
		return -1
	}
	if e, ok := err.(luautil.Error); ok {
		return e.Type
	}
	return -1
}

func TestSpecializedAdd(t *testing.T) {
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 3,
		Body: ir.Block{
			ir.LoadConst{Dest: 0, Val: int64(1)},
			ir.LoadConst{Dest: 1, Val: int64(2)},
			ir.BinOp{Op: ir.OpAdd, Dest: 2, LHS: 0, RHS: 1},
			ir.Return{Base: 2, Count: 1},
		},
	})

	code := p.Code()
	testhelp.Assertf(t, len(code) == 4, "wrong instruction count: %v", len(code))
	testhelp.Assert(t, code[2].Kind == InstNumeric, "add with two integer operands not specialized")
	testhelp.Assert(t, code[2].Entry == EntryAdd, "wrong entry:", code[2].Entry)
}

// Compiling "function(x) return x + 1 end": the parameter arrives as any,
// so the generic entry is required even though the constant is an integer.
func TestGenericAddParameter(t *testing.T) {
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 2,
		ParamCount:    1,
		Body: ir.Block{
			ir.LoadConst{Dest: 1, Val: int64(1)},
			ir.BinOp{Op: ir.OpAdd, Dest: 1, LHS: 0, RHS: 1},
			ir.Return{Base: 1, Count: 1},
		},
	})

	code := p.Code()
	testhelp.Assert(t, code[1].Kind == InstDynamic, "add with an any operand used the numeric entry")
	testhelp.Assert(t, code[1].Entry == EntryAdd, "wrong entry:", code[1].Entry)
}

func TestMixedNumericAdd(t *testing.T) {
	// int + float is still fully numeric, the specialized entry applies.
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 3,
		Body: ir.Block{
			ir.LoadConst{Dest: 0, Val: int64(1)},
			ir.LoadConst{Dest: 1, Val: float64(2.5)},
			ir.BinOp{Op: ir.OpAdd, Dest: 2, LHS: 0, RHS: 1},
		},
	})
	testhelp.Assert(t, p.Code()[2].Kind == InstNumeric, "int + float not specialized")
}

func TestStringOperandForcesGeneric(t *testing.T) {
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 3,
		Body: ir.Block{
			ir.LoadConst{Dest: 0, Val: int64(1)},
			ir.LoadConst{Dest: 1, Val: "2"},
			ir.BinOp{Op: ir.OpMul, Dest: 2, LHS: 0, RHS: 1},
		},
	})
	testhelp.Assert(t, p.Code()[2].Kind == InstDynamic, "string operand did not force the generic entry")
}

func TestIfJoinNumeric(t *testing.T) {
	// One arm leaves an integer, the other a float: after the join the
	// slot is number, which still qualifies for the numeric entry.
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 3,
		ParamCount:    1,
		Body: ir.Block{
			ir.If{
				Cond: 0,
				Then: ir.Block{ir.LoadConst{Dest: 1, Val: int64(1)}},
				Else: ir.Block{ir.LoadConst{Dest: 1, Val: float64(0.5)}},
			},
			ir.BinOp{Op: ir.OpAdd, Dest: 2, LHS: 1, RHS: 1},
		},
	})

	code := p.Code()
	last := code[len(code)-1]
	testhelp.Assert(t, last.Kind == InstNumeric, "join of integer and float lost numeric-ness")
}

func TestIfJoinCollapse(t *testing.T) {
	// Integer on one arm, string on the other: the join collapses to any
	// and the generic entry is required.
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 3,
		ParamCount:    1,
		Body: ir.Block{
			ir.If{
				Cond: 0,
				Then: ir.Block{ir.LoadConst{Dest: 1, Val: int64(1)}},
				Else: ir.Block{ir.LoadConst{Dest: 1, Val: "one"}},
			},
			ir.BinOp{Op: ir.OpAdd, Dest: 2, LHS: 1, RHS: 1},
		},
	})

	code := p.Code()
	last := code[len(code)-1]
	testhelp.Assert(t, last.Kind == InstDynamic, "join of integer and string stayed specialized")
}

func TestIfBranchOffsets(t *testing.T) {
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 2,
		ParamCount:    1,
		Body: ir.Block{
			ir.If{
				Cond: 0,
				Then: ir.Block{ir.LoadConst{Dest: 1, Val: int64(1)}},
				Else: ir.Block{ir.LoadConst{Dest: 1, Val: int64(2)}},
			},
			ir.Return{Base: 1, Count: 1},
		},
	})

	// TEST +2 / LOADK / JMP +1 / LOADK / RET
	code := p.Code()
	testhelp.Assertf(t, len(code) == 5, "wrong instruction count: %v", len(code))
	testhelp.Assert(t, code[0].Kind == InstTest, "missing test")
	testhelp.Assertf(t, 0+code[0].Offset+1 == 3, "test jumps to %v, want 3", 0+code[0].Offset+1)
	testhelp.Assert(t, code[2].Kind == InstJump, "missing jump over else")
	testhelp.Assertf(t, 2+code[2].Offset+1 == 4, "jump lands at %v, want 4", 2+code[2].Offset+1)
}

func TestComparisonIsGeneric(t *testing.T) {
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 3,
		Body: ir.Block{
			ir.LoadConst{Dest: 0, Val: int64(1)},
			ir.LoadConst{Dest: 1, Val: int64(2)},
			ir.BinOp{Op: ir.OpLt, Dest: 2, LHS: 0, RHS: 1},
			// The comparison produced a boolean, adding it must be generic.
			ir.BinOp{Op: ir.OpAdd, Dest: 2, LHS: 2, RHS: 0},
		},
	})

	code := p.Code()
	testhelp.Assert(t, code[2].Kind == InstDynamic && code[2].Entry == EntryLt, "lt has no numeric entry")
	testhelp.Assert(t, code[3].Kind == InstDynamic, "boolean operand did not force the generic entry")
}

// Compiling "for i = 1, 10 do end": the loop variable is statically
// integer, so the continuation test runs in the integer domain.
func TestNumericForInteger(t *testing.T) {
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 4,
		Body: ir.Block{
			ir.LoadConst{Dest: 0, Val: int64(1)},
			ir.LoadConst{Dest: 1, Val: int64(10)},
			ir.LoadConst{Dest: 2, Val: int64(1)},
			ir.NumericFor{Var: 0, Limit: 1, Step: 2, Body: ir.Block{}},
			// The loop variable must still be integer here.
			ir.BinOp{Op: ir.OpAdd, Dest: 3, LHS: 0, RHS: 0},
		},
	})

	code := p.Code()
	tests := 0
	for _, i := range code {
		if i.Kind == InstForTest {
			tests++
			testhelp.Assert(t, i.Entry == EntryContinueLoop, "wrong entry:", i.Entry)
		}
	}
	testhelp.Assertf(t, tests == 1, "continuation test emitted %v times", tests)

	last := code[len(code)-1]
	testhelp.Assert(t, last.Kind == InstNumeric, "integer loop variable lost numeric-ness")
}

func TestNumericForFixpoint(t *testing.T) {
	// The body floats the loop variable, so the header join must widen it
	// to number and the loop must be regenerated exactly once more, not
	// emitted twice.
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 4,
		Body: ir.Block{
			ir.LoadConst{Dest: 0, Val: int64(1)},
			ir.LoadConst{Dest: 1, Val: int64(10)},
			ir.LoadConst{Dest: 2, Val: int64(1)},
			ir.NumericFor{Var: 0, Limit: 1, Step: 2, Body: ir.Block{
				ir.LoadConst{Dest: 3, Val: float64(0.5)},
				ir.BinOp{Op: ir.OpAdd, Dest: 0, LHS: 0, RHS: 3},
			}},
		},
	})

	tests, jumps := 0, 0
	for _, i := range p.Code() {
		switch i.Kind {
		case InstForTest:
			tests++
		case InstJump:
			jumps++
		}
	}
	testhelp.Assertf(t, tests == 1, "continuation test emitted %v times", tests)
	testhelp.Assertf(t, jumps == 1, "back edge emitted %v times", jumps)
}

func TestClosureCapture(t *testing.T) {
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 3,
		Protos: []*ir.FuncBody{
			{RegisterCount: 1, Body: ir.Block{ir.Return{Base: 0, Count: 0}}},
		},
		Body: ir.Block{
			ir.LoadConst{Dest: 0, Val: int64(7)},
			ir.Closure{Dest: 1, Proto: 0, Upvals: []int{0}},
			ir.Return{Base: 1, Count: 1},
		},
	})

	code := p.Code()
	testhelp.Assert(t, code[1].Kind == InstClosure, "missing closure instruction")

	// The capture table maps the child's upvalue 0 to register 0 of this
	// frame.
	child := p.Prototypes()[0]
	testhelp.Assert(t, len(child.UpCells()) == 1 && child.UpCells()[0] == 0, "capture table wrong:", child.UpCells())
}

func TestClosureMissingProto(t *testing.T) {
	typ := compileErrType(&ir.FuncBody{
		RegisterCount: 2,
		Body:          ir.Block{ir.Closure{Dest: 0, Proto: 0}},
	})
	testhelp.Assert(t, typ == luautil.ErrTypMajorInternal, "dangling prototype reference not rejected:", typ)
}

func TestVarargSpread(t *testing.T) {
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 4,
		ParamCount:    1,
		IsVararg:      true,
		Body: ir.Block{
			ir.Vararg{At: 1},
			ir.Spread{Dest: 1, Count: 2},
			ir.Return{Base: 1, Count: 2},
		},
	})

	code := p.Code()
	testhelp.Assert(t, code[0].Kind == InstVararg, "missing vararg materialization")
	testhelp.Assert(t, code[0].Dest == 1 && code[0].Count == 2, "wrong vararg shape")
}

func TestSpreadWithoutMarker(t *testing.T) {
	typ := compileErrType(&ir.FuncBody{
		RegisterCount: 2,
		IsVararg:      true,
		Body:          ir.Block{ir.Spread{Dest: 0, Count: 1}},
	})
	testhelp.Assert(t, typ == luautil.ErrTypMajorInternal, "spread without marker not rejected:", typ)
}

func TestVarargInFixedFunction(t *testing.T) {
	typ := compileErrType(&ir.FuncBody{
		RegisterCount: 2,
		Body:          ir.Block{ir.Vararg{At: 0}},
	})
	testhelp.Assert(t, typ == luautil.ErrTypMajorInternal, "vararg in fixed arity function not rejected:", typ)
}

func TestCallKinds(t *testing.T) {
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 4,
		ParamCount:    2,
		Body: ir.Block{
			ir.Call{Kind: ir.CallNormal, Fn: 0, Args: []int{1}, Dest: 2, Results: 2},
			ir.Call{Kind: ir.CallTail, Fn: 0, Args: []int{2, 3}},
		},
	})

	code := p.Code()
	testhelp.Assert(t, code[0].Entry == EntryCall && code[0].CallKind == ir.CallNormal, "wrong call kind")
	testhelp.Assert(t, code[0].Count == 2, "wrong result count")
	testhelp.Assert(t, code[1].CallKind == ir.CallTail, "wrong tail call kind")
}

func TestCallResultsAreAny(t *testing.T) {
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 4,
		ParamCount:    1,
		Body: ir.Block{
			ir.LoadConst{Dest: 1, Val: int64(1)},
			ir.LoadConst{Dest: 2, Val: int64(2)},
			ir.Call{Kind: ir.CallNormal, Fn: 0, Args: nil, Dest: 1, Results: 1},
			// r1 was clobbered by the call, r2 is still an integer; the
			// mixed pair must go generic.
			ir.BinOp{Op: ir.OpAdd, Dest: 3, LHS: 1, RHS: 2},
		},
	})

	code := p.Code()
	testhelp.Assert(t, code[len(code)-1].Kind == InstDynamic, "call result treated as statically typed")
}

func TestInvalidRegisterRejected(t *testing.T) {
	typ := compileErrType(&ir.FuncBody{
		RegisterCount: 2,
		Body:          ir.Block{ir.BinOp{Op: ir.OpAdd, Dest: 0, LHS: 0, RHS: 9}},
	})
	testhelp.Assert(t, typ == luautil.ErrTypMajorInternal, "out of range register not rejected:", typ)
}

func TestUnknownNodeRejected(t *testing.T) {
	typ := compileErrType(&ir.FuncBody{
		RegisterCount: 1,
		Body:          ir.Block{nil},
	})
	testhelp.Assert(t, typ == luautil.ErrTypMajorInternal, "unhandled node kind not rejected:", typ)
}

func TestConstantPoolDedup(t *testing.T) {
	p := mustCompile(t, &ir.FuncBody{
		RegisterCount: 2,
		Body: ir.Block{
			ir.LoadConst{Dest: 0, Val: int64(42)},
			ir.LoadConst{Dest: 1, Val: int64(42)},
			ir.LoadConst{Dest: 1, Val: float64(42)},
		},
	})

	// The integer and the float are distinct constants, the repeated
	// integer is not.
	testhelp.Assertf(t, len(p.Constants()) == 2, "wrong pool size: %v", len(p.Constants()))
}
