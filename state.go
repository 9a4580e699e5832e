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

// Rembulan - a compiler backend and runtime operator dispatch library for a
// Lua flavored scripting language.
//
// The package splits into two halves that only work correctly together. The
// code generator (see codegen.go) lowers a function's typed IR into a stream
// of instructions for a host execution environment, tracking an approximate
// type and a freshness/capture state for every register as it walks. The
// dispatch library (see dispatch.go) supplies the runtime entries those
// instructions name: one generic entry per operator, taking boxed operands
// and handling metamethod fallback, plus a specialized numeric entry per
// arithmetic and bitwise operator that skips boxing entirely. The generator
// picks the specialized entry whenever the register types prove both
// operands numeric, which is the whole point of tracking types at all.
//
// Most functions in this package report errors by panicking with a
// luautil.Error. CompileProto and ProtectedCall are the recover boundaries;
// anything called under them may raise freely.
//
// The frontend (lexing, parsing, AST to IR lowering) and the standard
// library are external, this package starts at the IR and ends at the
// instruction stream plus the runtime entries it references.
package rembulan

import "fmt"

import "github.com/missingfaktor/rembulan/luautil"

// If metamethod handlers re-enter the dispatch library deeper than this
// something is almost certainly looping.
const maxCallDepth = 200

// ProtoExecutor runs a compiled function body. The host execution
// environment installs one on the State; native functions need none.
type ProtoExecutor func(l *State, sink *ObjectSink, f *Function, args ...Value)

// State carries the per-type metatables and the call machinery the dispatch
// entries use to invoke metamethod handlers. It has no mutable state of its
// own beyond the metatable registry, so independent operations on one State
// do not interfere.
type State struct {
	// Exec runs compiled (non-native) functions. Calling a compiled function
	// with no executor installed is a runtime error.
	Exec ProtoExecutor

	metaTbls  [typeCount]*Table
	callDepth int
}

// NewState creates a new State, ready to use.
func NewState() *State {
	return new(State)
}

// MetaTable returns the shared metatable for values of the given type.
// Tables carry their own metatables and are not covered here.
func (l *State) MetaTable(typ TypeID) *Table {
	return l.metaTbls[typ]
}

// SetMetaTable sets the shared metatable for values of the given type.
func (l *State) SetMetaTable(typ TypeID, meta *Table) {
	l.metaTbls[typ] = meta
}

func (l *State) getMetaTable(v Value) *Table {
	if t, ok := v.(*Table); ok {
		return t.meta
	}
	return l.metaTbls[TypeOf(v)]
}

func (l *State) hasMetaMethod(v Value, name string) Value {
	tbl := l.getMetaTable(v)
	if tbl == nil {
		return nil
	}
	return tbl.GetRaw(name)
}

// call1 invokes a callable value from inside a dispatch entry and returns
// its first result. Used for metamethod handlers.
func (l *State) call1(f Value, args ...Value) Value {
	sink := NewObjectSink()
	Call(l, sink, f, args...)
	return sink.First()
}

// enter/exit guard re-entrant metamethod dispatch against runaway recursion.
func (l *State) enter() {
	l.callDepth++
	if l.callDepth > maxCallDepth {
		l.callDepth = 0
		luautil.Raise("Call depth limit exceeded, probable metamethod loop.", luautil.ErrTypGenRuntime)
	}
}

func (l *State) exit() {
	l.callDepth--
}

// ProtectedCall invokes a callable value, converting any raised error into
// an error return. This is the handler boundary runtime type errors
// propagate to; the sink holds no partial results on the error path.
func (l *State) ProtectedCall(f Value, args ...Value) (rets []Value, err error) {
	sink := NewObjectSink()
	defer func() {
		if x := recover(); x != nil {
			sink.Reset()
			l.callDepth = 0

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

	Call(l, sink, f, args...)
	rets = append(rets, sink.Values()...)
	return rets, nil
}
