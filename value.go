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

import "github.com/missingfaktor/rembulan/luautil"

// Value is a boxed script value. The concrete types are:
//	nil
//	bool
//	int64 and float64 (both are "number")
//	string
//	*Table
//	*Function
//	*Thread
type Value interface{}

type TypeID int

const (
	TypNil TypeID = iota
	TypNumber     // Both int and float
	TypString
	TypBool
	TypTable
	TypFunction
	TypThread

	typeCount int = iota
)

var typeNames = [...]string{"nil", "number", "string", "boolean", "table", "function", "thread"}

func (typ TypeID) String() string {
	return typeNames[typ]
}

// Thread is an opaque handle for a coroutine. The suspend/resume machinery
// lives with the host, this core only needs the value to exist so it can be
// typed and passed around.
type Thread struct {
	Host interface{}
}

// TypeOf returns the language level type of a value.
func TypeOf(v Value) TypeID {
	switch v.(type) {
	case nil:
		return TypNil
	case float64:
		return TypNumber
	case int64:
		return TypNumber
	case string:
		return TypString
	case bool:
		return TypBool
	case *Table:
		return TypTable
	case *Function:
		return TypFunction
	case *Thread:
		return TypThread
	default:
		luautil.Raise("Invalid type passed to TypeOf.", luautil.ErrTypMajorInternal)
		panic("UNREACHABLE")
	}
}

func toStringConcat(v Value) string {
	switch v2 := v.(type) {
	case float64:
		return fmt.Sprintf("%g", v2)
	case int64:
		return fmt.Sprintf("%d", v2)
	case string:
		return v2
	default:
		luautil.Raise("Attempt to concatenate a "+TypeOf(v).String()+" value.", luautil.ErrTypGenRuntime)
		panic("UNREACHABLE")
	}
}

func toString(v Value) string {
	switch v2 := v.(type) {
	case nil:
		return "nil"
	case float64:
		return fmt.Sprintf("%g", v2)
	case int64:
		return fmt.Sprintf("%d", v2)
	case string:
		return v2
	case bool:
		if v2 {
			return "true"
		}
		return "false"
	case *Table:
		return fmt.Sprintf("table %p", v2)
	case *Function:
		return fmt.Sprintf("function %p", v2)
	case *Thread:
		return fmt.Sprintf("thread %p", v2)
	default:
		return fmt.Sprintf("unknown %p", v2)
	}
}

func toBool(v Value) bool {
	switch v2 := v.(type) {
	case nil:
		return false
	case bool:
		return v2
	default:
		return true
	}
}

func tryFloat(v Value) (float64, bool) {
	switch v2 := v.(type) {
	case string:
		// Both grammars: a hex literal like "0x10" parses as an integer.
		valid, iok, i, f := luautil.ConvNumber(v2, true, true)
		if !valid {
			return 0, false
		}
		if iok {
			return float64(i), true
		}
		return f, true
	case int64:
		return float64(v2), true
	case float64:
		return v2, true
	default:
		return 0, false
	}
}

func tryInt(v Value) (int64, bool) {
	switch v2 := v.(type) {
	case string:
		valid, _, i, _ := luautil.ConvNumber(v2, true, false)
		if valid {
			return i, true
		}
		return 0, false
	case int64:
		return v2, true
	case float64:
		if i := int64(v2); float64(i) == v2 {
			return i, true
		}
		return 0, false
	default:
		return 0, false
	}
}
