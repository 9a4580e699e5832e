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

// Helper functions for the compiler and dispatch tests.
package testhelp

import "testing"

import "github.com/missingfaktor/rembulan/luautil"

// Assert fails the test and logs the message if "ok" is false.
//
// This is purely a lazy convenience.
func Assert(t *testing.T, ok bool, msg ...interface{}) {
	if !ok {
		t.Error(msg...)
	}
}

// Assertf fails the test and logs the message if "ok" is false.
//
// This is purely a lazy convenience.
func Assertf(t *testing.T, ok bool, format string, msg ...interface{}) {
	if !ok {
		t.Errorf(format, msg...)
	}
}

// Raised runs f and returns the error it raised, or nil if it returned
// normally. Most of the library reports errors by panicking with a
// luautil.Error, so tests for failure paths go through here.
func Raised(f func()) (err error) {
	defer func() {
		if x := recover(); x != nil {
			switch e := x.(type) {
			case luautil.Error:
				err = e
			case error:
				err = e
			default:
				err = luautil.Error{Type: luautil.ErrTypEvil}
			}
		}
	}()

	f()
	return nil
}

// RaisedType runs f and returns the raised error's type, or -1 if nothing
// was raised or the value was not a luautil.Error.
func RaisedType(f func()) luautil.ErrType {
	err := Raised(f)
	if err == nil {
		return -1
	}
	if e, ok := err.(luautil.Error); ok {
		return e.Type
	}
	return -1
}
