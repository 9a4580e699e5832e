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

package ir

import "testing"

func TestOpNames(t *testing.T) {
	// Every operator in the closed set has a name, and nothing outside it
	// does.
	for op := Op(0); int(op) < OpCount; op++ {
		if op.String() == "" || op.String() == "invalid" {
			t.Errorf("operator %d has no name", op)
		}
	}
	if Op(-1).String() != "invalid" || Op(OpCount).String() != "invalid" {
		t.Error("out of range operator has a name")
	}
}

func TestIsUnary(t *testing.T) {
	unary := map[Op]bool{OpUnm: true, OpBnot: true, OpLen: true}
	for op := Op(0); int(op) < OpCount; op++ {
		if op.IsUnary() != unary[op] {
			t.Errorf("wrong arity for %v", op)
		}
	}
}

func TestCallKindNames(t *testing.T) {
	if CallNormal.String() != "call" || CallTail.String() != "tailcall" {
		t.Error("wrong call kind names")
	}
}
