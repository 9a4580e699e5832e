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

import "github.com/missingfaktor/rembulan/luautil"
import "github.com/missingfaktor/rembulan/testhelp"

var allSlotTypes = []SlotType{
	SlotAny, SlotNil, SlotBoolean, SlotNumber, SlotNumberInteger,
	SlotNumberFloat, SlotString, SlotTable, SlotThread, SlotFunction,
}

func TestTypeJoinIdempotent(t *testing.T) {
	for _, typ := range allSlotTypes {
		testhelp.Assertf(t, typ.Join(typ) == typ, "%v.Join(%v) != %v", typ, typ, typ)
	}
}

func TestTypeJoinCommutative(t *testing.T) {
	for _, t1 := range allSlotTypes {
		for _, t2 := range allSlotTypes {
			testhelp.Assertf(t, t1.Join(t2) == t2.Join(t1), "join of %v and %v is not commutative", t1, t2)
		}
	}
}

func TestTypeJoinNumeric(t *testing.T) {
	testhelp.Assert(t, SlotNumberInteger.Join(SlotNumberFloat) == SlotNumber, "integer v float")
	testhelp.Assert(t, SlotNumber.Join(SlotNumberInteger) == SlotNumber, "number v integer")
	testhelp.Assert(t, SlotNumber.Join(SlotNumberFloat) == SlotNumber, "number v float")
	testhelp.Assert(t, SlotNumberInteger.Join(SlotString) == SlotAny, "integer v string")
	testhelp.Assert(t, SlotNil.Join(SlotBoolean) == SlotAny, "nil v boolean")
}

func TestSlotsInit(t *testing.T) {
	s := InitSlots(3)
	testhelp.Assert(t, s.Size() == 3, "wrong size")
	testhelp.Assert(t, !s.HasVarargs(), "fresh snapshot has varargs")
	for i := 0; i < 3; i++ {
		testhelp.Assertf(t, s.GetState(i).IsFresh(), "slot %v not fresh", i)
		testhelp.Assertf(t, s.GetType(i) == SlotNil, "slot %v not nil", i)
	}
}

func TestEntrySlots(t *testing.T) {
	s := EntrySlots(4, 2)
	testhelp.Assert(t, s.GetType(0) == SlotAny, "parameter 0 not any")
	testhelp.Assert(t, s.GetType(1) == SlotAny, "parameter 1 not any")
	testhelp.Assert(t, s.GetType(2) == SlotNil, "register 2 not nil")
	testhelp.Assert(t, s.GetType(3) == SlotNil, "register 3 not nil")
}

func TestUpdateIdentity(t *testing.T) {
	s := InitSlots(2)

	// Re-setting the value a slot already has must return the snapshot
	// itself, not a copy.
	testhelp.Assert(t, s.UpdateType(0, s.GetType(0)) == s, "no-op type update allocated")
	testhelp.Assert(t, s.UpdateState(0, s.GetState(0)) == s, "no-op state update allocated")

	s2 := s.UpdateType(0, SlotString)
	testhelp.Assert(t, s2 != s, "real update did not allocate")
	testhelp.Assert(t, s.GetType(0) == SlotNil, "update mutated the original")
	testhelp.Assert(t, s2.GetType(0) == SlotString, "update lost")
}

func TestCaptureMonotone(t *testing.T) {
	a := InitSlots(3).Capture(1)
	b := InitSlots(3)

	for _, j := range []*Slots{a.Join(b), b.Join(a)} {
		testhelp.Assert(t, j.GetState(1).IsCaptured(), "capture lost in join")
		testhelp.Assert(t, j.GetState(0).IsFresh(), "capture leaked in join")
	}
}

func TestFreshen(t *testing.T) {
	s := InitSlots(2).Capture(1)

	f := s.Freshen(1)
	testhelp.Assert(t, f.GetState(1).IsFresh(), "capture state not reset")
	testhelp.Assert(t, s.GetState(1).IsCaptured(), "freshen mutated the original")
	testhelp.Assert(t, f.Freshen(1) == f, "no-op freshen allocated")
}

func TestJoinTypes(t *testing.T) {
	a := InitSlots(3).UpdateType(0, SlotNumberInteger).UpdateType(1, SlotString)
	b := InitSlots(3).UpdateType(0, SlotNumberFloat).UpdateType(1, SlotString)

	j := a.Join(b)
	testhelp.Assert(t, j.GetType(0) == SlotNumber, "numeric join failed")
	testhelp.Assert(t, j.GetType(1) == SlotString, "equal types widened")
	testhelp.Assert(t, j.GetType(2) == SlotNil, "untouched slot widened")
}

func TestJoinSizeMismatch(t *testing.T) {
	typ := testhelp.RaisedType(func() { InitSlots(2).Join(InitSlots(3)) })
	testhelp.Assert(t, typ == luautil.ErrTypMajorInternal, "size mismatch not an internal defect:", typ)
}

func TestInvalidIndex(t *testing.T) {
	s := InitSlots(2)

	testhelp.Assert(t, testhelp.RaisedType(func() { s.GetType(2) }) == luautil.ErrTypMajorInternal, "read past end")
	testhelp.Assert(t, testhelp.RaisedType(func() { s.GetType(-1) }) == luautil.ErrTypMajorInternal, "negative read")
	testhelp.Assert(t, testhelp.RaisedType(func() { s.UpdateType(5, SlotString) }) == luautil.ErrTypMajorInternal, "write past end")
}

func TestVarargs(t *testing.T) {
	s := InitSlots(4).UpdateType(0, SlotNumberInteger).UpdateType(2, SlotString)

	v := s.SetVarargs(2)
	testhelp.Assert(t, v.HasVarargs(), "marker not set")
	testhelp.Assert(t, v.VarargPosition() == 2, "wrong position")
	testhelp.Assert(t, !v.IsValidIndex(2), "vararg shadowed index still valid")
	testhelp.Assert(t, !v.IsValidIndex(3), "index past vararg position still valid")
	testhelp.Assert(t, v.IsValidIndex(1), "index below vararg position invalid")
	testhelp.Assert(t, v.GetType(0) == SlotNumberInteger, "low slot type lost")
	testhelp.Assert(t, testhelp.RaisedType(func() { v.GetType(2) }) == luautil.ErrTypMajorInternal, "shadowed read not rejected")

	c := v.ConsumeVarargs()
	testhelp.Assert(t, !c.HasVarargs(), "marker survived consume")
	testhelp.Assert(t, c.IsValidIndex(2) && c.IsValidIndex(3), "consume did not restore indexes")
	testhelp.Assert(t, c.GetType(2) == SlotNil, "cleared slot kept its type")
}

func TestVarargsCapturedSlot(t *testing.T) {
	s := InitSlots(4).Capture(3)
	typ := testhelp.RaisedType(func() { s.SetVarargs(2) })
	testhelp.Assert(t, typ == luautil.ErrTypMajorInternal, "capturing a cleared vararg slot not rejected:", typ)
}

func TestSlotsEquality(t *testing.T) {
	a := InitSlots(3).UpdateType(1, SlotString)
	b := InitSlots(3).UpdateType(1, SlotString)
	c := InitSlots(3)

	testhelp.Assert(t, a.Equals(b), "equal snapshots not equal")
	testhelp.Assert(t, a.Hash() == b.Hash(), "equal snapshots hash differently")
	testhelp.Assert(t, !a.Equals(c), "different snapshots equal")

	// The vararg position takes part in equality. See DESIGN.md.
	testhelp.Assert(t, !c.Equals(c.SetVarargs(2)), "vararg state ignored by equality")
}

func TestSlotsString(t *testing.T) {
	s := InitSlots(4).UpdateType(0, SlotNumberInteger).UpdateType(1, SlotAny).Capture(1)
	testhelp.Assertf(t, s.String() == "i^A--", "wrong render: %q", s.String())

	v := s.SetVarargs(2)
	testhelp.Assertf(t, v.String() == "i^A+", "wrong vararg render: %q", v.String())
}
