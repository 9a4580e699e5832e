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

import "strings"

import "github.com/missingfaktor/rembulan/luautil"

// SlotState tracks whether a register's storage may be referenced from a closure.
type SlotState int

const (
	// SlotFresh slots hold a value not known to be referenced by any closure.
	SlotFresh SlotState = iota

	// SlotCaptured slots must be boxed, an inner closure references the storage.
	SlotCaptured
)

func (s SlotState) IsFresh() bool {
	return s == SlotFresh
}

func (s SlotState) IsCaptured() bool {
	return s == SlotCaptured
}

var slotStateNames = [...]string{"fresh", "captured"}

func (s SlotState) String() string {
	return slotStateNames[s]
}

// SlotType is a compile time approximation of a register's value type.
// The types form a closed lattice: SlotAny is the top, the two concrete
// number types join to SlotNumber, everything else joins straight to the top.
type SlotType int

const (
	SlotAny SlotType = iota
	SlotNil
	SlotBoolean
	SlotNumber // Integer or float, exact variant unknown.
	SlotNumberInteger
	SlotNumberFloat
	SlotString
	SlotTable
	SlotThread
	SlotFunction

	slotTypeCount int = iota
)

var slotTypeNames = [...]string{"any", "nil", "boolean", "number", "integer", "float", "string", "table", "thread", "function"}

func (t SlotType) String() string {
	return slotTypeNames[t]
}

// IsNumber reports whether the type is one of the three numeric variants.
func (t SlotType) IsNumber() bool {
	return t == SlotNumber || t == SlotNumberInteger || t == SlotNumberFloat
}

// Join returns the least upper bound of two slot types.
func (t SlotType) Join(that SlotType) SlotType {
	if t == that {
		return t
	}
	if t.IsNumber() && that.IsNumber() {
		return SlotNumber
	}
	return SlotAny
}

// Slots is an immutable snapshot of every register in a function activation
// at a single program point. All "mutating" operations return a new snapshot,
// sharing the unchanged state/type sequence with the original. An update that
// would not change anything returns the receiver itself; the code generator's
// loop fixpoint depends on this to make snapshot comparison cheap.
type Slots struct {
	states []SlotState
	types  []SlotType

	// First index of the vararg tail, negative if the frame has no pending varargs.
	// Indexes at or past this position are not addressable as regular slots.
	varargPosition int
}

// InitSlots creates a snapshot for a frame of the given size: every register
// fresh and nil, no varargs.
func InitSlots(size int) *Slots {
	if size < 0 {
		luautil.Raise("Negative slot count.", luautil.ErrTypMajorInternal)
	}

	states := make([]SlotState, size)
	types := make([]SlotType, size)
	for i := 0; i < size; i++ {
		types[i] = SlotNil
	}
	return &Slots{states: states, types: types, varargPosition: -1}
}

// EntrySlots creates the snapshot for a function entry point: parameters
// arrive with unknown concrete type, everything else is nil.
func EntrySlots(stackSize, numArgs int) *Slots {
	s := InitSlots(stackSize)
	for i := 0; i < numArgs; i++ {
		s = s.UpdateType(i, SlotAny)
	}
	return s
}

func (s *Slots) Size() int {
	return len(s.states)
}

func (s *Slots) VarargPosition() int {
	return s.varargPosition
}

func (s *Slots) HasVarargs() bool {
	return s.varargPosition >= 0
}

// IsValidIndex reports whether idx addresses a regular slot. Indexes at or
// past the vararg position are shadowed by the vararg tail and are invalid.
func (s *Slots) IsValidIndex(idx int) bool {
	return idx >= 0 && idx < len(s.states) && (s.varargPosition < 0 || idx < s.varargPosition)
}

func (s *Slots) checkIndex(idx int) {
	if !s.IsValidIndex(idx) {
		luautil.Raise("Invalid slot index.", luautil.ErrTypMajorInternal)
	}
}

func (s *Slots) GetState(idx int) SlotState {
	s.checkIndex(idx)
	return s.states[idx]
}

func (s *Slots) UpdateState(idx int, to SlotState) *Slots {
	s.checkIndex(idx)
	if s.states[idx] == to {
		return s
	}

	states := make([]SlotState, len(s.states))
	copy(states, s.states)
	states[idx] = to
	return &Slots{states: states, types: s.types, varargPosition: s.varargPosition}
}

// Capture marks a slot as referenced by a closure.
func (s *Slots) Capture(idx int) *Slots {
	return s.UpdateState(idx, SlotCaptured)
}

// Freshen resets a slot's capture state, used when a slot is re-initialized.
func (s *Slots) Freshen(idx int) *Slots {
	return s.UpdateState(idx, SlotFresh)
}

func (s *Slots) GetType(idx int) SlotType {
	s.checkIndex(idx)
	return s.types[idx]
}

func (s *Slots) UpdateType(idx int, typ SlotType) *Slots {
	s.checkIndex(idx)
	if s.types[idx] == typ {
		return s
	}

	types := make([]SlotType, len(s.types))
	copy(types, s.types)
	types[idx] = typ
	return &Slots{states: s.states, types: types, varargPosition: s.varargPosition}
}

// JoinAt widens a single slot's type by the given type.
func (s *Slots) JoinAt(idx int, typ SlotType) *Slots {
	return s.UpdateType(idx, s.GetType(idx).Join(typ))
}

// Join combines two snapshots at a control flow merge point: types are joined
// per slot, and a slot captured on either incoming path stays captured.
func (s *Slots) Join(that *Slots) *Slots {
	if s.Size() != that.Size() {
		luautil.Raise("Joining slot snapshots of different sizes.", luautil.ErrTypMajorInternal)
	}

	r := s
	for i := 0; i < r.Size(); i++ {
		r = r.JoinAt(i, that.GetType(i))
	}
	for i := 0; i < r.Size(); i++ {
		if that.GetState(i).IsCaptured() {
			r = r.Capture(i)
		}
	}
	return r
}

// SetVarargs clears any existing vararg marker, forces every register at or
// after position to nil, and marks position as the start of the vararg tail.
// A captured register in the cleared range is a contradiction the code
// generator must never produce.
func (s *Slots) SetVarargs(position int) *Slots {
	if position < 0 || position >= len(s.states) {
		luautil.Raise("Vararg position out of range.", luautil.ErrTypMajorInternal)
	}

	r := s
	if r.HasVarargs() {
		r = r.ConsumeVarargs()
	}

	for i := position; i < r.Size(); i++ {
		if r.GetState(i).IsCaptured() {
			luautil.Raise("Captured slot shadowed by vararg assignment.", luautil.ErrTypMajorInternal)
		}
		r = r.UpdateType(i, SlotNil)
	}

	return &Slots{states: r.states, types: r.types, varargPosition: position}
}

// ConsumeVarargs drops the vararg marker without touching register contents,
// used once a call site has materialized the tail into fixed registers.
func (s *Slots) ConsumeVarargs() *Slots {
	if !s.HasVarargs() {
		return s
	}
	return &Slots{states: s.states, types: s.types, varargPosition: -1}
}

// Equals compares two snapshots. The vararg position is part of the
// comparison: two snapshots with equal sequences but different vararg state
// are different program points. (See DESIGN.md.)
func (s *Slots) Equals(that *Slots) bool {
	if s == that {
		return true
	}
	if that == nil || len(s.states) != len(that.states) || s.varargPosition != that.varargPosition {
		return false
	}

	for i := range s.states {
		if s.states[i] != that.states[i] || s.types[i] != that.types[i] {
			return false
		}
	}
	return true
}

// Hash returns a value consistent with Equals, for snapshot memoization.
func (s *Slots) Hash() uint32 {
	h := uint32(2166136261)
	for i := range s.states {
		h = (h ^ uint32(s.states[i])) * 16777619
		h = (h ^ uint32(s.types[i])) * 16777619
	}
	h = (h ^ uint32(s.varargPosition)) * 16777619
	return h
}

// String renders a compact one rune per slot form: "^" prefixes captured
// slots, "+" marks a pending vararg tail.
func (s *Slots) String() string {
	bld := new(strings.Builder)

	regular := s.Size()
	if s.varargPosition >= 0 && s.varargPosition < regular {
		regular = s.varargPosition
	}

	for i := 0; i < regular; i++ {
		if s.states[i].IsCaptured() {
			bld.WriteByte('^')
		}
		switch s.types[i] {
		case SlotAny:
			bld.WriteByte('A')
		case SlotNil:
			bld.WriteByte('-')
		case SlotBoolean:
			bld.WriteByte('B')
		case SlotNumber:
			bld.WriteByte('N')
		case SlotNumberInteger:
			bld.WriteByte('i')
		case SlotNumberFloat:
			bld.WriteByte('f')
		case SlotString:
			bld.WriteByte('S')
		case SlotTable:
			bld.WriteByte('T')
		case SlotThread:
			bld.WriteByte('C')
		case SlotFunction:
			bld.WriteByte('F')
		default:
			bld.WriteByte('?')
		}
	}

	if s.HasVarargs() {
		bld.WriteByte('+')
	}
	return bld.String()
}
