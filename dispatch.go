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

// The runtime dispatch library.
//
// Every operator has a generic entry taking boxed values: it tries the raw
// operation first and falls back to metamethod lookup, writing its results
// into the caller's ObjectSink. The arithmetic and bitwise operators also
// have a specialized numeric entry taking Number operands: no boxing, no
// metamethod lookup, a direct numeric result. The code generator emits calls
// to the numeric entries only where the slot types prove both operands
// numeric.
//
// All entries are plain synchronous functions with no retained state; any
// suspend/resume protocol around metamethod handlers belongs to the caller.

package rembulan

import "math"

import "github.com/missingfaktor/rembulan/luautil"

// Number is an unboxed numeric operand for the specialized entries: either
// an int64 or a float64, discriminated by a tag instead of a heap box.
type Number struct {
	i     int64
	f     float64
	isInt bool
}

// IntNum wraps an integer as a Number.
func IntNum(i int64) Number {
	return Number{i: i, isInt: true}
}

// FloatNum wraps a float as a Number.
func FloatNum(f float64) Number {
	return Number{f: f}
}

// IsInt reports whether the Number holds an integer.
func (n Number) IsInt() bool {
	return n.isInt
}

// Int returns the integer value. Only meaningful when IsInt is true.
func (n Number) Int() int64 {
	return n.i
}

// Float returns the value as a float, converting an integer if needed.
func (n Number) Float() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

// Value boxes the Number back into a Value.
func (n Number) Value() Value {
	if n.isInt {
		return n.i
	}
	return n.f
}

// toIntStrict converts to the integer domain for the bitwise operators.
// A float with no exact integer value is an arithmetic error.
func (n Number) toIntStrict() int64 {
	if n.isInt {
		return n.i
	}
	if i := int64(n.f); float64(i) == n.f {
		return i
	}
	luautil.Raise("Number has no integer representation.", luautil.ErrTypGenRuntime)
	panic("UNREACHABLE")
}

// Integer floor division and modulo. The quotient rounds toward negative
// infinity and the remainder takes the divisor's sign, unlike Go's / and %.

func ifloordiv(a, b int64) int64 {
	if b == 0 {
		luautil.Raise("Attempt to perform 'n//0'.", luautil.ErrTypGenRuntime)
	}
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func imod(a, b int64) int64 {
	if b == 0 {
		luautil.Raise("Attempt to perform 'n%0'.", luautil.ErrTypGenRuntime)
	}
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

func fmod(a, b float64) float64 {
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

func ishift(a, b int64) int64 {
	if b < 0 {
		return int64(uint64(a) >> uint64(-b))
	}
	return int64(uint64(a) << uint64(b))
}

// Metamethod machinery.

var mathMetaNames = map[string]string{
	EntryAdd:  "__add",
	EntrySub:  "__sub",
	EntryMul:  "__mul",
	EntryDiv:  "__div",
	EntryMod:  "__mod",
	EntryPow:  "__pow",
	EntryUnm:  "__unm",
	EntryIDiv: "__idiv",
	EntryBand: "__band",
	EntryBor:  "__bor",
	EntryBxor: "__bxor",
	EntryBnot: "__bnot",
	EntryShl:  "__shl",
	EntryShr:  "__shr",
}

func (l *State) tryMathMeta(entry string, a, b Value) Value {
	name, ok := mathMetaNames[entry]
	if !ok {
		luautil.Raise("Entry passed to tryMathMeta out of range.", luautil.ErrTypMajorInternal)
	}

	meta := l.hasMetaMethod(a, name)
	if meta == nil {
		meta = l.hasMetaMethod(b, name)
		if meta == nil {
			luautil.Raise("Neither operand has a "+name+" metamethod.", luautil.ErrTypGenRuntime)
		}
	}

	if _, ok := meta.(*Function); !ok {
		luautil.Raise("Metamethod "+name+" is not a function.", luautil.ErrTypGenRuntime)
	}

	l.enter()
	defer l.exit()
	return l.call1(meta, a, b)
}

// Generic arithmetic entries. Each tries the raw numeric operation (with the
// language's string to number coercion) before falling back to metamethods.

// Add is the generic entry for "+".
func Add(l *State, sink *ObjectSink, a, b Value) {
	if ia, ok := a.(int64); ok {
		if ib, ok := b.(int64); ok {
			sink.SetTo(ia + ib)
			return
		}
	}
	if fa, ok := tryFloat(a); ok {
		if fb, ok := tryFloat(b); ok {
			sink.SetTo(fa + fb)
			return
		}
	}
	sink.SetTo(l.tryMathMeta(EntryAdd, a, b))
}

// Sub is the generic entry for "-".
func Sub(l *State, sink *ObjectSink, a, b Value) {
	if ia, ok := a.(int64); ok {
		if ib, ok := b.(int64); ok {
			sink.SetTo(ia - ib)
			return
		}
	}
	if fa, ok := tryFloat(a); ok {
		if fb, ok := tryFloat(b); ok {
			sink.SetTo(fa - fb)
			return
		}
	}
	sink.SetTo(l.tryMathMeta(EntrySub, a, b))
}

// Mul is the generic entry for "*".
func Mul(l *State, sink *ObjectSink, a, b Value) {
	if ia, ok := a.(int64); ok {
		if ib, ok := b.(int64); ok {
			sink.SetTo(ia * ib)
			return
		}
	}
	if fa, ok := tryFloat(a); ok {
		if fb, ok := tryFloat(b); ok {
			sink.SetTo(fa * fb)
			return
		}
	}
	sink.SetTo(l.tryMathMeta(EntryMul, a, b))
}

// Div is the generic entry for "/". The result is always a float.
func Div(l *State, sink *ObjectSink, a, b Value) {
	if fa, ok := tryFloat(a); ok {
		if fb, ok := tryFloat(b); ok {
			sink.SetTo(fa / fb)
			return
		}
	}
	sink.SetTo(l.tryMathMeta(EntryDiv, a, b))
}

// Mod is the generic entry for "%". The remainder takes the divisor's sign.
func Mod(l *State, sink *ObjectSink, a, b Value) {
	if ia, ok := a.(int64); ok {
		if ib, ok := b.(int64); ok {
			sink.SetTo(imod(ia, ib))
			return
		}
	}
	if fa, ok := tryFloat(a); ok {
		if fb, ok := tryFloat(b); ok {
			sink.SetTo(fmod(fa, fb))
			return
		}
	}
	sink.SetTo(l.tryMathMeta(EntryMod, a, b))
}

// Pow is the generic entry for "^". The result is always a float.
func Pow(l *State, sink *ObjectSink, a, b Value) {
	if fa, ok := tryFloat(a); ok {
		if fb, ok := tryFloat(b); ok {
			sink.SetTo(math.Pow(fa, fb))
			return
		}
	}
	sink.SetTo(l.tryMathMeta(EntryPow, a, b))
}

// IDiv is the generic entry for "//", floor division.
func IDiv(l *State, sink *ObjectSink, a, b Value) {
	if ia, ok := a.(int64); ok {
		if ib, ok := b.(int64); ok {
			sink.SetTo(ifloordiv(ia, ib))
			return
		}
	}
	if fa, ok := tryFloat(a); ok {
		if fb, ok := tryFloat(b); ok {
			sink.SetTo(math.Floor(fa / fb))
			return
		}
	}
	sink.SetTo(l.tryMathMeta(EntryIDiv, a, b))
}

// Unm is the generic entry for unary "-".
func Unm(l *State, sink *ObjectSink, a Value) {
	if ia, ok := a.(int64); ok {
		sink.SetTo(-ia)
		return
	}
	if fa, ok := tryFloat(a); ok {
		sink.SetTo(-fa)
		return
	}
	sink.SetTo(l.tryMathMeta(EntryUnm, a, a))
}

// Band is the generic entry for "&".
func Band(l *State, sink *ObjectSink, a, b Value) {
	if ia, ok := tryInt(a); ok {
		if ib, ok := tryInt(b); ok {
			sink.SetTo(ia & ib)
			return
		}
	}
	sink.SetTo(l.tryMathMeta(EntryBand, a, b))
}

// Bor is the generic entry for "|".
func Bor(l *State, sink *ObjectSink, a, b Value) {
	if ia, ok := tryInt(a); ok {
		if ib, ok := tryInt(b); ok {
			sink.SetTo(ia | ib)
			return
		}
	}
	sink.SetTo(l.tryMathMeta(EntryBor, a, b))
}

// Bxor is the generic entry for "~" (binary).
func Bxor(l *State, sink *ObjectSink, a, b Value) {
	if ia, ok := tryInt(a); ok {
		if ib, ok := tryInt(b); ok {
			sink.SetTo(ia ^ ib)
			return
		}
	}
	sink.SetTo(l.tryMathMeta(EntryBxor, a, b))
}

// Bnot is the generic entry for "~" (unary).
func Bnot(l *State, sink *ObjectSink, a Value) {
	if ia, ok := tryInt(a); ok {
		sink.SetTo(^ia)
		return
	}
	sink.SetTo(l.tryMathMeta(EntryBnot, a, a))
}

// Shl is the generic entry for "<<". Shifts are logical; a negative count
// shifts the other way, an overlarge one produces zero.
func Shl(l *State, sink *ObjectSink, a, b Value) {
	if ia, ok := tryInt(a); ok {
		if ib, ok := tryInt(b); ok {
			sink.SetTo(ishift(ia, ib))
			return
		}
	}
	sink.SetTo(l.tryMathMeta(EntryShl, a, b))
}

// Shr is the generic entry for ">>".
func Shr(l *State, sink *ObjectSink, a, b Value) {
	if ia, ok := tryInt(a); ok {
		if ib, ok := tryInt(b); ok {
			sink.SetTo(ishift(ia, -ib))
			return
		}
	}
	sink.SetTo(l.tryMathMeta(EntryShr, a, b))
}

// Concat is the generic entry for "..".

func concatable(v Value) bool {
	switch v.(type) {
	case string, int64, float64:
		return true
	}
	return false
}

func Concat(l *State, sink *ObjectSink, a, b Value) {
	if concatable(a) && concatable(b) {
		sink.SetTo(toStringConcat(a) + toStringConcat(b))
		return
	}

	meta := l.hasMetaMethod(a, "__concat")
	if meta == nil {
		meta = l.hasMetaMethod(b, "__concat")
		if meta == nil {
			bad := a
			if concatable(a) {
				bad = b
			}
			luautil.Raise("Attempt to concatenate a "+TypeOf(bad).String()+" value.", luautil.ErrTypGenRuntime)
		}
	}

	l.enter()
	defer l.exit()
	sink.SetTo(l.call1(meta, a, b))
}

// Len is the generic entry for "#". Strings use their raw length, tables
// honor __len before the raw border, everything else needs __len.
func Len(l *State, sink *ObjectSink, a Value) {
	if s, ok := a.(string); ok {
		sink.SetTo(int64(len(s)))
		return
	}

	if meta := l.hasMetaMethod(a, "__len"); meta != nil {
		l.enter()
		defer l.exit()
		sink.SetTo(l.call1(meta, a))
		return
	}

	if t, ok := a.(*Table); ok {
		sink.SetTo(t.Length())
		return
	}
	luautil.Raise("Attempt to get length of a "+TypeOf(a).String()+" value.", luautil.ErrTypGenRuntime)
}

// Comparison entries. Each writes a single boolean into the sink.

// cmpUnordered marks a comparison involving a NaN.
const cmpUnordered = 2

// numCmp compares two numeric values exactly. Mixed pairs never go through
// a common float64 form: integers above 2^53 would compare equal to floats
// they do not equal. Unlike arithmetic, comparison never coerces strings.
func numCmp(a, b Value) (int, bool) {
	switch va := a.(type) {
	case int64:
		switch vb := b.(type) {
		case int64:
			switch {
			case va < vb:
				return -1, true
			case va > vb:
				return 1, true
			}
			return 0, true
		case float64:
			return cmpIntFloat(va, vb), true
		}
	case float64:
		switch vb := b.(type) {
		case int64:
			c := cmpIntFloat(vb, va)
			if c == cmpUnordered {
				return c, true
			}
			return -c, true
		case float64:
			switch {
			case va != va || vb != vb:
				return cmpUnordered, true
			case va < vb:
				return -1, true
			case va > vb:
				return 1, true
			}
			return 0, true
		}
	}
	return 0, false
}

// cmpIntFloat compares an integer with a float in the integer domain where
// possible. A float beyond the int64 range compares by its sign.
func cmpIntFloat(i int64, f float64) int {
	if f != f {
		return cmpUnordered
	}
	if f >= 9223372036854775808.0 { // 2^63
		return -1
	}
	if f < -9223372036854775808.0 {
		return 1
	}

	fl := math.Floor(f)
	switch fi := int64(fl); {
	case i < fi:
		return -1
	case i > fi:
		return 1
	case f == fl:
		return 0
	}
	return -1 // i == floor(f) < f
}

// Eq is the generic entry for "==". The __eq metamethod is consulted only
// when both operands are tables that are not primitively equal.
func Eq(l *State, sink *ObjectSink, a, b Value) {
	sink.SetTo(eq(l, a, b))
}

func eq(l *State, a, b Value) bool {
	if c, ok := numCmp(a, b); ok || TypeOf(a) == TypNumber || TypeOf(b) == TypNumber {
		return ok && c == 0
	}

	if a == b {
		return true
	}

	ta, oka := a.(*Table)
	tb, okb := b.(*Table)
	if !oka || !okb {
		return false
	}

	meta := l.hasMetaMethod(ta, "__eq")
	if meta == nil {
		meta = l.hasMetaMethod(tb, "__eq")
		if meta == nil {
			return false
		}
	}

	l.enter()
	defer l.exit()
	return toBool(l.call1(meta, a, b))
}

// Lt is the generic entry for "<".
func Lt(l *State, sink *ObjectSink, a, b Value) {
	sink.SetTo(lt(l, a, b))
}

func lt(l *State, a, b Value) bool {
	if c, ok := numCmp(a, b); ok {
		return c == -1
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return sa < sb
		}
	}

	meta := l.hasMetaMethod(a, "__lt")
	if meta == nil {
		meta = l.hasMetaMethod(b, "__lt")
		if meta == nil {
			luautil.Raise("Attempt to compare "+TypeOf(a).String()+" with "+TypeOf(b).String()+".", luautil.ErrTypGenRuntime)
		}
	}

	l.enter()
	defer l.exit()
	return toBool(l.call1(meta, a, b))
}

// Le is the generic entry for "<=". With no __le handler on either operand
// it falls back to "not (b < a)" through __lt.
func Le(l *State, sink *ObjectSink, a, b Value) {
	sink.SetTo(le(l, a, b))
}

func le(l *State, a, b Value) bool {
	if c, ok := numCmp(a, b); ok {
		return c == -1 || c == 0
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return sa <= sb
		}
	}

	meta := l.hasMetaMethod(a, "__le")
	if meta == nil {
		meta = l.hasMetaMethod(b, "__le")
	}
	if meta != nil {
		l.enter()
		defer l.exit()
		return toBool(l.call1(meta, a, b))
	}

	// No __le anywhere: a <= b becomes not (b < a).
	return !lt(l, b, a)
}

// Indexing entries.

// Metatable chains longer than this are assumed to loop.
const maxMetaDepth = 100

// Index is the generic entry for reading obj[key]: raw access first, then
// the __index chain, a table handler restarting the walk and a function
// handler ending it.
func Index(l *State, sink *ObjectSink, obj, key Value) {
	for depth := 0; depth < maxMetaDepth; depth++ {
		if t, ok := obj.(*Table); ok {
			if v := t.GetRaw(key); v != nil {
				sink.SetTo(v)
				return
			}

			meta := l.hasMetaMethod(t, "__index")
			if meta == nil {
				sink.SetTo(nil)
				return
			}
			if mt, ok := meta.(*Table); ok {
				obj = mt
				continue
			}

			l.enter()
			defer l.exit()
			sink.SetTo(l.call1(meta, obj, key))
			return
		}

		meta := l.hasMetaMethod(obj, "__index")
		if meta == nil {
			luautil.Raise("Attempt to index a "+TypeOf(obj).String()+" value.", luautil.ErrTypGenRuntime)
		}
		if mt, ok := meta.(*Table); ok {
			obj = mt
			continue
		}

		l.enter()
		defer l.exit()
		sink.SetTo(l.call1(meta, obj, key))
		return
	}
	luautil.Raise("'__index' chain too long, possible loop.", luautil.ErrTypGenRuntime)
}

// NewIndex is the generic entry for writing obj[key] = val. An existing raw
// key, or a table with no __newindex handler, takes a raw write; otherwise
// the __newindex chain is walked like Index.
func NewIndex(l *State, sink *ObjectSink, obj, key, val Value) {
	for depth := 0; depth < maxMetaDepth; depth++ {
		if t, ok := obj.(*Table); ok {
			if t.GetRaw(key) != nil {
				t.SetRaw(key, val)
				return
			}

			meta := l.hasMetaMethod(t, "__newindex")
			if meta == nil {
				t.SetRaw(key, val)
				return
			}
			if mt, ok := meta.(*Table); ok {
				obj = mt
				continue
			}

			l.enter()
			defer l.exit()
			l.call1(meta, obj, key, val)
			return
		}

		meta := l.hasMetaMethod(obj, "__newindex")
		if meta == nil {
			luautil.Raise("Attempt to index a "+TypeOf(obj).String()+" value.", luautil.ErrTypGenRuntime)
		}
		if mt, ok := meta.(*Table); ok {
			obj = mt
			continue
		}

		l.enter()
		defer l.exit()
		l.call1(meta, obj, key, val)
		return
	}
	luautil.Raise("'__newindex' chain too long, possible loop.", luautil.ErrTypGenRuntime)
}

// Call entries, one per call kind.

// Call invokes a callable value: a function directly, anything else through
// its __call metamethod with the value itself prepended to the arguments.
// Results land in the sink.
func Call(l *State, sink *ObjectSink, target Value, args ...Value) {
	l.enter()
	defer l.exit()

	if f, ok := target.(*Function); ok {
		sink.Reset()
		if f.native != nil {
			f.native(l, sink, args...)
			return
		}
		if l.Exec == nil {
			luautil.Raise("Attempt to call a compiled function with no executor installed.", luautil.ErrTypGenRuntime)
		}
		l.Exec(l, sink, f, args...)
		return
	}

	meta := l.hasMetaMethod(target, "__call")
	if meta == nil {
		luautil.Raise("Attempt to call a "+TypeOf(target).String()+" value.", luautil.ErrTypGenRuntime)
	}

	args2 := make([]Value, 0, len(args)+1)
	args2 = append(args2, target)
	args2 = append(args2, args...)
	Call(l, sink, meta, args2...)
}

// TailCall validates the target and records the pending call in the sink;
// the host trampoline performs it in the caller's frame.
func TailCall(l *State, sink *ObjectSink, target Value, args ...Value) {
	if _, ok := target.(*Function); !ok {
		if l.hasMetaMethod(target, "__call") == nil {
			luautil.Raise("Attempt to call a "+TypeOf(target).String()+" value.", luautil.ErrTypGenRuntime)
		}
	}
	sink.MarkTailCall(target, args...)
}

// ContinueLoop is the numeric for loop continuation test: true while the
// loop variable has not passed the limit, in the direction given by the
// step's sign. A pure integer loop stays in the integer domain.
func ContinueLoop(v, limit, step Number) bool {
	if v.isInt && limit.isInt && step.isInt {
		if step.i >= 0 {
			return v.i <= limit.i
		}
		return v.i >= limit.i
	}

	fv, fl, fs := v.Float(), limit.Float(), step.Float()
	if fs >= 0 {
		return fv <= fl
	}
	return fv >= fl
}

// Specialized numeric entries. No boxing, no metamethods, no string
// coercion: operands are already known numeric. Arithmetic on two integers
// stays integer (except / and ^, which are float by definition); anything
// else is carried out in floats.

// AddNum is the specialized entry for "+".
func AddNum(a, b Number) Number {
	if a.isInt && b.isInt {
		return IntNum(a.i + b.i)
	}
	return FloatNum(a.Float() + b.Float())
}

// SubNum is the specialized entry for "-".
func SubNum(a, b Number) Number {
	if a.isInt && b.isInt {
		return IntNum(a.i - b.i)
	}
	return FloatNum(a.Float() - b.Float())
}

// MulNum is the specialized entry for "*".
func MulNum(a, b Number) Number {
	if a.isInt && b.isInt {
		return IntNum(a.i * b.i)
	}
	return FloatNum(a.Float() * b.Float())
}

// DivNum is the specialized entry for "/".
func DivNum(a, b Number) Number {
	return FloatNum(a.Float() / b.Float())
}

// ModNum is the specialized entry for "%". Integer modulo by zero is an
// arithmetic error.
func ModNum(a, b Number) Number {
	if a.isInt && b.isInt {
		return IntNum(imod(a.i, b.i))
	}
	return FloatNum(fmod(a.Float(), b.Float()))
}

// PowNum is the specialized entry for "^".
func PowNum(a, b Number) Number {
	return FloatNum(math.Pow(a.Float(), b.Float()))
}

// IDivNum is the specialized entry for "//". Integer division by zero is an
// arithmetic error.
func IDivNum(a, b Number) Number {
	if a.isInt && b.isInt {
		return IntNum(ifloordiv(a.i, b.i))
	}
	return FloatNum(math.Floor(a.Float() / b.Float()))
}

// UnmNum is the specialized entry for unary "-".
func UnmNum(a Number) Number {
	if a.isInt {
		return IntNum(-a.i)
	}
	return FloatNum(-a.f)
}

// BandNum is the specialized entry for "&".
func BandNum(a, b Number) Number {
	return IntNum(a.toIntStrict() & b.toIntStrict())
}

// BorNum is the specialized entry for "|".
func BorNum(a, b Number) Number {
	return IntNum(a.toIntStrict() | b.toIntStrict())
}

// BxorNum is the specialized entry for binary "~".
func BxorNum(a, b Number) Number {
	return IntNum(a.toIntStrict() ^ b.toIntStrict())
}

// BnotNum is the specialized entry for unary "~".
func BnotNum(a Number) Number {
	return IntNum(^a.toIntStrict())
}

// ShlNum is the specialized entry for "<<".
func ShlNum(a, b Number) Number {
	return IntNum(ishift(a.toIntStrict(), b.toIntStrict()))
}

// ShrNum is the specialized entry for ">>".
func ShrNum(a, b Number) Number {
	return IntNum(ishift(a.toIntStrict(), -b.toIntStrict()))
}
