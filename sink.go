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

// ObjectSink is the output buffer the generic dispatch entries write their
// results into. Producing results through a shared sink instead of return
// values is what makes multi value returns work with fixed arity entries.
//
// Entries replace the sink's contents in one step (SetTo) only after the
// operation has fully succeeded, so a raised error never leaves partial
// results behind.
type ObjectSink struct {
	values []Value

	// A pending tail call, recorded instead of results. The host trampoline
	// pops the target and arguments and reuses the caller's frame.
	tailTarget Value
	tailArgs   []Value
	tailCall   bool
}

// NewObjectSink creates an empty sink.
func NewObjectSink() *ObjectSink {
	return new(ObjectSink)
}

// Reset drops all results and any pending tail call.
func (sink *ObjectSink) Reset() {
	sink.values = sink.values[:0]
	sink.tailTarget = nil
	sink.tailArgs = nil
	sink.tailCall = false
}

// SetTo replaces the sink's contents.
func (sink *ObjectSink) SetTo(vs ...Value) {
	sink.Reset()
	sink.values = append(sink.values, vs...)
}

// Push appends a single result.
func (sink *ObjectSink) Push(v Value) {
	sink.values = append(sink.values, v)
}

// Size returns the current result count.
func (sink *ObjectSink) Size() int {
	return len(sink.values)
}

// Values returns the current results. The slice is owned by the sink and is
// invalidated by the next Reset or SetTo.
func (sink *ObjectSink) Values() []Value {
	return sink.values
}

// First returns the first result, or nil if there are none.
func (sink *ObjectSink) First() Value {
	if len(sink.values) == 0 {
		return nil
	}
	return sink.values[0]
}

// Get returns result i, or nil past the end. Mirrors the language's relaxed
// treatment of missing return values.
func (sink *ObjectSink) Get(i int) Value {
	if i < 0 || i >= len(sink.values) {
		return nil
	}
	return sink.values[i]
}

// MarkTailCall records a pending tail call in place of results.
func (sink *ObjectSink) MarkTailCall(target Value, args ...Value) {
	sink.Reset()
	sink.tailTarget = target
	sink.tailArgs = append(sink.tailArgs, args...)
	sink.tailCall = true
}

// IsTailCall reports whether the sink holds a pending tail call.
func (sink *ObjectSink) IsTailCall() bool {
	return sink.tailCall
}

// TailCall returns the pending tail call's target and arguments.
func (sink *ObjectSink) TailCall() (Value, []Value) {
	return sink.tailTarget, sink.tailArgs
}
