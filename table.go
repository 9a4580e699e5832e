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

import "math"

// Table is the script table type: a hybrid array/hash with an optional
// metatable. Integer keys (including floats with an exact integer value) from
// 1 up go in the array part when dense, everything else in the hash part.
//
// The raw accessors here bypass metamethods entirely. They are the
// primitives the dispatch entries (and rawget/rawset style library
// functions) build on.
type Table struct {
	meta *Table

	array  []Value
	length int // Stored sequence length, negative if it needs recalculation.

	hash map[Value]Value
}

// NewTable creates a table, with optional size hints for the array and hash
// parts.
func NewTable(as, hs int) *Table {
	t := new(Table)

	if as > 0 {
		t.array = make([]Value, as)
	}
	if hs > 0 {
		t.hash = make(map[Value]Value, hs)
	} else {
		t.hash = make(map[Value]Value)
	}

	return t
}

// Meta returns the table's metatable, which may be nil.
func (tbl *Table) Meta() *Table {
	return tbl.meta
}

// SetMeta sets the table's metatable. Pass nil to clear it.
func (tbl *Table) SetMeta(meta *Table) {
	tbl.meta = meta
}

// normKey collapses float keys with exact integer values to int64 keys, so
// t[1] and t[1.0] address the same slot. NaN and nil normalize to nil, which
// no key position ever holds.
func normKey(k Value) Value {
	switch idx := k.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(idx) {
			return nil
		}
		if i := int64(idx); float64(i) == idx {
			return i
		}
		return idx
	default:
		return k
	}
}

// Exists returns true if the given key exists in the table.
func (tbl *Table) Exists(k Value) bool {
	return tbl.GetRaw(k) != nil
}

// GetRaw reads a key without consulting any metamethods. Missing keys read
// as nil.
func (tbl *Table) GetRaw(k Value) Value {
	k = normKey(k)
	if k == nil {
		return nil
	}

	if i, ok := k.(int64); ok {
		if a := i - 1; 0 <= a && a < int64(len(tbl.array)) {
			return tbl.array[a]
		}
	}
	return tbl.hash[k]
}

// SetRaw writes a key without consulting any metamethods. Setting a key to
// nil removes it. Writing to a nil or NaN key is silently dropped.
func (tbl *Table) SetRaw(k, v Value) {
	k = normKey(k)
	if k == nil {
		return
	}

	if i, ok := k.(int64); ok {
		a := i - 1
		if 0 <= a && a < int64(len(tbl.array)) {
			tbl.array[a] = v
			if v == nil && a < int64(tbl.length) {
				tbl.length = int(a)
			} else if v != nil && a == int64(tbl.length) {
				tbl.length = -1
			}
			return
		}

		// Grow the array part only for the append case, anything else
		// goes to the hash part.
		if v != nil && a == int64(len(tbl.array)) {
			tbl.array = append(tbl.array, v)
			tbl.length = -1

			// Migrate any hash keys that now continue the sequence.
			for n := int64(len(tbl.array)) + 1; ; n++ {
				hv, ok := tbl.hash[n]
				if !ok {
					break
				}
				tbl.array = append(tbl.array, hv)
				delete(tbl.hash, n)
			}
			return
		}
	}

	if v == nil {
		delete(tbl.hash, k)
		return
	}
	tbl.hash[k] = v
}

// Length returns a sequence border of the table, the raw "#" result.
func (tbl *Table) Length() int64 {
	if tbl.length >= 0 {
		return int64(tbl.length)
	}

	l := 0
	for l < len(tbl.array) && tbl.array[l] != nil {
		l++
	}
	if l == len(tbl.array) {
		// The border may extend into the hash part.
		for tbl.hash[int64(l+1)] != nil {
			l++
		}
	}
	tbl.length = l
	return int64(l)
}
