/*
Copyright 2015-2016 by Milo Christiansen

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

package luautil

import "strings"
import "strconv"

// ConvNumber converts a string to a number using the language's numeric
// literal grammar: decimal and hexadecimal integers, decimal floats with an
// optional exponent, and hexadecimal floats with an optional binary exponent.
// With both forms requested the integer grammar is tried first.
func ConvNumber(s string, integer, float bool) (valid, iok bool, i int64, f float64) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return false, false, 0, 0.0
	}

	if integer {
		if i, ok := convInt(s); ok {
			return true, true, i, 0.0
		}
	}
	if float {
		if f, ok := convFloat(s); ok {
			return true, false, 0, f
		}
	}
	return false, false, 0, 0.0
}

func cton(r byte) byte {
	if r >= 'a' && r <= 'f' {
		return r - 'a' + 10
	} else if r >= 'A' && r <= 'F' {
		return r - 'A' + 10
	} else if r >= '0' && r <= '9' {
		return r - '0'
	}
	panic("IMPOSSIBLE!")
}

func convInt(s string) (int64, bool) {
	a := int64(0)
	i := 0
	empty := true

	neg := false
	if len(s) >= 1 && s[0] == '-' {
		neg = true
		i += 1
	}

	hex := false
	if len(s) >= i+2 && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') {
		i += 2
		hex = true
	}

	for ; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' || hex && (s[i] >= 'a' && s[i] <= 'f' || s[i] >= 'A' && s[i] <= 'F') {
			if hex {
				a = a*16 + int64(cton(s[i]))
			} else {
				a = a*10 + int64(cton(s[i]))
			}
			empty = false
			continue
		}
		return 0, false // Invalid character
	}

	if empty {
		return 0, false
	}
	if neg {
		return -a, true
	}
	return a, true
}

func convFloat(s string) (float64, bool) {
	// strconv.ParseFloat handles the hexadecimal mantissa/binary exponent
	// form, but it requires the exponent; the language makes it optional.
	if isHexLit(s) && !strings.ContainsAny(s, "pP") {
		s += "p0"
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isHexLit(s string) bool {
	if len(s) >= 1 && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
