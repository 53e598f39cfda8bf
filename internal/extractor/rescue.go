package extractor

import "encoding/json"

type expect int

const (
	expectKeyOrClose expect = iota
	expectKey
	expectColon
	expectObjValue
	expectObjNext
	expectArrValueOrClose
	expectArrValue
	expectArrNext
)

type frame struct {
	closer byte
	state  expect
}

type cutPoint struct {
	pos     int
	suffix  string
	closers string
}

// BalanceTruncated rescues a document cut off mid-stream. It walks the text
// as JSON, remembering the last position where every open container held only
// complete members, and at the first invalid token or at end of input it cuts
// there and appends the missing closers. A value string cut off by the end of
// input is kept and closed. The result is either valid JSON or unchanged input.
func BalanceTruncated(s string) string {
	var stack []frame
	cut := cutPoint{pos: -1}
	rootDone := false

	mark := func(pos int, suffix string) {
		closers := make([]byte, 0, len(stack))
		for i := len(stack) - 1; i >= 0; i-- {
			closers = append(closers, stack[i].closer)
		}
		cut = cutPoint{pos: pos, suffix: suffix, closers: string(closers)}
	}
	// complete records a finished value ending at pos and returns true when
	// that value was the root.
	complete := func(pos int, suffix string) bool {
		if len(stack) == 0 {
			rootDone = true
			cut = cutPoint{pos: pos, suffix: suffix}
			return true
		}
		top := &stack[len(stack)-1]
		if top.closer == '}' {
			top.state = expectObjNext
		} else {
			top.state = expectArrNext
		}
		mark(pos, suffix)
		return false
	}
	expectingValue := func() bool {
		if len(stack) == 0 {
			return !rootDone
		}
		switch stack[len(stack)-1].state {
		case expectObjValue, expectArrValueOrClose, expectArrValue:
			return true
		}
		return false
	}

	i := 0
scan:
	for i < len(s) {
		c := s[i]
		if isSpace(c) {
			i++
			continue
		}
		if rootDone {
			break
		}

		if expectingValue() {
			if c == ']' && len(stack) > 0 && stack[len(stack)-1].state == expectArrValueOrClose {
				stack = stack[:len(stack)-1]
				i++
				if complete(i, "") {
					break scan
				}
				continue
			}
			switch c {
			case '{':
				stack = append(stack, frame{closer: '}', state: expectKeyOrClose})
				i++
				mark(i, "")
			case '[':
				stack = append(stack, frame{closer: ']', state: expectArrValueOrClose})
				i++
				mark(i, "")
			case '"':
				end, closed := scanString(s, i)
				if !closed {
					complete(openStringEnd(s, i), `"`)
					break scan
				}
				i = end
				if complete(i, "") {
					break scan
				}
			default:
				j := i
				for j < len(s) && isScalarByte(s[j]) {
					j++
				}
				if j == i || !validScalar(s[i:j]) {
					break scan
				}
				i = j
				if complete(i, "") {
					break scan
				}
			}
			continue
		}

		top := &stack[len(stack)-1]
		switch top.state {
		case expectKeyOrClose, expectKey:
			if c == '}' && top.state == expectKeyOrClose {
				stack = stack[:len(stack)-1]
				i++
				if complete(i, "") {
					break scan
				}
				continue
			}
			if c != '"' {
				break scan
			}
			end, closed := scanString(s, i)
			if !closed {
				break scan
			}
			i = end
			top.state = expectColon
		case expectColon:
			if c != ':' {
				break scan
			}
			i++
			top.state = expectObjValue
		case expectObjNext, expectArrNext:
			switch {
			case c == ',' && top.state == expectObjNext:
				top.state = expectKey
			case c == ',':
				top.state = expectArrValue
			case c == top.closer:
				stack = stack[:len(stack)-1]
				i++
				if complete(i, "") {
					break scan
				}
				continue
			default:
				break scan
			}
			i++
		}
	}

	if cut.pos < 0 {
		return s
	}
	return s[:cut.pos] + cut.suffix + cut.closers
}

// scanString returns the index just past the closing quote of the string
// starting at s[start], or len(s) and false when the input ends first.
func scanString(s string, start int) (int, bool) {
	for j := start + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j + 1, true
		}
	}
	return len(s), false
}

// openStringEnd finds where an unterminated string can be closed, dropping an
// escape sequence that was cut in half.
func openStringEnd(s string, start int) int {
	j := start + 1
	for j < len(s) {
		if s[j] != '\\' {
			j++
			continue
		}
		if j+1 >= len(s) {
			return j
		}
		if s[j+1] == 'u' {
			if j+6 > len(s) {
				return j
			}
			j += 6
			continue
		}
		j += 2
	}
	return len(s)
}

func isScalarByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' || c == '+' || c == '.' || c == 'E'
}

func validScalar(tok string) bool {
	switch tok {
	case "true", "false", "null":
		return true
	}
	if tok == "" || (tok[0] != '-' && (tok[0] < '0' || tok[0] > '9')) {
		return false
	}
	return json.Valid([]byte(tok))
}
