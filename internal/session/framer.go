package session

import "bytes"

var crlf = []byte("\r\n")

// Framer accumulates raw bytes and yields complete CR LF terminated
// lines.  It holds only unconsumed bytes: a line and its terminator are
// removed together when extracted.  The zero value is ready to use.
type Framer struct {
	buf []byte
}

// Append adds exactly p to the end of the accumulator.
func (f *Framer) Append(p []byte) {
	f.buf = append(f.buf, p...)
}

// Next extracts the first complete line, without its CR LF.  ok is false
// when no terminator is buffered; any partial line stays in place.  Empty
// lines are returned like any other so the caller decides what to skip.
func (f *Framer) Next() (line string, ok bool) {
	i := bytes.Index(f.buf, crlf)
	if i < 0 {
		return "", false
	}
	line = string(f.buf[:i])
	f.consume(i + len(crlf))
	return line, true
}

// Len reports how many unconsumed bytes are buffered.
func (f *Framer) Len() int { return len(f.buf) }

// Pending returns a copy of the unconsumed bytes.
func (f *Framer) Pending() []byte {
	return append([]byte(nil), f.buf...)
}

func (f *Framer) consume(n int) {
	rest := len(f.buf) - n
	if rest == 0 {
		// Release large backing arrays once drained.
		if cap(f.buf) > 4096 {
			f.buf = nil
		} else {
			f.buf = f.buf[:0]
		}
		return
	}
	copy(f.buf, f.buf[n:])
	f.buf = f.buf[:rest]
}
