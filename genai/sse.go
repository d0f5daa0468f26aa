package genai

import (
	"bytes"
	"errors"
	"io"
)

// frameDecoder reassembles SSE frames from arbitrarily split byte chunks.
// Only the data field is kept; comments, id, event, retry and unknown fields
// are skipped, and frames without any data line are dropped.
type frameDecoder struct {
	buf []byte

	// scan is where the unfinished last line of buf starts; earlier lines are
	// known to be non-blank.
	scan int

	dropped int
}

// Feed appends b and returns the data of every frame it completes.
func (d *frameDecoder) Feed(b []byte) [][]byte {
	d.buf = append(d.buf, b...)

	var out [][]byte
	consumed := 0
	for {
		end, next, ok := frameBoundary(d.buf[consumed:], d.scan)
		if !ok {
			d.scan = next
			break
		}
		if data, ok := parseFrame(d.buf[consumed : consumed+end]); ok {
			out = append(out, data)
		} else if end > 0 {
			d.dropped++
		}
		consumed += next
		d.scan = 0
	}
	if consumed > 0 {
		d.buf = append(d.buf[:0], d.buf[consumed:]...)
	}
	return out
}

// Flush is called at end of stream. A trailing frame that lacks its closing
// blank line is still delivered if it carries data.
func (d *frameDecoder) Flush() ([]byte, bool) {
	rest := d.buf
	d.Reset()
	if len(bytes.TrimSpace(rest)) == 0 {
		return nil, false
	}
	data, ok := parseFrame(rest)
	if !ok {
		d.dropped++
	}
	return data, ok
}

// Reset discards any partially buffered frame.
func (d *frameDecoder) Reset() {
	d.buf = nil
	d.scan = 0
}

// frameBoundary finds the first blank line in b, starting the search at
// from. end is where the frame's content stops; next is where the following
// frame starts. When no blank line exists, next is the start of the
// unfinished last line.
func frameBoundary(b []byte, from int) (end, next int, ok bool) {
	start := from
	for {
		i := bytes.IndexByte(b[start:], '\n')
		if i < 0 {
			return 0, start, false
		}
		line := b[start : start+i]
		if len(line) == 0 || (len(line) == 1 && line[0] == '\r') {
			return start, start + i + 1, true
		}
		start += i + 1
	}
}

func parseFrame(block []byte) ([]byte, bool) {
	var (
		data  []byte
		found bool
	)
	for len(block) > 0 {
		var line []byte
		if i := bytes.IndexByte(block, '\n'); i >= 0 {
			line, block = block[:i], block[i+1:]
		} else {
			line, block = block, nil
		}
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 || line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], line[i+1:]
			if len(value) > 0 && value[0] == ' ' {
				value = value[1:]
			}
		}
		if string(field) != "data" {
			continue
		}
		if found {
			data = append(data, '\n')
		}
		data = append(data, value...)
		found = true
	}
	if found && data == nil {
		data = []byte{}
	}
	return data, found
}

// frameReader pulls frames from r, reading only when no decoded frame is
// waiting.
type frameReader struct {
	r   io.Reader
	dec frameDecoder
	buf []byte

	pending [][]byte
	eof     bool
	err     error
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: r, buf: make([]byte, 32*1024)}
}

// Next returns the next frame's data, io.EOF once the body is exhausted, or
// the read error that stopped it. Frames decoded before a read error are
// still returned first.
func (fr *frameReader) Next() ([]byte, error) {
	for len(fr.pending) == 0 {
		if fr.err != nil {
			return nil, fr.err
		}
		if fr.eof {
			return nil, io.EOF
		}
		n, err := fr.r.Read(fr.buf)
		if n > 0 {
			fr.pending = append(fr.pending, fr.dec.Feed(fr.buf[:n])...)
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			fr.eof = true
			if data, ok := fr.dec.Flush(); ok {
				fr.pending = append(fr.pending, data)
			}
		default:
			fr.err = err
			fr.dec.Reset()
		}
	}
	data := fr.pending[0]
	fr.pending[0] = nil
	fr.pending = fr.pending[1:]
	return data, nil
}

// Discard drops everything buffered.
func (fr *frameReader) Discard() {
	fr.pending = nil
	fr.dec.Reset()
}

// Dropped counts frames that carried no data field.
func (fr *frameReader) Dropped() int { return fr.dec.dropped }
