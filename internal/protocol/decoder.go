// Package protocol turns the agent proxy's chunked response body into classified
// stream events. The wire format is newline-delimited text; relevant lines carry
// the "data: " prefix followed by a JSON object.
package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/rs/zerolog"
)

const EnvelopePrefix = "data: "

const maxLoggedLineBytes = 256

// Payload is one decoded frame body, kept loosely typed until classification.
type Payload map[string]json.RawMessage

type Frame struct {
	Line    string
	Payload Payload
}

// Decoder reassembles lines across chunk boundaries. Buffering happens on raw
// bytes and a line is only converted to text once its terminator has arrived, so
// a multi-byte UTF-8 sequence split between two chunks is never corrupted.
type Decoder struct {
	buf    []byte
	logger zerolog.Logger
}

func NewDecoder(logger zerolog.Logger) *Decoder {
	return &Decoder{logger: logger}
}

func (d *Decoder) Feed(chunk []byte) []Frame {
	if len(chunk) == 0 {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	start := 0
	for {
		idx := bytes.IndexByte(d.buf[start:], '\n')
		if idx < 0 {
			break
		}
		line := string(d.buf[start : start+idx])
		start += idx + 1

		if frame, ok := d.parseLine(line); ok {
			frames = append(frames, frame)
		}
	}

	if start > 0 {
		n := copy(d.buf, d.buf[start:])
		d.buf = d.buf[:n]
	}

	return frames
}

// Flush parses whatever is left after the last line terminator and clears the buffer.
func (d *Decoder) Flush() []Frame {
	if len(d.buf) == 0 {
		return nil
	}
	line := string(d.buf)
	d.buf = d.buf[:0]

	frame, ok := d.parseLine(line)
	if !ok {
		return nil
	}

	return []Frame{frame}
}

// buffered reports how many bytes are waiting for a line terminator.
func (d *Decoder) buffered() int {
	return len(d.buf)
}

func (d *Decoder) parseLine(line string) (Frame, bool) {
	if len(line) < len(EnvelopePrefix) || line[:len(EnvelopePrefix)] != EnvelopePrefix {
		return Frame{}, false
	}

	var payload Payload
	if err := json.Unmarshal([]byte(line[len(EnvelopePrefix):]), &payload); err != nil {
		d.logger.Debug().Err(err).Str("line", truncate(line)).Msg("dropping malformed frame")
		return Frame{}, false
	}
	if payload == nil {
		d.logger.Debug().Str("line", truncate(line)).Msg("dropping null frame")
		return Frame{}, false
	}

	return Frame{Line: line, Payload: payload}, true
}

func truncate(line string) string {
	if len(line) <= maxLoggedLineBytes {
		return line
	}

	return line[:maxLoggedLineBytes] + "..."
}
