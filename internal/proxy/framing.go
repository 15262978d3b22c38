package proxy

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Framing classifies how one upstream message arrived, so the matching
// response (if any) can be encoded the same way.
type Framing int

const (
	// FramingLine means the message was a single newline-terminated JSON
	// object.
	FramingLine Framing = iota
	// FramingContentLength means the message arrived as
	// "Content-Length: <N>\r\n\r\n<body>".
	FramingContentLength
)

const contentLengthPrefix = "Content-Length:"

// FrameReader reads successive upstream messages, auto-detecting framing
// per message: a line beginning with
// "Content-Length: <N>" starts a header block terminated by a blank line,
// followed by exactly N body bytes; any other line is the message itself.
type FrameReader struct {
	r *bufio.Reader
}

// NewFrameReader wraps r for framed reads.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// ReadMessage returns the next message body and how it was framed. It
// returns io.EOF when the underlying stream is exhausted.
func (f *FrameReader) ReadMessage() ([]byte, Framing, error) {
	line, err := f.r.ReadString('\n')
	if err != nil && line == "" {
		return nil, FramingLine, err
	}
	trimmed := strings.TrimRight(line, "\r\n")

	if strings.HasPrefix(trimmed, contentLengthPrefix) {
		n, err := parseContentLength(trimmed)
		if err != nil {
			return nil, FramingContentLength, err
		}
		if err := consumeHeaderTail(f.r); err != nil {
			return nil, FramingContentLength, err
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(f.r, body); err != nil {
			return nil, FramingContentLength, err
		}
		return body, FramingContentLength, nil
	}

	// Not a Content-Length header: the buffered line is the message.
	if trimmed == "" {
		// Blank lines between messages are tolerated and skipped.
		return f.ReadMessage()
	}
	return []byte(trimmed), FramingLine, nil
}

func parseContentLength(headerLine string) (int, error) {
	value := strings.TrimSpace(strings.TrimPrefix(headerLine, contentLengthPrefix))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid Content-Length header %q: %w", headerLine, err)
	}
	return n, nil
}

// consumeHeaderTail reads any remaining header lines (there is normally
// none beyond Content-Length) up to and including the blank line that
// separates headers from the body.
func consumeHeaderTail(r *bufio.Reader) error {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		if strings.TrimRight(line, "\r\n") == "" {
			return nil
		}
	}
}

// WriteLineJSON writes data followed by a single "\n" and flushes, the
// framing always used for writes to the child downstream.
func WriteLineJSON(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n"))
	return err
}

// EncodeContentLength wraps data in the "Content-Length: <N>\r\n\r\n<body>"
// framing used for upstream responses when the originating request arrived
// that way.
func EncodeContentLength(data []byte) []byte {
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	out := make([]byte, 0, len(header)+len(data))
	out = append(out, header...)
	out = append(out, data...)
	return out
}

// WriteFramed writes data to w using framing: content-length wrapped if
// framing is FramingContentLength, else newline-delimited.
func WriteFramed(w io.Writer, data []byte, framing Framing) error {
	if framing == FramingContentLength {
		_, err := w.Write(EncodeContentLength(data))
		return err
	}
	return WriteLineJSON(w, data)
}
