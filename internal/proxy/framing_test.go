package proxy

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestFrameReaderDetectsLineFraming(t *testing.T) {
	r := NewFrameReader(strings.NewReader("{\"jsonrpc\":\"2.0\"}\n"))
	body, framing, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if framing != FramingLine {
		t.Fatalf("framing = %v, want FramingLine", framing)
	}
	if string(body) != `{"jsonrpc":"2.0"}` {
		t.Fatalf("body = %q", body)
	}
}

func TestFrameReaderDetectsContentLengthFraming(t *testing.T) {
	payload := `{"jsonrpc":"2.0","id":1}`
	input := "Content-Length: " + itoa(len(payload)) + "\r\n\r\n" + payload
	r := NewFrameReader(strings.NewReader(input))
	body, framing, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if framing != FramingContentLength {
		t.Fatalf("framing = %v, want FramingContentLength", framing)
	}
	if string(body) != payload {
		t.Fatalf("body = %q, want %q", body, payload)
	}
}

func TestFrameReaderSkipsBlankLinesBetweenLineMessages(t *testing.T) {
	r := NewFrameReader(strings.NewReader("\n\n{\"a\":1}\n"))
	body, framing, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if framing != FramingLine {
		t.Fatalf("framing = %v, want FramingLine", framing)
	}
	if string(body) != `{"a":1}` {
		t.Fatalf("body = %q", body)
	}
}

func TestFrameReaderReadsMultipleMessagesInSequence(t *testing.T) {
	r := NewFrameReader(strings.NewReader("{\"a\":1}\n{\"a\":2}\n"))
	first, _, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("first ReadMessage: %v", err)
	}
	second, _, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("second ReadMessage: %v", err)
	}
	if string(first) != `{"a":1}` || string(second) != `{"a":2}` {
		t.Fatalf("got %q, %q", first, second)
	}
}

func TestFrameReaderReturnsEOFAtStreamEnd(t *testing.T) {
	r := NewFrameReader(strings.NewReader(""))
	_, _, err := r.ReadMessage()
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestWriteFramedLine(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFramed(&buf, []byte(`{"a":1}`), FramingLine); err != nil {
		t.Fatalf("WriteFramed: %v", err)
	}
	if buf.String() != "{\"a\":1}\n" {
		t.Fatalf("buf = %q", buf.String())
	}
}

func TestWriteFramedContentLength(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFramed(&buf, []byte(`{"a":1}`), FramingContentLength); err != nil {
		t.Fatalf("WriteFramed: %v", err)
	}
	want := "Content-Length: 7\r\n\r\n{\"a\":1}"
	if buf.String() != want {
		t.Fatalf("buf = %q, want %q", buf.String(), want)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
