package proxy

import (
	"encoding/json"
	"testing"
)

func TestMessageIsRequest(t *testing.T) {
	m := Message{Method: "tools/call", ID: json.RawMessage("1")}
	if !m.IsRequest() {
		t.Fatal("expected IsRequest true")
	}
	if m.IsNotification() || m.IsResponse() {
		t.Fatal("a request must not also be a notification or response")
	}
}

func TestMessageIsNotification(t *testing.T) {
	m := Message{Method: "notifications/cancelled"}
	if !m.IsNotification() {
		t.Fatal("expected IsNotification true")
	}
	if m.IsRequest() || m.IsResponse() {
		t.Fatal("a notification must not also be a request or response")
	}
}

func TestMessageIsResponse(t *testing.T) {
	m := Message{ID: json.RawMessage("1"), Result: json.RawMessage("{}")}
	if !m.IsResponse() {
		t.Fatal("expected IsResponse true")
	}
	if m.IsRequest() || m.IsNotification() {
		t.Fatal("a response must not also be a request or notification")
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(json.RawMessage("7"), ErrCodeRequestTimeout, "timed out")
	if resp.Error == nil || resp.Error.Code != ErrCodeRequestTimeout || resp.Error.Message != "timed out" {
		t.Fatalf("resp = %+v", resp)
	}
	if string(resp.ID) != "7" {
		t.Fatalf("id = %s", resp.ID)
	}
}

func TestNewNotification(t *testing.T) {
	n, err := NewNotification("notifications/cancelled", CancelledParams{RequestID: json.RawMessage("1"), Reason: "timeout"})
	if err != nil {
		t.Fatalf("NewNotification: %v", err)
	}
	if n.Method != "notifications/cancelled" || n.ID != nil {
		t.Fatalf("n = %+v", n)
	}
	var params CancelledParams
	if err := json.Unmarshal(n.Params, &params); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	if params.Reason != "timeout" || string(params.RequestID) != "1" {
		t.Fatalf("params = %+v", params)
	}
}
