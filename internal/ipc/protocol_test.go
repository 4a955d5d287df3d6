package ipc

import (
	"encoding/json"
	"testing"
)

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"command":"SPLIT","payload":{"path":"/tmp/clip.mp4","monitor":1}}` + "\n"))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Command != CommandSplit {
		t.Errorf("command = %q, want SPLIT", req.Command)
	}

	var payload SplitPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Path != "/tmp/clip.mp4" || payload.Monitor == nil || *payload.Monitor != 1 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestParseRequest_Invalid(t *testing.T) {
	if _, err := ParseRequest([]byte("not json\n")); err == nil {
		t.Fatal("expected error for malformed request")
	}
}

func TestSplitPayloadOmittedMonitorMeansAll(t *testing.T) {
	var payload SplitPayload
	if err := json.Unmarshal([]byte(`{"path":"/tmp/clip.mp4"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Monitor != nil {
		t.Errorf("monitor = %v, want nil", *payload.Monitor)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp, err := NewOKResponse(SaveData{Path: "/videos/rewind-clip.mp4"})
	if err != nil {
		t.Fatalf("NewOKResponse: %v", err)
	}

	raw, err := resp.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Status != "OK" {
		t.Errorf("status = %q, want OK", decoded.Status)
	}

	var data SaveData
	if err := json.Unmarshal(decoded.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Path != "/videos/rewind-clip.mp4" {
		t.Errorf("path = %q", data.Path)
	}
}

func TestErrorResponse(t *testing.T) {
	resp := NewErrorResponse("replay buffer is not running")
	if resp.Status != "ERROR" || resp.Error == "" {
		t.Errorf("response = %+v", resp)
	}
}
