package rpc

import (
	"encoding/json"
	"testing"
)

func TestOkRendersStatusOkBody(t *testing.T) {
	resp := ok(7, map[string]string{"hello": "world"})
	if resp.StatusCode != 200 {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var decoded response
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if decoded.ID != 7 || decoded.Status != "ok" || decoded.Error != nil {
		t.Fatalf("unexpected response envelope: %+v", decoded)
	}
}

func TestErrResponseAlwaysUsesStatus500(t *testing.T) {
	resp := errResponse(3, 404, "Method does not exist")
	if resp.StatusCode != 500 {
		t.Fatalf("expected a fixed 500 status code, got %d", resp.StatusCode)
	}

	var decoded response
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if decoded.Status != "error" || decoded.Error == nil {
		t.Fatalf("expected an error envelope, got %+v", decoded)
	}
	if decoded.Error.Code != 404 || decoded.Error.Message != "Method does not exist" {
		t.Fatalf("unexpected error payload: %+v", decoded.Error)
	}
}
