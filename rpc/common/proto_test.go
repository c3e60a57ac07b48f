package common

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ValentinKolb/dIdx/lib/store"
)

func TestMessageTypeNames(t *testing.T) {
	seen := make(map[string]MessageType)
	for typ := MsgTUnknown; typ < msgTCount; typ++ {
		name := typ.String()
		if name == "" {
			t.Fatalf("message type %d has no name", typ)
		}
		if other, ok := seen[name]; ok {
			t.Fatalf("message types %d and %d share the name %q", other, typ, name)
		}
		seen[name] = typ

		parsed, err := ParseMessageType(name)
		if err != nil || parsed != typ {
			t.Errorf("ParseMessageType(%q) = %d, %v, want %d", name, parsed, err, typ)
		}
	}

	if MessageType(200).String() != "unknown" {
		t.Errorf("out of range type should be unknown")
	}
	if _, err := ParseMessageType("set"); err == nil {
		t.Errorf("expected error for unknown name")
	}
}

func TestMessageTypeJSON(t *testing.T) {
	data, err := json.Marshal(NewIdxRangeRequest(5, 10, 3))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"msg_type":"idx_range","from":5,"to":10,"limit":3}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.MsgType != MsgTIdxRange || msg.From != 5 || msg.To != 10 || msg.Limit != 3 {
		t.Errorf("unexpected message %+v", msg)
	}

	if err := json.Unmarshal([]byte(`{"msg_type":"nope"}`), &msg); err == nil {
		t.Errorf("expected error for unknown message type")
	}
}

func TestResponseErrorCode(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
		code store.RetCode
	}{
		{"success", NewIdxAddResponse(nil), store.RetCSuccess},
		{"duplicate", NewIdxAddResponse(store.NewError(store.RetCDuplicateKey, "5")), store.RetCDuplicateKey},
		{"plain error", NewIdxHasResponse(false, errors.New("boom")), store.RetCInternalError},
		{"error response", NewErrorResponse(store.NewError(store.RetCInvalidOperation, "bad")), store.RetCInvalidOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if store.RetCode(tt.msg.Code) != tt.code {
				t.Errorf("Code = %d, want %d", tt.msg.Code, tt.code)
			}
			if (tt.code == store.RetCSuccess) != (tt.msg.Err == "") {
				t.Errorf("Err = %q does not match code %s", tt.msg.Err, tt.code)
			}
		})
	}
}
