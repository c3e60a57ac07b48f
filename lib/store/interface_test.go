package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ValentinKolb/dIdx/lib/db"
)

func TestFromDBError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want RetCode
	}{
		{"nil", nil, RetCSuccess},
		{"duplicate", db.ErrDuplicateKey, RetCDuplicateKey},
		{"wrapped duplicate", fmt.Errorf("add 5: %w", db.ErrDuplicateKey), RetCDuplicateKey},
		{"timeout", db.ErrTimeout, RetCTimeout},
		{"unsupported", db.ErrUnsupported, RetCUnsupportedOperation},
		{"other", errors.New("disk full"), RetCInternalError},
		{"store error", NewError(RetCInvalidOperation, "bad"), RetCInvalidOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromDBError(tt.err)
			if got := CodeOf(err); got != tt.want {
				t.Errorf("CodeOf(FromDBError(%v)) = %s, want %s", tt.err, got, tt.want)
			}
			if tt.err == nil && err != nil {
				t.Errorf("Expected nil error, got %v", err)
			}
		})
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !IsDuplicateKey(NewError(RetCDuplicateKey, "5")) {
		t.Error("Expected duplicate key error to be detected")
	}
	if IsDuplicateKey(nil) || IsDuplicateKey(errors.New("x")) {
		t.Error("Expected non duplicate errors to be rejected")
	}
}

func TestErrorString(t *testing.T) {
	err := NewError(RetCDuplicateKey, "key 5 already exists")
	want := "IndexStoreError (code DuplicateKey): key 5 already exists"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
