package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCodeStrings(t *testing.T) {
	cases := map[ErrorCode]string{
		ErrNotFound:      "NotFound",
		ErrAlreadyClosed: "AlreadyClosed",
		ErrInvalidPath:   "InvalidPath",
		ErrCycleDetected: "CycleDetected",
		ErrMountTooDeep:  "MountTooDeep",
		ErrStaleMount:    "StaleMount",
		ErrNotExist:      "NotExist",
		ErrIsDirectory:   "IsDirectory",
		ErrWriteAborted:  "WriteAborted",
		ErrDriveClosed:   "DriveClosed",
	}
	for code, want := range cases {
		if got := code.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(code), got, want)
		}
	}
}

func TestCodeOfUnwrapsWrappedErrors(t *testing.T) {
	base := NewError(ErrNotExist, "a/b", "no entry")
	wrapped := fmt.Errorf("reading file: %w", base)

	if CodeOf(wrapped) != ErrNotExist {
		t.Errorf("CodeOf(wrapped) = %v, want NotExist", CodeOf(wrapped))
	}
	if !IsNotExist(wrapped) {
		t.Error("IsNotExist(wrapped) = false, want true")
	}
	if IsNotFound(wrapped) {
		t.Error("IsNotFound(wrapped) = true, want false")
	}
}

func TestErrorIsMatchesOnCode(t *testing.T) {
	a := NewError(ErrDriveClosed, "", "drive 7 is closed")
	b := NewError(ErrDriveClosed, "other", "different message")
	if !errors.Is(a, b) {
		t.Error("errors with equal codes should match")
	}
	c := NewError(ErrNotFound, "", "x")
	if errors.Is(a, c) {
		t.Error("errors with different codes should not match")
	}
}

func TestCodeOfForeignError(t *testing.T) {
	if CodeOf(errors.New("plain")) != 0 {
		t.Error("CodeOf(non-store error) should be 0")
	}
	if CodeOf(nil) != 0 {
		t.Error("CodeOf(nil) should be 0")
	}
}

func TestErrorMessageIncludesPath(t *testing.T) {
	err := NewError(ErrNotExist, "a/b/c", "no entry")
	want := `NotExist: no entry (path "a/b/c")`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
