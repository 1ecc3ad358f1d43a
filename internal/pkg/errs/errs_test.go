package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNewErrorKnownCode(t *testing.T) {
	err := NewError(ErrNotFriends)

	if err.Code != ErrNotFriends || err.Message != "Not friends with target user" {
		t.Fatalf("unexpected error %+v", err)
	}
	if err.Status != http.StatusOK {
		t.Fatalf("expected default status 200, got %d", err.Status)
	}
}

func TestNewErrorUnknownCodeFallsBack(t *testing.T) {
	err := NewError(424242)

	if err.Code != ErrUnknown || err.Status != http.StatusInternalServerError {
		t.Fatalf("expected ErrUnknown fallback, got %+v", err)
	}
}

func TestNewErrorReturnsCopies(t *testing.T) {
	a := NewError(ErrSendToSelf)
	a.Message = "mutated"

	if b := NewError(ErrSendToSelf); b.Message == "mutated" {
		t.Fatal("NewError must not share the template")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("route: %w", NewError(ErrRecipientOffline))

	if !errors.Is(wrapped, NewError(ErrRecipientOffline)) {
		t.Fatal("expected wrapped error to match by code")
	}
	if errors.Is(wrapped, NewError(ErrNotFriends)) {
		t.Fatal("different codes must not match")
	}
	if CodeOf(wrapped) != ErrRecipientOffline {
		t.Fatalf("unexpected code %d", CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != ErrUnknown {
		t.Fatal("plain errors map to ErrUnknown")
	}
}
