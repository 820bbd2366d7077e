package errcode

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestValidationJoinsMessages(t *testing.T) {
	err := Validation("label is required", "url must be a valid URL")
	if err.Status != http.StatusBadRequest || err.Code != CodeValidation {
		t.Fatalf("unexpected error %+v", err)
	}
	if err.Message != "label is required, url must be a valid URL" {
		t.Fatalf("unexpected message %q", err.Message)
	}
}

func TestFromUnwrapsChain(t *testing.T) {
	wrapped := fmt.Errorf("load profile: %w", ErrProfileNotFound)
	appErr, ok := From(wrapped)
	if !ok || appErr.Code != "PROFILE_NOT_FOUND" {
		t.Fatalf("expected PROFILE_NOT_FOUND, got %v", appErr)
	}
	if _, ok := From(errors.New("boom")); ok {
		t.Fatalf("plain error must not be recognised")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	custom := ErrSlugTaken.WithMessage("slug reserved")
	if !errors.Is(custom, ErrSlugTaken) {
		t.Fatalf("expected errors.Is to match by code")
	}
	if errors.Is(ErrInvalidToken, ErrInvalidLinkToken) {
		t.Fatalf("same code with different status must not match")
	}
}
