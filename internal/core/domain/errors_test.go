package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestRemoteStatusErrorMessages(t *testing.T) {
	cases := map[int]string{
		http.StatusBadRequest:          MsgInvalidFormat,
		http.StatusForbidden:           MsgAccessDenied,
		http.StatusNotFound:            MsgVehicleNotFound,
		http.StatusTooManyRequests:     MsgRateLimited,
		http.StatusInternalServerError: MsgServiceUnavailable,
		http.StatusBadGateway:          MsgServiceUnavailable,
		http.StatusConflict:            MsgServiceUnavailable,
	}
	for status, want := range cases {
		err := RemoteStatusError(status, nil)
		if err.Kind != KindRemote || err.Status != status {
			t.Fatalf("unexpected error for %d: %+v", status, err)
		}
		if err.Message != want {
			t.Fatalf("status %d: expected %q, got %q", status, want, err.Message)
		}
	}
}

func TestKindOfSurvivesWrapping(t *testing.T) {
	base := NewError(KindNetwork, MsgNetworkFailure, errors.New("dial tcp: refused"))
	wrapped := fmt.Errorf("fetch vehicle: %w", base)

	if !IsKind(wrapped, KindNetwork) {
		t.Fatalf("expected network kind, got %q", KindOf(wrapped))
	}
	if UserMessage(wrapped) != MsgNetworkFailure {
		t.Fatalf("unexpected message %q", UserMessage(wrapped))
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected unknown kind for plain errors")
	}
	if UserMessage(errors.New("plain")) != MsgUnknown {
		t.Fatalf("expected generic message for plain errors")
	}
}
