package connector

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  &Error{Kind: KindTransport, Message: "connection refused"},
			want: "connection refused",
		},
		{
			name: "with code and status",
			err:  &Error{Kind: KindAPI, Message: "invalid VQL syntax", Code: "INVALID_QUERY", HTTPStatus: 200},
			want: "invalid VQL syntax (INVALID_QUERY, http 200)",
		},
		{
			name: "with status only",
			err:  &Error{Kind: KindHTTP, Message: "unauthorized", HTTPStatus: 401},
			want: "unauthorized (http 401)",
		},
		{
			name: "with code only",
			err:  &Error{Kind: KindValidation, Message: "bad tag", Code: "400"},
			want: "bad tag (400)",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.err.Error(); got != tc.want {
				t.Fatalf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestKindHelpers(t *testing.T) {
	t.Parallel()

	notFound := NotFoundf("no Contacts record found with email %s", "x@y.com")
	if !IsNotFound(notFound) {
		t.Fatal("IsNotFound() = false for a not-found error")
	}
	if IsValidation(notFound) {
		t.Fatal("IsValidation() = true for a not-found error")
	}

	wrapped := fmt.Errorf("tool layer: %w", Validationf("score out of range"))
	if !IsValidation(wrapped) {
		t.Fatal("IsValidation() must see through wrapping")
	}

	if IsNotFound(errors.New("plain")) {
		t.Fatal("IsNotFound() = true for a plain error")
	}
}

func TestAsErrorWrapsPlainErrors(t *testing.T) {
	t.Parallel()

	ce := AsError(errors.New("dial tcp: timeout"))
	if ce.Kind != KindTransport {
		t.Fatalf("kind = %q, want %q", ce.Kind, KindTransport)
	}

	original := HTTPStatusf(500, "boom")
	if got := AsError(fmt.Errorf("wrapped: %w", original)); got != original {
		t.Fatalf("AsError() = %v, want the original *Error back", got)
	}
}

func TestStatusDiscriminator(t *testing.T) {
	t.Parallel()

	if got := Status(nil); got != StatusSuccess {
		t.Fatalf("Status(nil) = %q, want %q", got, StatusSuccess)
	}
	if got := Status(NotFoundf("nope")); got != StatusNotFound {
		t.Fatalf("Status(not-found) = %q, want %q", got, StatusNotFound)
	}
	for _, err := range []error{
		Transportf("down"),
		HTTPStatusf(500, "boom"),
		APIError("X", "y", 200),
		Validationf("bad"),
		errors.New("plain"),
	} {
		if got := Status(err); got != StatusError {
			t.Fatalf("Status(%v) = %q, want %q", err, got, StatusError)
		}
	}
}
