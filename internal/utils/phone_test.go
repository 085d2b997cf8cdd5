package utils

import (
	"errors"
	"testing"
)

func TestPhoneDigits(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain digits", raw: "9876543210", want: "9876543210"},
		{name: "dashes", raw: "98765-43210", want: "9876543210"},
		{name: "spaces and parens", raw: "(98765) 432 10", want: "9876543210"},
		{name: "plus prefix", raw: "+919876543210", want: "919876543210"},
		{name: "letters dropped", raw: "98a76b543210", want: "9876543210"},
		{name: "empty", raw: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PhoneDigits(tt.raw); got != tt.want {
				t.Errorf("PhoneDigits(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain ten digits", raw: "9876543210", want: "+919876543210"},
		{name: "punctuation ignored", raw: "98765-43210", want: "+919876543210"},
		{name: "spaces ignored", raw: "98765 43210", want: "+919876543210"},
		{name: "nine digits", raw: "987654321", wantErr: true},
		{name: "eleven digits", raw: "98765432100", wantErr: true},
		{name: "already prefixed", raw: "+919876543210", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatPhone(tt.raw, "+91")
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPhone) {
					t.Fatalf("FormatPhone(%q) error = %v, want ErrInvalidPhone", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatPhone(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("FormatPhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatPhoneCountryCode(t *testing.T) {
	got, err := FormatPhone("5551234567", "+1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "+15551234567" {
		t.Errorf("got %q, want %q", got, "+15551234567")
	}
}
