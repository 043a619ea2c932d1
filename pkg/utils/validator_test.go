package utils

import (
	"errors"
	"testing"
)

type sampleRequest struct {
	Action string `json:"action" validate:"required,oneof=park leave"`
	Plate  string `json:"plate" validate:"required_if=Action park,max=8"`
	Total  int    `json:"total" validate:"gt=0,lte=1000"`
}

func TestValidateStruct(t *testing.T) {
	if err := ValidateStruct(sampleRequest{Action: "leave", Total: 1}); err != nil {
		t.Errorf("Expected valid request, got %v", err)
	}

	err := ValidateStruct(sampleRequest{Action: "park", Total: 0})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected ValidationErrors, got %v", err)
	}
	fields := map[string]string{}
	for _, e := range verrs {
		fields[e.Field] = e.Message
	}
	if fields["plate"] != "is required" {
		t.Errorf("Expected plate required, got %q", fields["plate"])
	}
	if fields["total"] != "must be greater than 0" {
		t.Errorf("Expected total error, got %q", fields["total"])
	}

	err = ValidateStruct(sampleRequest{Action: "leave", Total: 1001})
	if !errors.As(err, &verrs) || len(verrs) != 1 || verrs[0].Message != "must be at most 1000" {
		t.Errorf("Expected upper bound error, got %v", err)
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"ops@example.com", true},
		{"ops@example", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidEmail(tt.email); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}
