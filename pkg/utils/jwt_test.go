package utils

import (
	"testing"
	"time"
)

func TestJWT_RoundTrip(t *testing.T) {
	token, err := GenerateJWT("uid-1", "Dana", "dana@example.com", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	claims, err := ValidateJWT(token, "secret")
	if err != nil {
		t.Fatalf("ValidateJWT failed: %v", err)
	}
	if claims.UserID != "uid-1" || claims.Name != "Dana" {
		t.Errorf("Unexpected claims %+v", claims)
	}
}

func TestValidateJWT_Rejects(t *testing.T) {
	valid, _ := GenerateJWT("uid-1", "", "", "secret", time.Hour)
	expired, _ := GenerateJWT("uid-1", "", "", "secret", -time.Minute)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{name: "wrong secret", token: valid, secret: "other"},
		{name: "expired", token: expired, secret: "secret"},
		{name: "garbage", token: "not.a.token", secret: "secret"},
		{name: "no secret configured", token: valid, secret: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateJWT(tt.token, tt.secret); err == nil {
				t.Error("Expected validation to fail")
			}
		})
	}
}
