package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestDecodeAdminToken(t *testing.T) {
	raw := sign(t, jwt.MapClaims{"sub": "a@b.com", "role": "ADMIN"})

	claims, err := NewCodec().Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.Subject != "a@b.com" || claims.Role != "ADMIN" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.IsAdmin() {
		t.Fatal("expected admin role")
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	raw := sign(t, jwt.MapClaims{"sub": "user@example.com", "role": "USER"})
	codec := NewCodec()

	first, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := codec.Decode(raw)
		if err != nil {
			t.Fatalf("decode %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("decode %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":       "",
		"garbage":     "garbage",
		"two parts":   "abc.def",
		"bad payload": "eyJhbGciOiJIUzI1NiJ9.!!!.sig",
		"no subject":  sign(t, jwt.MapClaims{"role": "USER"}),
	}
	codec := NewCodec()
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decode(raw)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestDecodeExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	raw := sign(t, jwt.MapClaims{"sub": "a@b.com", "role": "USER", "exp": now.Add(-time.Minute).Unix()})

	_, err := NewCodec(WithClock(func() time.Time { return now })).Decode(raw)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	fresh := sign(t, jwt.MapClaims{"sub": "a@b.com", "exp": now.Add(time.Hour).Unix()})
	claims, err := NewCodec(WithClock(func() time.Time { return now })).Decode(fresh)
	if err != nil {
		t.Fatalf("decode fresh token: %v", err)
	}
	if claims.IsAdmin() {
		t.Fatal("token without role must not be admin")
	}
}
