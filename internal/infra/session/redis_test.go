package session

import (
	"encoding/base64"
	"testing"
)

func TestNewTokenIsRandomAndURLSafe(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 32; i++ {
		tok, err := NewToken()
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(tok)
		if err != nil || len(raw) != tokenSize {
			t.Fatalf("токен %q не base64url длиной %d", tok, tokenSize)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("повторяющийся токен %q", tok)
		}
		seen[tok] = struct{}{}
	}
}

func TestNewRedisStoreDefaultTTL(t *testing.T) {
	if s := NewRedisStore(nil, 0); s.ttl != Duration {
		t.Fatalf("ожидали %v, получили %v", Duration, s.ttl)
	}
}
