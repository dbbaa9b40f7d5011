package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, err := m.Get(ctx, "k"); err != nil || string(got) != "v" {
		t.Fatalf("ожидали значение, получили %q %v", got, err)
	}
	now = now.Add(time.Minute)
	if _, err := m.Get(ctx, "k"); err != ErrMiss {
		t.Fatalf("ожидали промах после истечения, получили %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	type payload struct{ Name string }

	var out payload
	if ok, err := GetJSON(ctx, m, "p", &out); ok || err != nil {
		t.Fatalf("ожидали промах без ошибки, получили %v %v", ok, err)
	}
	if err := SetJSON(ctx, m, "p", payload{Name: "luna"}, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ok, err := GetJSON(ctx, m, "p", &out); !ok || err != nil || out.Name != "luna" {
		t.Fatalf("ожидали попадание, получили %v %v %+v", ok, err, out)
	}
	if err := m.Delete(ctx, "p"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := GetJSON(ctx, m, "p", &out); ok {
		t.Fatalf("ключ должен быть удалён")
	}
}
