package categories

import (
	"context"
	"errors"
	"testing"
	"time"

	"impegni/internal/core"
	"impegni/internal/storage"
)

type fakeGetter struct {
	known map[int64]string
	calls int
	err   error
}

func (f *fakeGetter) GetCategory(_ context.Context, owner string, id int64) (storage.Category, error) {
	f.calls++
	if f.err != nil {
		return storage.Category{}, f.err
	}
	name, ok := f.known[id]
	if !ok || owner != "alice" {
		return storage.Category{}, core.NotFound("category", id)
	}
	return storage.Category{ID: id, Owner: owner, Name: name}, nil
}

func TestStoreExists(t *testing.T) {
	getter := &fakeGetter{known: map[int64]string{1: "home"}}
	dir := NewStore(getter)

	tests := []struct {
		name  string
		owner string
		id    int64
		want  bool
	}{
		{"known", "alice", 1, true},
		{"unknown id", "alice", 2, false},
		{"other owner", "bob", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dir.Exists(context.Background(), tt.owner, tt.id)
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoreExistsPropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	dir := NewStore(&fakeGetter{err: boom})
	if _, err := dir.Exists(context.Background(), "alice", 1); !errors.Is(err, boom) {
		t.Errorf("Exists() error = %v, want %v", err, boom)
	}
}

func TestCachedOnlyRemembersHits(t *testing.T) {
	getter := &fakeGetter{known: map[int64]string{1: "home"}}
	dir := NewCached(NewStore(getter), 10, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := dir.Exists(ctx, "alice", 1); !ok {
			t.Fatal("Exists(1) = false, want true")
		}
		if ok, _ := dir.Exists(ctx, "alice", 2); ok {
			t.Fatal("Exists(2) = true, want false")
		}
	}
	// one lookup for the hit, three for the uncached miss
	if getter.calls != 4 {
		t.Errorf("getter calls = %d, want 4", getter.calls)
	}
}

func TestValidate(t *testing.T) {
	dir := NewStore(&fakeGetter{known: map[int64]string{1: "home"}})
	ctx := context.Background()
	one, two := int64(1), int64(2)

	if err := Validate(ctx, dir, "alice", nil); err != nil {
		t.Errorf("Validate(nil) = %v, want nil", err)
	}
	if err := Validate(ctx, nil, "alice", &two); err != nil {
		t.Errorf("Validate(no directory) = %v, want nil", err)
	}
	if err := Validate(ctx, dir, "alice", &one); err != nil {
		t.Errorf("Validate(1) = %v, want nil", err)
	}
	err := Validate(ctx, dir, "alice", &two)
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "category_id" {
		t.Errorf("Validate(2) = %v, want category_id validation error", err)
	}
}

func TestCachedPrune(t *testing.T) {
	getter := &fakeGetter{known: map[int64]string{1: "home", 2: "car"}}
	dir := NewCached(NewStore(getter), 10, time.Nanosecond)
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		if ok, _ := dir.Exists(ctx, "alice", id); !ok {
			t.Fatalf("Exists(%d) = false, want true", id)
		}
	}
	time.Sleep(time.Millisecond)

	if n := dir.Prune(); n != 2 {
		t.Errorf("Prune() = %d, want 2", n)
	}
	if n := dir.Prune(); n != 0 {
		t.Errorf("second Prune() = %d, want 0", n)
	}
}
