package favorites

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/Sternrassler/spacex-explorer/internal/testutil"
	"github.com/rs/zerolog"
)

func TestFilePort(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "favorites.json")
	port := NewFilePort(path)

	data, err := port.Load(ctx)
	if err != nil || data != nil {
		t.Fatalf("Load() on missing file = %q, %v; want nil, nil", data, err)
	}

	store := NewStore(port, zerolog.Nop())
	if _, err := store.Toggle(ctx, "launch-1"); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(raw) != `["launch-1"]` {
		t.Errorf("file content = %s", raw)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != filePerms {
		t.Errorf("file mode = %v, want %v", info.Mode().Perm(), os.FileMode(filePerms))
	}

	reopened, err := Open(ctx, NewFilePort(path), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !reopened.Has("launch-1") {
		t.Error("favorite not persisted")
	}
}

func TestFilePort_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "favorites.json")

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store := NewStore(NewFilePort(path), zerolog.Nop())
			if _, err := store.Toggle(ctx, "launch-"+strconv.Itoa(i)); err != nil {
				t.Errorf("Toggle() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	store, err := Open(ctx, NewFilePort(path), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if store.Count() != n {
		t.Errorf("Count() = %d, want %d", store.Count(), n)
	}
}

func TestFilePort_UpdateWithoutChange(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "favorites.json")
	port := NewFilePort(path)

	err := port.Update(ctx, func(data []byte) ([]byte, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected no file to be written, got %v", err)
	}
}

func TestRedisPort(t *testing.T) {
	client := testutil.LocalRedis(t)
	ctx := context.Background()

	alice := NewRedisPort(client, "alice")
	bob := NewRedisPort(client, "bob")
	if alice.Key() != "spacex-favorites:alice" {
		t.Errorf("Key() = %q", alice.Key())
	}

	store, err := Open(ctx, alice, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	store.Toggle(ctx, "launch-9")

	other, err := Open(ctx, bob, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if other.Count() != 0 {
		t.Error("sessions must not share favorites")
	}

	again, _ := Open(ctx, alice, zerolog.Nop())
	if !again.Has("launch-9") {
		t.Error("favorite not persisted in Redis")
	}
	if ttl := client.TTL(ctx, alice.Key()).Val(); ttl != -1 {
		t.Errorf("TTL = %v, want no expiry", ttl)
	}

	const n = 5
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tab := NewStore(NewRedisPort(client, "bob"), zerolog.Nop())
			if _, err := tab.Toggle(ctx, "launch-"+strconv.Itoa(i)); err != nil {
				t.Errorf("Toggle() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if bobs, _ := Open(ctx, bob, zerolog.Nop()); bobs.Count() != n {
		t.Errorf("Count() = %d, want %d", bobs.Count(), n)
	}
}
