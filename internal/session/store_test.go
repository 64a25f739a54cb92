package session

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/arcletproject/entari-console/internal/instance"
)

func ptr[T any](v T) *T { return &v }

// openTestDB creates a fresh console database in a temp directory and
// closes it when the test finishes.
func openTestDB(t *testing.T) *DBStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "console.db")
	db, err := OpenDB(Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testInstance(id int, name string) instance.Instance {
	return instance.Instance{
		ID:                id,
		Name:              name,
		Type:              "ws",
		Host:              "127.0.0.1",
		Port:              5140,
		IgnoreSelfMessage: true,
		LogLevel:          "INFO",
		Prefix:            "/",
		CreatedAt:         "2025-06-01T12:00:00Z",
		Filename:          name + ".yml",
		State:             instance.StateStopped,
		Plugins:           []string{},
	}
}

func TestSetAuthDataReplacesState(t *testing.T) {
	store, err := New(nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	list := []instance.Instance{testInstance(1, "alpha")}
	store.SetAuthData("tok-1", UserProfile{Name: "Entari", Email: "e@example.com"}, list)

	if got := store.Token(); got != "tok-1" {
		t.Errorf("token: got %q, want tok-1", got)
	}
	user, ok := store.User()
	if !ok || user.Name != "Entari" || user.Email != "e@example.com" {
		t.Errorf("user: got %+v ok=%v", user, ok)
	}
	if got := store.Instances(); len(got) != 1 || got[0].ID != 1 {
		t.Errorf("instances: got %+v", got)
	}

	// Second login overwrites unconditionally.
	store.SetAuthData("tok-2", UserProfile{Name: "Other"}, nil)
	if got := store.Token(); got != "tok-2" {
		t.Errorf("token after relogin: got %q", got)
	}
	if got := store.Instances(); len(got) != 0 {
		t.Errorf("instances after relogin: got %+v", got)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	store, err := New(nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	store.SetAuthData("tok", UserProfile{Name: "Entari"}, []instance.Instance{testInstance(1, "alpha")})

	for i := 0; i < 2; i++ {
		store.Logout()
		if got := store.Token(); got != "" {
			t.Errorf("token after logout: got %q, want empty", got)
		}
		if _, ok := store.User(); ok {
			t.Error("user should be absent after logout")
		}
		if got := store.Instances(); len(got) != 0 {
			t.Errorf("instances after logout: got %+v", got)
		}
	}
}

func TestAddInstanceMergesThroughStore(t *testing.T) {
	store, err := New(nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	created, err := store.AddInstance(instance.Partial{
		ID:       ptr(7),
		Name:     ptr("a"),
		Type:     ptr("ws"),
		Host:     ptr("h"),
		Port:     ptr(1),
		Filename: ptr("a.yml"),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if created.State != instance.StateStopped || created.LogLevel != "INFO" {
		t.Errorf("defaults not applied: %+v", created)
	}

	updated, err := store.AddInstance(instance.Partial{ID: ptr(7), State: ptr(instance.StateRunning)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.State != instance.StateRunning || updated.Name != "a" {
		t.Errorf("merge result: %+v", updated)
	}
	if got := store.Instances(); len(got) != 1 {
		t.Errorf("duplicate created: %+v", got)
	}
}

func TestAddInstanceSerializesConcurrentCalls(t *testing.T) {
	store, err := New(nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.AddInstance(instance.Partial{
		ID: ptr(1), Name: ptr("a"), Type: ptr("ws"), Host: ptr("h"), Port: ptr(1), Filename: ptr("a.yml"),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		state := instance.StateRunning
		if i%2 == 0 {
			state = instance.StateStopped
		}
		wg.Add(1)
		go func(state string) {
			defer wg.Done()
			if _, err := store.AddInstance(instance.Partial{ID: ptr(1), State: ptr(state)}); err != nil {
				t.Errorf("concurrent add: %v", err)
			}
		}(state)
	}
	wg.Wait()

	got := store.Instances()
	if len(got) != 1 {
		t.Fatalf("expected 1 entry after racing updates, got %d", len(got))
	}
	if got[0].State != instance.StateRunning && got[0].State != instance.StateStopped {
		t.Errorf("state corrupted: %q", got[0].State)
	}
}

func TestRemoveInstance(t *testing.T) {
	store, err := New(nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	store.SetInstances([]instance.Instance{testInstance(1, "a"), testInstance(2, "b")})

	if !store.RemoveInstance(1) {
		t.Error("expected removal of id 1")
	}
	if store.RemoveInstance(1) {
		t.Error("second removal should report absence")
	}
	got := store.Instances()
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("instances after removal: %+v", got)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "console.db")

	db, err := OpenDB(Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	store, err := New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ins := testInstance(3, "gamma")
	ins.Plugins = []string{"echo"}
	ins.State = instance.StateRunning
	store.SetAuthData("persisted-token", UserProfile{Name: "Entari", Email: "e@example.com"}, []instance.Instance{ins})
	if err := db.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	// Reopen: restoration happens synchronously inside New.
	db2, err := OpenDB(Options{DBPath: dbPath})
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer db2.Close()
	restored, err := New(db2)
	if err != nil {
		t.Fatalf("restore store: %v", err)
	}

	if got := restored.Token(); got != "persisted-token" {
		t.Errorf("token: got %q", got)
	}
	user, ok := restored.User()
	if !ok || user.Name != "Entari" {
		t.Errorf("user: got %+v ok=%v", user, ok)
	}
	got := restored.Instances()
	if len(got) != 1 {
		t.Fatalf("instances: got %d entries", len(got))
	}
	if got[0].ID != 3 || got[0].State != instance.StateRunning || len(got[0].Plugins) != 1 || got[0].Plugins[0] != "echo" {
		t.Errorf("restored instance: %+v", got[0])
	}
}

func TestPersistedLogoutClearsDurableState(t *testing.T) {
	db := openTestDB(t)
	store, err := New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	store.SetAuthData("tok", UserProfile{Name: "Entari"}, []instance.Instance{testInstance(1, "a")})
	store.Logout()

	snap, ok, err := db.LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("expected a persisted row")
	}
	if snap.Token != "" || snap.User != nil || len(snap.Instances) != 0 {
		t.Errorf("durable state not cleared: %+v", snap)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if _, ok, err := db.GetSetting("srv_base"); err != nil || ok {
		t.Fatalf("unexpected setting: ok=%v err=%v", ok, err)
	}
	if err := db.SetSetting("srv_base", "http://10.0.0.2:5140/api"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetSetting("srv_base", "http://10.0.0.3:5140/api"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, ok, err := db.GetSetting("srv_base")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if value != "http://10.0.0.3:5140/api" {
		t.Errorf("value: got %q", value)
	}
}
