package app

import (
	"errors"
	"testing"

	"github.com/dkeye/fieldcast/internal/domain"
)

func TestRegistryRegister(t *testing.T) {
	tests := []struct {
		name    string
		role    domain.Role
		wantErr error
	}{
		{"broadcaster", domain.RoleBroadcaster, nil},
		{"observer", domain.RoleObserver, nil},
		{"unset", domain.RoleUnset, domain.ErrInvalidRole},
		{"bogus", domain.Role("admin"), domain.ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			reg.Bind("c1", &fakeSignal{}, "tok")
			err := reg.Register("c1", tt.role, "alice")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Register() error = %v, want %v", err, tt.wantErr)
			}
			got, _ := reg.Get("c1")
			if tt.wantErr != nil {
				if got.Role != domain.RoleUnset {
					t.Errorf("role = %v, want unset after rejected register", got.Role)
				}
				return
			}
			if got.Role != tt.role || got.Identity != "alice" {
				t.Errorf("conn = %+v, want role %v identity alice", got, tt.role)
			}
			if got.ClientToken != "tok" {
				t.Errorf("client token = %q, want tok", got.ClientToken)
			}
		})
	}
}

func TestRegistryRegisterUnknown(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("ghost", domain.RoleObserver, "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Register(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestRegistryReRegisterOverwrites(t *testing.T) {
	reg := NewRegistry()
	reg.Bind("c1", &fakeSignal{}, "")
	_ = reg.Register("c1", domain.RoleObserver, "bob")
	reg.SetListening("c1", "alice")
	if err := reg.Register("c1", domain.RoleBroadcaster, "bob"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	got, _ := reg.Get("c1")
	if got.Role != domain.RoleBroadcaster {
		t.Errorf("role = %v, want broadcaster", got.Role)
	}
	if got.ListeningTo != "" {
		t.Errorf("listening_to = %q, want empty after re-register", got.ListeningTo)
	}
	if _, err := reg.FindByIdentity(domain.RoleObserver, "bob"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("FindByIdentity(observer) error = %v, want ErrNotFound", err)
	}
	if c, err := reg.FindByIdentity(domain.RoleBroadcaster, "bob"); err != nil || c.ID != "c1" {
		t.Errorf("FindByIdentity(broadcaster) = %v, %v, want c1", c.ID, err)
	}
}

func TestRegistryFindByIdentityMostRecent(t *testing.T) {
	reg := NewRegistry()
	reg.Bind("old", &fakeSignal{}, "")
	reg.Bind("new", &fakeSignal{}, "")
	_ = reg.Register("old", domain.RoleBroadcaster, "alice")
	_ = reg.Register("new", domain.RoleBroadcaster, "alice")

	got, err := reg.FindByIdentity(domain.RoleBroadcaster, "alice")
	if err != nil {
		t.Fatalf("FindByIdentity() error = %v", err)
	}
	if got.ID != "new" {
		t.Errorf("FindByIdentity() = %v, want new", got.ID)
	}

	reg.Remove("new")
	got, err = reg.FindByIdentity(domain.RoleBroadcaster, "alice")
	if err != nil || got.ID != "old" {
		t.Errorf("after remove FindByIdentity() = %v, %v, want old", got.ID, err)
	}
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	reg.Bind("c1", &fakeSignal{}, "")
	reg.Remove("c1")
	reg.Remove("c1")
	if _, err := reg.Get("c1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, ok := reg.Signal("c1"); ok {
		t.Error("Signal() ok = true after remove")
	}
}

func TestRegistryClearListeningOnlyMatching(t *testing.T) {
	reg := NewRegistry()
	reg.Bind("o1", &fakeSignal{}, "")
	_ = reg.Register("o1", domain.RoleObserver, "bob")
	reg.SetListening("o1", "carol")

	reg.ClearListening("o1", "alice")
	if got, _ := reg.Get("o1"); got.ListeningTo != "carol" {
		t.Errorf("listening_to = %q, want carol", got.ListeningTo)
	}
	reg.ClearListening("o1", "carol")
	if got, _ := reg.Get("o1"); got.ListeningTo != "" {
		t.Errorf("listening_to = %q, want empty", got.ListeningTo)
	}
}

func TestRegistryCountsAndRegistered(t *testing.T) {
	reg := NewRegistry()
	reg.Bind("a", &fakeSignal{}, "")
	reg.Bind("b", &fakeSignal{}, "")
	reg.Bind("c", &fakeSignal{}, "")
	_ = reg.Register("a", domain.RoleBroadcaster, "alice")
	_ = reg.Register("b", domain.RoleObserver, "bob")

	total, byRole := reg.Counts()
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	want := map[domain.Role]int{domain.RoleUnset: 1, domain.RoleBroadcaster: 1, domain.RoleObserver: 1}
	for role, n := range want {
		if byRole[role] != n {
			t.Errorf("byRole[%s] = %d, want %d", role, byRole[role], n)
		}
	}
	if got := len(reg.Registered()); got != 2 {
		t.Errorf("len(Registered()) = %d, want 2", got)
	}
}
