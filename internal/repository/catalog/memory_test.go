package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/craftbridge/artisanmatch/internal/domain"
	"github.com/craftbridge/artisanmatch/internal/domain/match/filter"
)

func putProfile(t *testing.T, m *Memory, p domain.ArtisanProfile) string {
	t.Helper()
	if err := m.PutProfile(context.Background(), &p); err != nil {
		t.Fatalf("PutProfile: %v", err)
	}
	return p.ID
}

func TestMemory_PutAndGet(t *testing.T) {
	m := NewMemory()
	id := putProfile(t, m, domain.ArtisanProfile{
		Name: "Meera Devi", Profession: "jewelry",
	})
	if id == "" {
		t.Fatal("expected a generated ID")
	}

	got, err := m.GetProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Name != "Meera Devi" {
		t.Errorf("unexpected profile: %+v", got)
	}
}

func TestMemory_GetMissing(t *testing.T) {
	m := NewMemory()
	_, err := m.GetProfile(context.Background(), "nope")
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestMemory_QueryFiltersAndOrders(t *testing.T) {
	m := NewMemory()
	putProfile(t, m, domain.ArtisanProfile{
		ID: "b", Name: "B", Profession: "pottery", Location: "Delhi",
	})
	putProfile(t, m, domain.ArtisanProfile{
		ID: "a", Name: "A", Profession: "jewelry", Location: "Jaipur",
	})
	putProfile(t, m, domain.ArtisanProfile{
		ID: "c", Name: "C", Profession: "jewelry", Location: "Jaipur",
	})

	got, err := m.QueryProfiles(context.Background(), filter.Filters{Profession: "jewelry"})
	if err != nil {
		t.Fatalf("QueryProfiles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("pool should be ID-ordered, got %s, %s", got[0].ID, got[1].ID)
	}
}

func TestMemory_SnapshotIsolation(t *testing.T) {
	m := NewMemory()
	id := putProfile(t, m, domain.ArtisanProfile{Name: "A", Profession: "pottery"})

	snap, _ := m.GetProfile(context.Background(), id)
	snap.Name = "mutated"

	again, _ := m.GetProfile(context.Background(), id)
	if again.Name != "A" {
		t.Error("stored profile must not be affected by caller mutation")
	}
}

func TestMemory_InvalidateOnPutAndDelete(t *testing.T) {
	m := NewMemory()
	var events []string
	m.OnInvalidate(func(id string) { events = append(events, id) })

	id := putProfile(t, m, domain.ArtisanProfile{Name: "A", Profession: "pottery"})
	if err := m.DeleteProfile(context.Background(), id); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}

	if len(events) != 2 || events[0] != id || events[1] != id {
		t.Errorf("expected two invalidation events for %s, got %v", id, events)
	}
}

func TestMemory_RejectsInvalidProfile(t *testing.T) {
	m := NewMemory()
	err := m.PutProfile(context.Background(), &domain.ArtisanProfile{Name: "No Profession"})
	if err == nil {
		t.Fatal("expected validation error")
	}
}
