package skin

import (
	"path/filepath"
	"testing"

	"limbrun/internal/limb"
)

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "skins.toml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := s.LoadSkin(limb.RightLeg); got != 0 {
		t.Errorf("expected default 0, got %d", got)
	}
	if err := s.SaveSkin(limb.RightLeg, 3); err != nil {
		t.Fatalf("SaveSkin: %v", err)
	}
	if err := s.SaveSkin(limb.Head, 1); err != nil {
		t.Fatalf("SaveSkin: %v", err)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	want := [limb.Count]int{0, 0, 0, 3, 1}
	if got := again.All(); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSaveRejectsBadInput(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "skins.toml"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SaveSkin(limb.Slot(6), 1); err == nil {
		t.Error("expected error for invalid slot")
	}
	if err := s.SaveSkin(limb.LeftArm, -2); err == nil {
		t.Error("expected error for negative index")
	}
	if got := s.LoadSkin(limb.Slot(6)); got != 0 {
		t.Errorf("invalid slot should load 0, got %d", got)
	}
}
