package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromMissingFileGivesDefaults(t *testing.T) {
	s := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	if s.SaveFileType != "png" || s.SaveFileQuality != 90 {
		t.Errorf("defaults not applied: %+v", s)
	}
	if s.BGMode != "transparent" {
		t.Errorf("default bg mode = %q, want transparent", s.BGMode)
	}
}

func TestLoadFromCorruptFileGivesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := LoadFrom(path)
	if s.ShadowOpacity != 0.5 {
		t.Errorf("corrupt file did not fall back to defaults: %+v", s)
	}
}

func TestLoadFromMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"bg_mode":"blur"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	s := LoadFrom(path)
	if s.BGMode != "blur" {
		t.Errorf("loaded value lost: bg_mode = %q", s.BGMode)
	}
	if s.SaveFileQuality != 90 {
		t.Errorf("unset field lost its default: quality = %d", s.SaveFileQuality)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "settings.json")
	s := Defaults()
	s.SetPath(path)
	s.BGMode = "color"
	s.ShadowRadius = 33

	if err := s.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded := LoadFrom(path)
	if loaded.BGMode != "color" || loaded.ShadowRadius != 33 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
