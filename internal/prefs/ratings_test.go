package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRatingsFile_MissingFileIsEmpty(t *testing.T) {
	f := RatingsFile{Path: filepath.Join(t.TempDir(), "ratings.toml")}
	r, err := f.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if r.Loaded || r.UserID != "" || len(r.Ratings) != 0 {
		t.Fatalf("Load() = %+v, want empty", r)
	}
	if r.Ratings == nil {
		t.Fatalf("Ratings map is nil")
	}
}

func TestRatingsFile_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ratings.toml")
	f := RatingsFile{Path: path}

	in := Ratings{UserID: "u1", Loaded: true, Ratings: map[string]int{"p1": 4, "p2": 5}}
	if err := f.Save(in); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	out, err := f.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if out.UserID != "u1" || !out.Loaded {
		t.Fatalf("Load() = %+v, want user u1 loaded", out)
	}
	if out.Ratings["p1"] != 4 || out.Ratings["p2"] != 5 {
		t.Fatalf("Ratings = %v, want p1=4 p2=5", out.Ratings)
	}

	if err := f.Clear(); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("Stat after Clear err = %v, want not exist", err)
	}
	if err := f.Clear(); err != nil {
		t.Fatalf("second Clear returned error: %v", err)
	}
}

func TestRatingsFile_DropsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.toml")
	body := "user_id = \"u1\"\nloaded = true\n\n[ratings]\np1 = 3\np2 = 0\np3 = 9\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r, err := RatingsFile{Path: path}.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(r.Ratings) != 1 || r.Ratings["p1"] != 3 {
		t.Fatalf("Ratings = %v, want only p1=3", r.Ratings)
	}
}

func TestRatingsFile_CorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.toml")
	if err := os.WriteFile(path, []byte("{{{ nope"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	r, err := RatingsFile{Path: path}.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(r.Ratings) != 0 {
		t.Fatalf("Ratings = %v, want empty", r.Ratings)
	}
}
