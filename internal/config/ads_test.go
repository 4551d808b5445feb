package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAdsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ads.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write ads file: %v", err)
	}
	return path
}

func TestLoadAds(t *testing.T) {
	path := writeAdsFile(t, `ads:
  - video_url: "https://www.youtube.com/embed/abc"
    group_url: "https://t.me/looteverythingfast"
  - video_url: "https://www.youtube.com/embed/def"
    group_url: "https://t.me/looteverythingfast2"
`)

	catalog, err := LoadAds(path)
	if err != nil {
		t.Fatalf("LoadAds: %v", err)
	}
	if catalog.Len() != 2 {
		t.Fatalf("len = %d, want 2", catalog.Len())
	}

	ad, ok := catalog.Get(1)
	if !ok {
		t.Fatal("Get(1) must succeed")
	}
	if ad.GroupURL != "https://t.me/looteverythingfast2" {
		t.Errorf("unexpected group_url: %s", ad.GroupURL)
	}

	if _, ok := catalog.Get(-1); ok {
		t.Error("Get(-1) must fail")
	}
	if _, ok := catalog.Get(2); ok {
		t.Error("Get out of range must fail")
	}
}

func TestLoadAdsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty catalog", "ads: []\n"},
		{"missing group_url", "ads:\n  - video_url: \"https://x\"\n"},
		{"missing video_url", "ads:\n  - group_url: \"https://x\"\n"},
		{"not yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeAdsFile(t, tt.content)
			if _, err := LoadAds(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := LoadAds(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
