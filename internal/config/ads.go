// Package config — ads.go загружает каталог рекламы из yaml-файла.
// Каждая запись — пара «видео + ссылка на группу», как в исходном боте.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Ad описывает одну рекламную запись каталога.
type Ad struct {
	VideoURL string `yaml:"video_url"`
	GroupURL string `yaml:"group_url"`
}

// AdCatalog — список реклам, индекс записи используется в URL /ad/:id.
type AdCatalog struct {
	Ads []Ad `yaml:"ads"`
}

// LoadAds читает каталог рекламы из yaml-файла.
func LoadAds(path string) (*AdCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать каталог рекламы: %w", err)
	}

	var catalog AdCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("не удалось разобрать каталог рекламы: %w", err)
	}

	if len(catalog.Ads) == 0 {
		return nil, fmt.Errorf("каталог рекламы пуст: %s", path)
	}
	for i, ad := range catalog.Ads {
		if ad.VideoURL == "" || ad.GroupURL == "" {
			return nil, fmt.Errorf("запись %d каталога неполная (video_url/group_url)", i)
		}
	}

	return &catalog, nil
}

// Get возвращает запись каталога по индексу.
func (c *AdCatalog) Get(id int) (*Ad, bool) {
	if id < 0 || id >= len(c.Ads) {
		return nil, false
	}
	return &c.Ads[id], true
}

// Len возвращает размер каталога.
func (c *AdCatalog) Len() int {
	return len(c.Ads)
}
