package article

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var bundled embed.FS

type articleFile struct {
	Articles []Article `yaml:"articles"`
}

type topicFile struct {
	Guides     []Topic    `yaml:"guides"`
	Categories []Category `yaml:"categories"`
}

// LoadBundled builds a MemoryStore from the help-center content compiled into the binary.
func LoadBundled() (*MemoryStore, error) {
	var articles articleFile
	if err := decode("data/articles.yaml", &articles); err != nil {
		return nil, err
	}

	var topics topicFile
	if err := decode("data/topics.yaml", &topics); err != nil {
		return nil, err
	}

	return NewMemoryStore(articles.Articles, topics.Guides, topics.Categories)
}

func decode(name string, out any) error {
	raw, err := bundled.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
