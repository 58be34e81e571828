package notification

import (
	_ "embed"
	"fmt"

	"go.yaml.in/yaml/v3"
)

//go:embed fallback.yaml
var fallbackYAML []byte

type Message struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Catalog holds the built-in message per kind.
type Catalog map[Kind]Message

func ParseCatalog(data []byte) (Catalog, error) {
	var doc struct {
		Messages map[Kind]Message `yaml:"messages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing fallback catalog: %w", err)
	}
	return Catalog(doc.Messages), nil
}

// DefaultCatalog returns the embedded fallback messages.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(fallbackYAML)
	if err != nil {
		panic(err)
	}
	return c
}
