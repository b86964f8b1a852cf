package export

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

func ToYAML(records []Record, path string) error {
	data, err := yaml.Marshal(buildDocument(records))
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write yaml file: %w", err)
	}
	return nil
}
