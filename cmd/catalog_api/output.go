package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/entity-catalog/internal/schemas"
)

// writeJSON validates v against the named schema and writes it, indented, to path.
func writeJSON(path, schemaName string, v any) error {
	if err := schemas.ValidateDocument(schemaName, v); err != nil {
		return fmt.Errorf("output does not match %s schema: %w", schemaName, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", schemaName, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
