// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadPlan loads a plan from a YAML or JSON file. Files without a known
// extension are sniffed.
func LoadPlan(path string) (*Plan, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("plan path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return parsePlanAuto(data)
	}
}

func parsePlanAuto(data []byte) (*Plan, error) {
	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}
