// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/envrun/envrun/internal/python"
	"github.com/envrun/envrun/pkg/project"
)

type installedPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HashDependencies returns a stable hash of a dependency set. Order and
// duplicates do not matter.
func HashDependencies(deps []string) string {
	normalized := make([]string, 0, len(deps))
	for _, d := range deps {
		if d = strings.TrimSpace(d); d != "" {
			normalized = append(normalized, d)
		}
	}
	slices.Sort(normalized)
	normalized = slices.Compact(normalized)

	h := blake3.New()
	for _, d := range normalized {
		_, _ = h.Write([]byte(d + "\n"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ParseInstalled decodes `pip list --format=json` output into a map of
// normalized names to versions. Unparseable versions are skipped.
func ParseInstalled(data []byte) (map[string]python.Version, error) {
	var pkgs []installedPackage
	if err := json.Unmarshal(data, &pkgs); err != nil {
		return nil, fmt.Errorf("decode installed packages: %w", err)
	}
	installed := make(map[string]python.Version, len(pkgs))
	for _, p := range pkgs {
		v, err := python.ParseVersion(p.Version)
		if err != nil {
			continue
		}
		installed[project.NormalizeName(p.Name)] = v
	}
	return installed, nil
}

// Unsatisfied returns the requirements in deps that apply under markers but
// are missing from installed or installed at a non-matching version.
func Unsatisfied(deps []string, installed map[string]python.Version, markers python.MarkerEnv) ([]string, error) {
	var missing []string
	for _, raw := range deps {
		req, err := python.ParseRequirement(raw)
		if err != nil {
			return nil, err
		}
		if !req.Applies(markers) {
			continue
		}
		v, ok := installed[req.Name]
		if !ok || !req.SatisfiedBy(v) {
			missing = append(missing, raw)
		}
	}
	return missing, nil
}
