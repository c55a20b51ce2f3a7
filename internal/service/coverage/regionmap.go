package coverage

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyRegionName indicates a mapping entry without a name or boundary identifier.
	ErrEmptyRegionName = errors.New("empty region name")
	// ErrDuplicateRegion indicates two entries that resolve to the same canonical name.
	ErrDuplicateRegion = errors.New("duplicate region name")
	// ErrDuplicateBoundary indicates two canonical names pointing at one boundary identifier.
	ErrDuplicateBoundary = errors.New("duplicate boundary identifier")
)

var apostrophes = strings.NewReplacer("’", "'", "ʼ", "'", "‘", "'", "`", "'", "´", "'")

// CanonicalKey folds a region name into the form used for lookups: NFC, unified
// apostrophes, collapsed whitespace and Unicode case folding.
func CanonicalKey(name string) string {
	key := norm.NFC.String(name)
	key = apostrophes.Replace(key)
	key = strings.Join(strings.Fields(key), " ")
	return cases.Fold().String(key)
}

// RegionEntry is one canonical region in a name map file.
type RegionEntry struct {
	Name     string   `yaml:"name"`
	Boundary string   `yaml:"boundary"`
	Aliases  []string `yaml:"aliases,omitempty"`
}

// RegionNameMap associates tabular region names with boundary identifiers in both
// directions. It is immutable once built.
type RegionNameMap struct {
	forward map[string]string // name key -> boundary id
	inverse map[string]string // boundary key -> canonical name
}

// NewRegionNameMap validates the entries and precomputes both lookup directions.
func NewRegionNameMap(entries []RegionEntry) (*RegionNameMap, error) {
	m := &RegionNameMap{
		forward: make(map[string]string, len(entries)),
		inverse: make(map[string]string, len(entries)),
	}

	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		boundary := strings.TrimSpace(entry.Boundary)
		if name == "" || boundary == "" {
			return nil, fmt.Errorf("region %q -> %q: %w", entry.Name, entry.Boundary, ErrEmptyRegionName)
		}

		boundaryKey := CanonicalKey(boundary)
		if existing, ok := m.inverse[boundaryKey]; ok {
			return nil, fmt.Errorf("boundary %q claimed by %q and %q: %w", boundary, existing, name, ErrDuplicateBoundary)
		}
		m.inverse[boundaryKey] = name

		if err := m.addName(name, boundary); err != nil {
			return nil, err
		}
		for _, alias := range entry.Aliases {
			if strings.TrimSpace(alias) == "" {
				continue
			}
			if err := m.addName(alias, boundary); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *RegionNameMap) addName(name, boundary string) error {
	key := CanonicalKey(name)
	if existing, ok := m.forward[key]; ok {
		return fmt.Errorf("region %q already maps to %q: %w", name, existing, ErrDuplicateRegion)
	}
	m.forward[key] = boundary
	return nil
}

// RegionNameMapFromPairs builds a map from plain name -> boundary pairs.
func RegionNameMapFromPairs(pairs map[string]string) (*RegionNameMap, error) {
	names := make([]string, 0, len(pairs))
	for name := range pairs {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]RegionEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, RegionEntry{Name: name, Boundary: pairs[name]})
	}
	return NewRegionNameMap(entries)
}

// IdentityRegionNameMap treats every boundary identifier as its own canonical name.
func IdentityRegionNameMap(knownIDs []string) (*RegionNameMap, error) {
	seen := make(map[string]bool, len(knownIDs))
	entries := make([]RegionEntry, 0, len(knownIDs))
	for _, id := range knownIDs {
		key := CanonicalKey(id)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		entries = append(entries, RegionEntry{Name: id, Boundary: id})
	}
	return NewRegionNameMap(entries)
}

// LoadRegionNameMap reads a YAML file holding either a `regions:` list of entries
// or a flat name: boundary mapping.
func LoadRegionNameMap(path string) (*RegionNameMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region map %s: %w", path, err)
	}

	var doc struct {
		Regions []RegionEntry `yaml:"regions"`
	}
	if err := yaml.Unmarshal(raw, &doc); err == nil && len(doc.Regions) > 0 {
		return NewRegionNameMap(doc.Regions)
	}

	var pairs map[string]string
	if err := yaml.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("decode region map %s: %w", path, err)
	}
	return RegionNameMapFromPairs(pairs)
}

// Lookup returns the boundary identifier for a tabular region name or alias.
func (m *RegionNameMap) Lookup(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	boundary, ok := m.forward[CanonicalKey(name)]
	return boundary, ok
}

// CanonicalName returns the tabular name registered for a boundary identifier.
func (m *RegionNameMap) CanonicalName(boundaryID string) (string, bool) {
	if m == nil {
		return "", false
	}
	name, ok := m.inverse[CanonicalKey(boundaryID)]
	return name, ok
}

// Len reports the number of canonical regions.
func (m *RegionNameMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.inverse)
}
