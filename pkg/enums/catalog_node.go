package enums

import "fmt"

// CatalogNodeKind names a level of the catalog hierarchy. It types both ends of a
// grows-with reference and selects the table for position moves.
type CatalogNodeKind string

const (
	CatalogNodeIndex      CatalogNodeKind = "index"
	CatalogNodeCommonName CatalogNodeKind = "common_name"
	CatalogNodeSection    CatalogNodeKind = "section"
	CatalogNodeCultivar   CatalogNodeKind = "cultivar"
)

var validCatalogNodeKinds = []CatalogNodeKind{
	CatalogNodeIndex,
	CatalogNodeCommonName,
	CatalogNodeSection,
	CatalogNodeCultivar,
}

// String implements fmt.Stringer.
func (k CatalogNodeKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known CatalogNodeKind.
func (k CatalogNodeKind) IsValid() bool {
	for _, candidate := range validCatalogNodeKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// CanGrowWith reports whether the kind may appear as the subject of a grows-with reference.
func (k CatalogNodeKind) CanGrowWith() bool {
	return k == CatalogNodeCommonName || k == CatalogNodeCultivar
}

// IsGrowsWithTarget reports whether the kind may be referenced by a grows-with entry.
func (k CatalogNodeKind) IsGrowsWithTarget() bool {
	return k == CatalogNodeCommonName || k == CatalogNodeSection || k == CatalogNodeCultivar
}

// ParseCatalogNodeKind converts raw input into a CatalogNodeKind.
func ParseCatalogNodeKind(value string) (CatalogNodeKind, error) {
	for _, candidate := range validCatalogNodeKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid catalog node kind %q", value)
}
