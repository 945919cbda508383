package encoder

import "fmt"

// FeatureKind classifies a matrix column.
type FeatureKind uint8

// Column kinds. Type features are keyed independently of Direct/Inverse
// features even when the IRI strings coincide.
const (
	FeatureType FeatureKind = iota + 1
	FeatureDirect
	FeatureInverse
)

// String returns the kind name.
func (k FeatureKind) String() string {
	switch k {
	case FeatureType:
		return "Type"
	case FeatureDirect:
		return "Direct"
	case FeatureInverse:
		return "Inverse"
	default:
		return fmt.Sprintf("FeatureKind(%d)", uint8(k))
	}
}

// FeatureKey identifies a column: a class membership, or a predicate seen
// from the subject (Direct) or object (Inverse) side.
type FeatureKey struct {
	Kind FeatureKind
	IRI  string
}

// TypeFeature returns the key for membership in class.
func TypeFeature(class string) FeatureKey {
	return FeatureKey{Kind: FeatureType, IRI: class}
}

// DirectFeature returns the key for "subject has predicate".
func DirectFeature(predicate string) FeatureKey {
	return FeatureKey{Kind: FeatureDirect, IRI: predicate}
}

// InverseFeature returns the key for "object of predicate".
func InverseFeature(predicate string) FeatureKey {
	return FeatureKey{Kind: FeatureInverse, IRI: predicate}
}

// String renders the key as Kind(IRI).
func (k FeatureKey) String() string {
	return fmt.Sprintf("%s(%s)", k.Kind, k.IRI)
}

// ColumnLabels maps column indices to their feature keys.
type ColumnLabels map[int]FeatureKey

// DirectColumns returns predicate IRI -> column index for every Direct
// feature in l. If a predicate appears more than once the lowest column wins.
func (l ColumnLabels) DirectColumns() map[string]int {
	out := make(map[string]int)
	for col, key := range l {
		if key.Kind != FeatureDirect {
			continue
		}
		if prev, ok := out[key.IRI]; ok && prev < col {
			continue
		}
		out[key.IRI] = col
	}
	return out
}
