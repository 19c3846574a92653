package vectorstore

import (
	"github.com/finrag/finrag-go/internal/fault"
)

// IndexMode selects the similarity index built over the vector field. Each
// mode maps to a provider-native index type and its parameter set.
type IndexMode string

const (
	// Flat is exact brute-force search, no parameters.
	Flat IndexMode = "flat"
	// IVFFlat is an inverted-file index over raw vectors.
	IVFFlat IndexMode = "ivf_flat"
	// IVFSQ8 is an inverted-file index over scalar-quantized vectors.
	IVFSQ8 IndexMode = "ivf_sq8"
	// HNSW is a hierarchical navigable small-world graph index.
	HNSW IndexMode = "hnsw"
)

// ParseIndexMode validates an index-mode key at the boundary.
func ParseIndexMode(s string) (IndexMode, error) {
	switch m := IndexMode(s); m {
	case Flat, IVFFlat, IVFSQ8, HNSW:
		return m, nil
	default:
		return "", fault.New(fault.UnsupportedMethod, "unsupported index mode: %q", s)
	}
}

// Index build parameter defaults, per mode.
const (
	// defaultNList is the inverted-file cluster count for ivf_flat/ivf_sq8.
	defaultNList = 1024
	// defaultHNSWM is the HNSW graph degree.
	defaultHNSWM = 16
	// defaultHNSWEfConstruction is the HNSW build-time beam width.
	defaultHNSWEfConstruction = 500
)

// Params returns the build parameters for the mode: flat has none,
// ivf_flat/ivf_sq8 carry nlist, hnsw carries M and efConstruction.
func (m IndexMode) Params() map[string]int {
	switch m {
	case IVFFlat, IVFSQ8:
		return map[string]int{"nlist": defaultNList}
	case HNSW:
		return map[string]int{"M": defaultHNSWM, "efConstruction": defaultHNSWEfConstruction}
	default:
		return map[string]int{}
	}
}
