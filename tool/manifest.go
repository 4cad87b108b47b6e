package tool

import (
	json "github.com/goccy/go-json"
)

// ManifestEntry is one row of the exported manifest artifact. Field order is
// part of the contract: the manifest must be byte-stable across runs.
type ManifestEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FeatureFlag string `json:"feature_flag,omitempty"`
	Passthrough bool   `json:"passthrough"`
	EventTopic  string `json:"event_topic,omitempty"`
}

// Manifest is the exported artifact: entries sorted by name plus the sorted
// feature-flag set.
type Manifest struct {
	Tools        []ManifestEntry `json:"tools"`
	FeatureFlags []string        `json:"feature_flags"`
}

// BuildManifest derives the manifest from the registry. Scanning the same
// registry twice yields byte-equal output.
func (r *Registry) BuildManifest() Manifest {
	descs := r.Descriptors()
	entries := make([]ManifestEntry, 0, len(descs))
	for _, d := range descs {
		entries = append(entries, ManifestEntry{
			Name:        d.Name,
			Description: d.Description,
			FeatureFlag: d.FeatureFlag,
			Passthrough: d.Passthrough,
			EventTopic:  d.EventTopic,
		})
	}
	return Manifest{Tools: entries, FeatureFlags: r.FeatureFlags()}
}

// MarshalIndent serializes the manifest deterministically.
func (m Manifest) MarshalIndent() ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
