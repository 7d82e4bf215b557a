package model

// Settings are the user-facing application settings, stored as a single
// JSON blob and replaced as a whole on every change.
type Settings struct {
	Features  map[string]bool `json:"features"`
	WorkTypes []string        `json:"workTypes"`
}

// DefaultSettings returns the settings used when nothing is stored yet.
func DefaultSettings() Settings {
	return Settings{
		Features: map[string]bool{
			"timer":  true,
			"report": true,
			"export": true,
		},
		WorkTypes: []string{"工作", "学习", "生活"},
	}
}

// FeatureEnabled reports whether a feature toggle is on. Unknown names
// count as off.
func (s Settings) FeatureEnabled(name string) bool {
	return s.Features[name]
}

// HasWorkType reports whether name is a configured work type.
func (s Settings) HasWorkType(name string) bool {
	for _, t := range s.WorkTypes {
		if t == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Settings hold a map and a slice, so a plain
// assignment would share them.
func (s Settings) Clone() Settings {
	c := Settings{
		Features:  make(map[string]bool, len(s.Features)),
		WorkTypes: make([]string, len(s.WorkTypes)),
	}
	for k, v := range s.Features {
		c.Features[k] = v
	}
	copy(c.WorkTypes, s.WorkTypes)
	return c
}
