package config

// LevelKey identifies one of the six academic levels, lowest to highest.
type LevelKey string

const (
	LevelFoundational LevelKey = "foundational"
	LevelDeveloping   LevelKey = "developing"
	LevelGraduate     LevelKey = "graduate"
	LevelAdvanced     LevelKey = "advanced"
	LevelMasters      LevelKey = "masters"
	LevelDoctoral     LevelKey = "doctoral"
)

var levelOrder = []LevelKey{
	LevelFoundational,
	LevelDeveloping,
	LevelGraduate,
	LevelAdvanced,
	LevelMasters,
	LevelDoctoral,
}

// AcademicLevel describes the expectation attached to one level of the ladder.
type AcademicLevel struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// LevelKeys returns all level keys in ascending order.
func LevelKeys() []LevelKey {
	return append([]LevelKey(nil), levelOrder...)
}

// ValidLevelKey reports whether key names one of the six defined levels.
func ValidLevelKey(key LevelKey) bool {
	for _, k := range levelOrder {
		if k == key {
			return true
		}
	}
	return false
}

// NextLevelKey returns the level one step above key, or false at the top.
func NextLevelKey(key LevelKey) (LevelKey, bool) {
	for i, k := range levelOrder {
		if k == key {
			if i+1 < len(levelOrder) {
				return levelOrder[i+1], true
			}
			return "", false
		}
	}
	return "", false
}
