package backup

import "time"

// Kind identifies a backup variant.
type Kind string

const (
	// KindQuick backs up the essential files only (worlds, configs).
	KindQuick Kind = "quick"
	// KindFull backs up the complete server directory minus exclusions.
	KindFull Kind = "full"
)

// IncludeEverything is the sentinel include entry meaning "the whole tree".
const IncludeEverything = "*"

// TypeSpec describes what a backup kind covers. Loaded once at startup and
// never mutated.
type TypeSpec struct {
	Kind        Kind
	Description string
	Include     []string
	Exclude     []string
}

// IncludesEverything reports whether the spec covers the whole source tree.
func (s TypeSpec) IncludesEverything() bool {
	for _, item := range s.Include {
		if item == IncludeEverything {
			return true
		}
	}
	return false
}

// DefaultTypes returns the built-in backup variants.
func DefaultTypes() map[Kind]TypeSpec {
	return map[Kind]TypeSpec{
		KindQuick: {
			Kind:        KindQuick,
			Description: "Essential files only (worlds, configs)",
			Include: []string{
				"world", "world_nether", "world_the_end",
				"server.properties", "ops.json", "whitelist.json",
				"banned-players.json", "banned-ips.json",
			},
		},
		KindFull: {
			Kind:        KindFull,
			Description: "Complete server backup",
			Include:     []string{IncludeEverything},
			Exclude: []string{
				"logs", "crash-reports", "*.log", "__pycache__",
			},
		},
	}
}

// Record is the persisted metadata for one archive. Immutable once written,
// except for deletion.
type Record struct {
	Sequence    int       `json:"number"`
	Filename    string    `json:"filename"`
	Kind        Kind      `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created"`
	SizeBytes   int64     `json:"size"`
	FileCount   int       `json:"files_count"`
	CustomName  string    `json:"custom_name,omitempty"`
}
