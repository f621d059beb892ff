package driven

// ConfigStore holds the repository configuration as flat dotted keys
// ("storage.backend", "index.merge_threshold"). File-backed implementations
// map each dotted prefix to a section of the file.
type ConfigStore interface {
	// Get returns the raw value stored under key.
	Get(key string) (any, bool)

	// GetString returns "" for missing or non-string values.
	GetString(key string) string

	// GetInt accepts any integer kind and numeric strings; anything else is 0.
	GetInt(key string) int

	// GetBool accepts booleans and strings strconv.ParseBool understands.
	GetBool(key string) bool

	// GetStringSlice returns a copy; nil when the key is missing.
	GetStringSlice(key string) []string

	// Set stores and persists a value. When persisting fails the previous
	// value is restored and the error returned.
	Set(key string, value any) error

	// Keys lists every key in sorted order.
	Keys() []string

	Save() error
	Load() error

	// Path is the backing file, or ":memory:".
	Path() string
}
