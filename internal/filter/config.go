package filter

// OperatorTokens are the value prefixes recognized as comparison operators.
// An empty token disables the operator.
type OperatorTokens struct {
	GreaterThan    string `mapstructure:"greater_than"`
	GreaterOrEqual string `mapstructure:"greater_or_equal"`
	LessThan       string `mapstructure:"less_than"`
	LessOrEqual    string `mapstructure:"less_or_equal"`
	StartsWith     string `mapstructure:"starts_with"`
	EndsWith       string `mapstructure:"ends_with"`
	Contains       string `mapstructure:"contains"`
}

// Config is the token vocabulary of a Compiler. Marker and truthy tokens
// are matched case-insensitively.
type Config struct {
	Operators OperatorTokens `mapstructure:"operators"`

	// OrMarkers and AndMarkers select the list connective when found at
	// position 0 of a list value.
	OrMarkers  []string `mapstructure:"or_markers"`
	AndMarkers []string `mapstructure:"and_markers"`

	// MatchAllMarkers and NotInMarkers apply to relation filters and are
	// recognized anywhere in the list.
	MatchAllMarkers []string `mapstructure:"match_all_markers"`
	NotInMarkers    []string `mapstructure:"not_in_markers"`

	// Truthy values make a boolean filter true; anything else is false.
	Truthy []string `mapstructure:"truthy"`

	// Strict rejects query keys that no filter set rule recognizes.
	Strict bool `mapstructure:"strict"`
}

// DefaultConfig returns the stock vocabulary.
func DefaultConfig() Config {
	return Config{
		Operators: OperatorTokens{
			GreaterThan:    ">",
			GreaterOrEqual: ">=",
			LessThan:       "<",
			LessOrEqual:    "<=",
			StartsWith:     "^",
			EndsWith:       "$",
			Contains:       "~",
		},
		OrMarkers:       []string{"or", "|"},
		AndMarkers:      []string{"and", "&"},
		MatchAllMarkers: []string{"all", "!!"},
		NotInMarkers:    []string{"not", "!"},
		Truthy:          []string{"yes", "y", "1", "true"},
	}
}
