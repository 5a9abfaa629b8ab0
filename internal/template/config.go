package template

// Default delimiters.
const (
	DefaultBlockStart  = "<%"
	DefaultBlockEnd    = "%>"
	DefaultInlineStart = "{{"
	DefaultInlineEnd   = "}}"
	DefaultEscape      = `\`
	DefaultTrim        = "-"
)

// Config holds the region delimiters recognized by a Parser.
type Config struct {
	BlockStart  string `koanf:"block_start"`
	BlockEnd    string `koanf:"block_end"`
	InlineStart string `koanf:"inline_start"`
	InlineEnd   string `koanf:"inline_end"`
	// Escape placed right before a start marker keeps it literal.
	Escape string `koanf:"escape"`
	// Trim placed right after a start marker or right before an end marker
	// strips the adjacent literal whitespace.
	Trim string `koanf:"trim"`
}

// DefaultConfig returns the standard delimiter set.
func DefaultConfig() Config {
	return Config{
		BlockStart:  DefaultBlockStart,
		BlockEnd:    DefaultBlockEnd,
		InlineStart: DefaultInlineStart,
		InlineEnd:   DefaultInlineEnd,
		Escape:      DefaultEscape,
		Trim:        DefaultTrim,
	}
}

// WithDefaults returns a copy of c with empty fields filled from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.BlockStart == "" {
		c.BlockStart = d.BlockStart
	}
	if c.BlockEnd == "" {
		c.BlockEnd = d.BlockEnd
	}
	if c.InlineStart == "" {
		c.InlineStart = d.InlineStart
	}
	if c.InlineEnd == "" {
		c.InlineEnd = d.InlineEnd
	}
	if c.Escape == "" {
		c.Escape = d.Escape
	}
	if c.Trim == "" {
		c.Trim = d.Trim
	}
	return c
}

// Validate checks that the delimiters can be told apart.
func (c Config) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"block_start", c.BlockStart},
		{"block_end", c.BlockEnd},
		{"inline_start", c.InlineStart},
		{"inline_end", c.InlineEnd},
		{"escape", c.Escape},
		{"trim", c.Trim},
	}
	for _, f := range fields {
		if f.value == "" {
			return &ConfigError{Field: f.name, Message: "must not be empty"}
		}
	}

	if c.BlockStart == c.InlineStart {
		return &ConfigError{Field: "inline_start", Message: "must differ from block_start"}
	}
	if c.BlockStart == c.BlockEnd {
		return &ConfigError{Field: "block_end", Message: "must differ from block_start"}
	}
	if c.InlineStart == c.InlineEnd {
		return &ConfigError{Field: "inline_end", Message: "must differ from inline_start"}
	}
	if c.Trim == c.Escape {
		return &ConfigError{Field: "trim", Message: "must differ from escape"}
	}
	return nil
}
