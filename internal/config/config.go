// Package config holds the Configuration value every rule run receives.
// It never fails: absent or invalid values fall back to Default.
package config

import (
	"crypto/sha256"

	"github.com/vmihailenco/msgpack/v5"
)

// Convention is a naming convention for variables.
type Convention string

const (
	CamelCase  Convention = "camelCase"
	PascalCase Convention = "PascalCase"
	UpperCase  Convention = "UPPER_CASE"
	SnakeCase  Convention = "snake_case"
	NoneCase   Convention = "none"
)

// Conventions lists the recognised conventions in documentation order.
func Conventions() []Convention {
	return []Convention{CamelCase, PascalCase, UpperCase, SnakeCase, NoneCase}
}

// Known reports whether c is one of Conventions. Unknown names validate everything.
func (c Convention) Known() bool {
	for _, k := range Conventions() {
		if c == k {
			return true
		}
	}
	return false
}

type FileLength struct {
	MaxLines int `json:"maxLines" toml:"maxLines" yaml:"maxLines" msgpack:"max_lines"`
}

type LineLength struct {
	MaxLength int `json:"maxLength" toml:"maxLength" yaml:"maxLength" msgpack:"max_length"`
}

type Commenting struct {
	RequireHeader bool `json:"requireHeader" toml:"requireHeader" yaml:"requireHeader" msgpack:"require_header"`
}

type NamingConventions struct {
	Variable Convention `json:"variable" toml:"variable" yaml:"variable" msgpack:"variable"`
}

type Function struct {
	MaxCyclomatic      int  `json:"maxCyclomatic" toml:"maxCyclomatic" yaml:"maxCyclomatic" msgpack:"max_cyclomatic"`
	MaxLines           int  `json:"maxLines" toml:"maxLines" yaml:"maxLines" msgpack:"max_lines"`
	Parameters         int  `json:"parameters" toml:"parameters" yaml:"parameters" msgpack:"parameters"`
	ValidateParameters bool `json:"validateParameters" toml:"validateParameters" yaml:"validateParameters" msgpack:"validate_parameters"`
	ExplicitVoid       bool `json:"explicitVoid" toml:"explicitVoid" yaml:"explicitVoid" msgpack:"explicit_void"`
	StackAddress       bool `json:"stackAddress" toml:"stackAddress" yaml:"stackAddress" msgpack:"stack_address"`
	// SkipKeywords stops control keywords (if, while, ...) from being read
	// as function names. Off by default: every `name(...) {` line is a header.
	SkipKeywords bool `json:"skipKeywords" toml:"skipKeywords" yaml:"skipKeywords" msgpack:"skip_keywords"`
}

type Uninitialized struct {
	// SkipKeywords drops `return x;`-style statements and typedef or
	// preprocessor lines before matching `type name;`.
	SkipKeywords bool `json:"skipKeywords" toml:"skipKeywords" yaml:"skipKeywords" msgpack:"skip_keywords"`
}

type Macro struct {
	// CheckAll inspects every multi-line macro instead of only the first one.
	CheckAll bool `json:"checkAll" toml:"checkAll" yaml:"checkAll" msgpack:"check_all"`
}

type Engine struct {
	// UnifiedReplace switches every rule tag to replace-merge.
	UnifiedReplace bool `json:"unifiedReplace" toml:"unifiedReplace" yaml:"unifiedReplace" msgpack:"unified_replace"`
}

type Files struct {
	// Exclude holds doublestar patterns matched against slash paths relative to the scan root.
	Exclude []string `json:"exclude" toml:"exclude" yaml:"exclude" msgpack:"exclude"`
}

// Config is the complete set of thresholds and switches.
type Config struct {
	FileLength        FileLength        `json:"fileLength" toml:"fileLength" yaml:"fileLength" msgpack:"file_length"`
	LineLength        LineLength        `json:"lineLength" toml:"lineLength" yaml:"lineLength" msgpack:"line_length"`
	Commenting        Commenting        `json:"commenting" toml:"commenting" yaml:"commenting" msgpack:"commenting"`
	NamingConventions NamingConventions `json:"namingConventions" toml:"namingConventions" yaml:"namingConventions" msgpack:"naming_conventions"`
	Function          Function          `json:"function" toml:"function" yaml:"function" msgpack:"function"`
	Macro             Macro             `json:"macro" toml:"macro" yaml:"macro" msgpack:"macro"`
	Uninitialized     Uninitialized     `json:"uninitialized" toml:"uninitialized" yaml:"uninitialized" msgpack:"uninitialized"`
	Engine            Engine            `json:"engine" toml:"engine" yaml:"engine" msgpack:"engine"`
	Files             Files             `json:"files" toml:"files" yaml:"files" msgpack:"files"`
}

const (
	DefaultMaxFileLines  = 400
	DefaultMaxLineLength = 80
	DefaultMaxCyclomatic = 15
	DefaultMaxFnLines    = 50
	DefaultMaxParams     = 4
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		FileLength:        FileLength{MaxLines: DefaultMaxFileLines},
		LineLength:        LineLength{MaxLength: DefaultMaxLineLength},
		Commenting:        Commenting{RequireHeader: true},
		Function: Function{
			MaxCyclomatic: DefaultMaxCyclomatic,
			MaxLines:      DefaultMaxFnLines,
			Parameters:    DefaultMaxParams,
			StackAddress:  true,
		},
	}
}

// Normalize replaces non-positive thresholds with defaults. The naming
// convention is kept as is: empty and unknown names validate everything.
func (c Config) Normalize() Config {
	def := Default()
	if c.FileLength.MaxLines <= 0 {
		c.FileLength.MaxLines = def.FileLength.MaxLines
	}
	if c.LineLength.MaxLength <= 0 {
		c.LineLength.MaxLength = def.LineLength.MaxLength
	}
	if c.Function.MaxCyclomatic <= 0 {
		c.Function.MaxCyclomatic = def.Function.MaxCyclomatic
	}
	if c.Function.MaxLines <= 0 {
		c.Function.MaxLines = def.Function.MaxLines
	}
	if c.Function.Parameters <= 0 {
		c.Function.Parameters = def.Function.Parameters
	}
	return c
}

// Digest fingerprints the rule-relevant part of the configuration; it keys
// the on-disk result cache. Files.Exclude does not affect per-file results.
func (c Config) Digest() [32]byte {
	c.Files = Files{}
	data, err := msgpack.Marshal(&c)
	if err != nil {
		// plain structs of ints, bools and strings always encode
		panic(err)
	}
	return sha256.Sum256(data)
}
