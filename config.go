// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lucidglyph/pdftext/logger"
)

// ParsingMode selects how the Document façade reacts to recoverable
// errors (a single bad stream, an unmapped glyph, an unknown operator).
type ParsingMode string

const (
	Strict     ParsingMode = "strict"
	BestEffort ParsingMode = "best-effort"
)

// Config controls both document-open/extraction behavior (ParsingMode,
// TJSpaceThreshold, NestingLimit) and the concurrency knobs used by the
// parallel extraction helpers in parallel.go.
type Config struct {
	MaxConcurrentPDFs int           `validate:"min=1,max=64"`
	MaxWorkersPerPDF  int           `validate:"min=1,max=64"`
	WorkerTimeout     time.Duration `validate:"required"`
	ParsingMode       ParsingMode   `validate:"oneof=strict best-effort"`
	MaxRetries        int           `validate:"min=0,max=3"`
	MaxTotalChars     int           `validate:"min=0"`

	// TJSpaceThreshold is the magnitude (in thousandths of a text-space
	// unit) a TJ array's numeric displacement must meet or exceed before
	// a synthetic space is emitted between neighboring strings. Spec
	// default is 150 (i.e. displacements <= -150 trigger a space).
	TJSpaceThreshold float64 `validate:"min=0"`

	// NestingLimit bounds recursive descent through arrays/dicts; the
	// spec fixes this at 100 but it is exposed for documents that
	// legitimately need a deeper (or shallower, for fuzzing) bound.
	NestingLimit int `validate:"min=1"`

	DebugOn bool
	Logger  logger.LogFunc
}

// NewDefaultConfig returns a Config with the spec's defaults: best-effort
// parsing, a 150/1000 TJ space threshold, and a 100-level nesting bound.
func NewDefaultConfig() *Config {
	return &Config{
		MaxConcurrentPDFs: 5,
		MaxWorkersPerPDF:  1,
		WorkerTimeout:     5 * time.Second,
		ParsingMode:       BestEffort,
		MaxRetries:        3,
		MaxTotalChars:     0,
		TJSpaceThreshold:  150,
		NestingLimit:      100,
		DebugOn:           false,
	}
}

// Validate checks the Config against its struct tags.
func (cfg *Config) Validate() error {
	logger.Debug("Validating Config Object")
	validate := validator.New()
	return validate.Struct(cfg)
}

// Strict reports whether the configured ParsingMode is Strict.
func (cfg *Config) Strict() bool {
	return cfg.ParsingMode == Strict
}
