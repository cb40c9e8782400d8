package links

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/sluggen"
)

const (
	MinCodeLength        = 3
	MaxCodeLength        = 30
	DefaultCodeLength    = 7
	DefaultAllocAttempts = 10

	codeKindShort = "short_code"
	codeKindAlias = "custom_alias"
)

// reserved path segments that may not become aliases.
var reservedAliases = map[string]bool{
	"api":    true,
	"x":      true,
	"health": true,
}

// CodeChecker reports whether a code is already present in the shared
// short code and alias namespace.
type CodeChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// Allocator hands out codes for new links. Its uniqueness check is advisory:
// the link_codes primary key decides at insert time.
type Allocator struct {
	codes    CodeChecker
	gen      sluggen.Generator
	length   int
	attempts int
	logger   *slog.Logger
}

// AllocatorConfig holds allocator tuning.
type AllocatorConfig struct {
	Generator   sluggen.Generator
	CodeLength  int
	MaxAttempts int
	Logger      *slog.Logger
}

// NewAllocator returns an Allocator. Zero config values fall back to
// defaults.
func NewAllocator(codes CodeChecker, cfg AllocatorConfig) *Allocator {
	gen := cfg.Generator
	if gen == nil {
		g, err := sluggen.NewAlphabet(sluggen.URLSafe)
		if err != nil {
			panic(err)
		}
		gen = g
	}
	length := cfg.CodeLength
	if length < MinCodeLength || length > MaxCodeLength {
		length = DefaultCodeLength
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultAllocAttempts
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{
		codes:    codes,
		gen:      gen,
		length:   length,
		attempts: attempts,
		logger:   logger,
	}
}

// Allocate returns customAlias after validating it and checking it is free,
// or a freshly generated code when customAlias is empty.
func (a *Allocator) Allocate(ctx context.Context, customAlias string) (string, error) {
	const op = "links.Allocator.Allocate"

	if customAlias != "" {
		if err := ValidateAlias(customAlias); err != nil {
			return "", errx.E(op, errx.Invalid, err)
		}
		taken, err := a.codes.CodeExists(ctx, customAlias)
		if err != nil {
			return "", errx.E(op, errx.KindOf(err), err)
		}
		if taken {
			return "", errx.E(op, errx.Conflict, fmt.Errorf("%w: %s", ErrAliasTaken, customAlias))
		}
		return customAlias, nil
	}

	for range a.attempts {
		code, err := a.gen.Generate(a.length)
		if err != nil {
			return "", errx.E(op, errx.Internal, err)
		}
		taken, err := a.codes.CodeExists(ctx, code)
		if err != nil {
			return "", errx.E(op, errx.KindOf(err), err)
		}
		if !taken {
			return code, nil
		}
	}

	a.logger.ErrorContext(ctx, "short code space exhausted",
		"alert", true,
		"code_length", a.length,
		"attempts", a.attempts,
	)
	return "", errx.E(op, errx.Exhausted, ErrAllocationExhausted)
}

// ValidateAlias checks charset, length and reserved words.
func ValidateAlias(alias string) error {
	if len(alias) < MinCodeLength || len(alias) > MaxCodeLength {
		return fmt.Errorf("%w: length must be between %d and %d", ErrInvalidAlias, MinCodeLength, MaxCodeLength)
	}
	for i := 0; i < len(alias); i++ {
		if !isCodeChar(alias[i]) {
			return fmt.Errorf("%w: only letters, digits, dash and underscore are allowed", ErrInvalidAlias)
		}
	}
	if reservedAliases[strings.ToLower(alias)] {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidAlias, alias)
	}
	return nil
}

// IsWellFormedCode is the cheap syntactic check applied before lookups.
func IsWellFormedCode(code string) bool {
	if len(code) < MinCodeLength || len(code) > MaxCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !isCodeChar(code[i]) {
			return false
		}
	}
	return true
}

func isCodeChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	default:
		return false
	}
}
