// Package sqlsafety implements the identifier-quoting and SQL-fragment
// validation layer shared by the storage core and its async façade. It
// never builds or executes SQL itself; it only decides whether a fragment
// supplied by a caller (a WHERE clause, a column expression, a GROUP BY
// clause) is safe to interpolate into a statement, and quotes identifiers
// so reserved words and mixed-case names survive a round trip.
package sqlsafety

import (
	"fmt"
	"math"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/kvengine/kverrors"
)

// NoClauseLengthLimit is the sentinel a caller passes as maxClauseLength
// to disable the clause-length cap entirely, per spec.md's "set to nil to
// disable". Go has no nil int, so this negative value fills that role; it
// is distinct from the bare zero value, which instead selects
// DefaultMaxClauseLength (the "caller didn't set it" case).
const NoClauseLengthLimit = -1

// DefaultMaxClauseLength is the cap applied when maxClauseLength is left
// at its Go zero value.
const DefaultMaxClauseLength = 1000

// DefaultAllowedFunctions is the function allow-list applied when a
// Policy and a query both leave AllowedFunctions unset. HEX is
// deliberately absent: it must be allow-listed explicitly, per call or
// per handle, before it can appear in a column/where/group-by fragment.
var DefaultAllowedFunctions = []string{
	"COUNT", "SUM", "AVG", "MIN", "MAX", "LENGTH",
	"LOWER", "UPPER", "COALESCE", "DISTINCT", "CAST",
	"NULLIF", "IFNULL", "SUBSTR", "ABS", "ROUND",
	"DATE", "TIME", "DATETIME", "TRIM", "REPLACE", "GROUP_CONCAT",
}

// Policy carries the handle-level SQL safety configuration: whether
// validation failures are hard errors or warnings, the maximum length of
// any single clause fragment, and the handle's own function allow/deny
// lists layered on top of DefaultAllowedFunctions.
type Policy struct {
	Strict            bool
	MaxClauseLength    int
	AllowedFunctions  []string
	ForbiddenFunctions []string
	Warner            kverrors.Warner
}

// NewPolicy builds a Policy, applying the package defaults for any zero
// value and validating the supplied function lists. maxClauseLength == 0
// selects DefaultMaxClauseLength; NoClauseLengthLimit disables the cap
// entirely (CheckFragment never rejects on length).
func NewPolicy(strict bool, maxClauseLength int, allowed, forbidden []string, warner kverrors.Warner) (*Policy, error) {
	switch {
	case maxClauseLength == 0:
		maxClauseLength = DefaultMaxClauseLength
	case maxClauseLength == NoClauseLengthLimit:
		maxClauseLength = math.MaxInt
	}

	p := &Policy{
		Strict:             strict,
		MaxClauseLength:    maxClauseLength,
		AllowedFunctions:   normalizeFunctionNames(allowed),
		ForbiddenFunctions: normalizeFunctionNames(forbidden),
		Warner:             warner,
	}

	if err := p.validateConfig(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) validateConfig() error {
	err := validation.Validate(p.AllowedFunctions,
		validation.Each(validation.Required, validation.Match(identifierPattern)),
	)
	if err != nil {
		return kverrors.Configuration("AllowedFunctions", err.Error())
	}

	err = validation.Validate(p.ForbiddenFunctions,
		validation.Each(validation.Required, validation.Match(identifierPattern)),
	)
	if err != nil {
		return kverrors.Configuration("ForbiddenFunctions", err.Error())
	}

	return validation.Validate(p.MaxClauseLength, validation.Min(1))
}

// QueryOverrides carries the per-call overrides accepted by query-shaped
// operations (query, query_with_pagination): a caller can widen the
// allow-list for one call, narrow it with ForbiddenFunctions, or replace
// the handle's allow-list outright with OverrideAllowed.
type QueryOverrides struct {
	AllowedFunctions   []string
	ForbiddenFunctions []string
	OverrideAllowed    bool
}

// resolvedAllowSet returns the allow-list this fragment is checked
// against, honoring OverrideAllowed (replace, don't extend) when set.
func (p *Policy) resolvedAllowSet(ov QueryOverrides) map[string]struct{} {
	set := make(map[string]struct{})

	if !ov.OverrideAllowed {
		for _, fn := range DefaultAllowedFunctions {
			set[fn] = struct{}{}
		}
		for _, fn := range p.AllowedFunctions {
			set[fn] = struct{}{}
		}
	}

	for _, fn := range normalizeFunctionNames(ov.AllowedFunctions) {
		set[fn] = struct{}{}
	}

	return set
}

func (p *Policy) resolvedForbidSet(ov QueryOverrides) map[string]struct{} {
	set := make(map[string]struct{})
	for _, fn := range p.ForbiddenFunctions {
		set[fn] = struct{}{}
	}
	for _, fn := range normalizeFunctionNames(ov.ForbiddenFunctions) {
		set[fn] = struct{}{}
	}
	return set
}

// CheckFragment validates a single SQL fragment (a column expression, a
// WHERE clause, a GROUP BY clause) against the clause-length cap, the
// function allow/forbid lists and the dangerous-pattern heuristics. A
// fragment over the length cap returns a kverrors.Validation error in
// either mode. For function and dangerous-pattern violations, strict mode
// returns a kverrors.Validation error; non-strict mode routes them to the
// Warner and lets the fragment through, matching the original engine's
// warn-then-proceed behavior.
func (p *Policy) CheckFragment(label, fragment string, ov QueryOverrides) error {
	if len(fragment) > p.MaxClauseLength {
		return kverrors.Validation("%s exceeds maximum length of %d characters", label, p.MaxClauseLength)
	}

	sanitized := stripLiteralsAndComments(fragment)

	allowed := p.resolvedAllowSet(ov)
	forbidden := p.resolvedForbidSet(ov)

	for _, fn := range extractFunctionCalls(sanitized) {
		if _, isForbidden := forbidden[fn]; isForbidden {
			return p.fail("function %s is forbidden in %s", fn, label)
		}
		if _, isAllowed := allowed[fn]; !isAllowed {
			return p.fail("function %s is not allowed in %s", fn, label)
		}
	}

	if pattern := findDangerousPattern(fragment); pattern != "" {
		return p.failDangerous("Potentially dangerous SQL pattern %q detected in %s", pattern, label)
	}

	return nil
}

func (p *Policy) fail(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.Strict {
		return kverrors.Validation(msg)
	}
	kverrors.Warnf(p.Warner, msg)
	return nil
}

func (p *Policy) failDangerous(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.Strict {
		return kverrors.Validation(msg)
	}
	kverrors.Warnf(p.Warner, msg)
	return nil
}

var identifierPattern = mustCompileIdentifierPattern()

// QuoteIdentifier validates and double-quotes a table or column name for
// safe interpolation into generated SQL. Identifiers must start with a
// letter or underscore and contain only alphanumerics and underscores;
// anything else (including an empty string) is a validation error, not a
// best-effort pass-through.
func QuoteIdentifier(identifier string) (string, error) {
	if identifier == "" {
		return "", kverrors.Validation("identifier cannot be empty")
	}
	if !identifierPattern.MatchString(identifier) {
		return "", kverrors.Validation(
			"invalid identifier %q: must start with a letter or underscore and contain only "+
				"alphanumeric characters and underscores", identifier)
	}
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`, nil
}
