// Package rules compiles attribute extraction rules from CUE files.
//
// The built-in rule table in internal/ledger covers the four tracked
// kinds; this package lets a deployment declare additional kinds (or
// override the built-ins) as data:
//
//	rules: {
//		price: {
//			column:  "Current Price"
//			match:   "price"
//			pattern: #"\$(\d+)"#
//			value:   "int"
//		}
//	}
//
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
package rules

import (
	"fmt"
	"os"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"opsledger/internal/ledger"
)

// CompileError is a rule compilation failure with source position.
type CompileError struct {
	Kind    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	where := e.Field
	if e.Kind != "" {
		where = e.Kind + "." + e.Field
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: rule %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), where, e.Message)
	}
	return fmt.Sprintf("rule %s: %s", where, e.Message)
}

// LoadFile compiles a CUE rules file into a rule set. Kinds declared
// in the file replace built-in kinds of the same name; all remaining
// built-ins are kept, so a file only has to state what differs.
func LoadFile(path string) ([]ledger.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile rules file: %w", err)
	}

	custom, err := Compile(v)
	if err != nil {
		return nil, err
	}
	return Merge(ledger.BuiltinRules(), custom), nil
}

// Compile parses the rules struct out of a CUE value. Rules come
// back in declaration order.
func Compile(v cue.Value) ([]ledger.Rule, error) {
	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &CompileError{Field: "rules", Message: "rules struct is required", Pos: v.Pos()}
	}

	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("rules is not a struct: %w", err)
	}

	var compiled []ledger.Rule
	for iter.Next() {
		kind := iter.Selector().Unquoted()
		rule, err := compileRule(kind, iter.Value())
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, rule)
	}
	if len(compiled) == 0 {
		return nil, &CompileError{Field: "rules", Message: "at least one rule is required", Pos: rulesVal.Pos()}
	}
	return compiled, nil
}

// Merge overlays custom rules onto a base set: same-kind rules are
// replaced in place, new kinds are appended in declaration order.
func Merge(base, custom []ledger.Rule) []ledger.Rule {
	merged := append([]ledger.Rule(nil), base...)
	for _, c := range custom {
		replaced := false
		for i, b := range merged {
			if b.Kind == c.Kind {
				merged[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, c)
		}
	}
	return merged
}

func compileRule(kind string, v cue.Value) (ledger.Rule, error) {
	rule := ledger.Rule{Kind: ledger.Kind(kind)}

	column, err := requiredString(kind, v, "column")
	if err != nil {
		return rule, err
	}
	rule.Column = column

	match, err := requiredString(kind, v, "match")
	if err != nil {
		return rule, err
	}
	rule.Match = match

	patternSrc, err := requiredString(kind, v, "pattern")
	if err != nil {
		return rule, err
	}
	pattern, rerr := regexp.Compile(patternSrc)
	if rerr != nil {
		return rule, &CompileError{Kind: kind, Field: "pattern", Message: rerr.Error(), Pos: v.LookupPath(cue.ParsePath("pattern")).Pos()}
	}
	if pattern.NumSubexp() != 1 {
		return rule, &CompileError{
			Kind:    kind,
			Field:   "pattern",
			Message: fmt.Sprintf("pattern must have exactly one capture group, has %d", pattern.NumSubexp()),
			Pos:     v.LookupPath(cue.ParsePath("pattern")).Pos(),
		}
	}
	rule.Pattern = pattern

	valueType, err := requiredString(kind, v, "value")
	if err != nil {
		return rule, err
	}
	switch valueType {
	case "int":
		rule.Decimal = false
	case "decimal":
		rule.Decimal = true
	default:
		return rule, &CompileError{
			Kind:    kind,
			Field:   "value",
			Message: fmt.Sprintf("value must be %q or %q, got %q", "int", "decimal", valueType),
			Pos:     v.LookupPath(cue.ParsePath("value")).Pos(),
		}
	}

	return rule, nil
}

func requiredString(kind string, v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Kind: kind, Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Kind: kind, Field: field, Message: "must be a string", Pos: fv.Pos()}
	}
	if s == "" {
		return "", &CompileError{Kind: kind, Field: field, Message: field + " must not be empty", Pos: fv.Pos()}
	}
	return s, nil
}
