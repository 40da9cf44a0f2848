package rules

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/require"

	"opsledger/internal/ledger"
)

func compileString(t *testing.T, src string) ([]ledger.Rule, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return Compile(v)
}

func TestCompileValidRule(t *testing.T) {
	src := `
rules: {
	"setup-time": {
		column:  "Setup Time"
		match:   "setup time"
		pattern: #"to (\d+) minutes"#
		value:   "int"
	}
}
`
	compiled, err := compileString(t, src)
	require.NoError(t, err)
	require.Len(t, compiled, 1)

	r := compiled[0]
	require.Equal(t, ledger.Kind("setup-time"), r.Kind)
	require.Equal(t, "Setup Time", r.Column)
	require.Equal(t, "setup time", r.Match)
	require.False(t, r.Decimal)

	m := r.Pattern.FindStringSubmatch("Updated setup time to 45 minutes.")
	require.Len(t, m, 2)
	require.Equal(t, "45", m[1])
}

func TestCompileRejectsBadPattern(t *testing.T) {
	src := `
rules: {
	broken: {
		column:  "X"
		match:   "x"
		pattern: "no capture group"
		value:   "int"
	}
}
`
	_, err := compileString(t, src)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "pattern", ce.Field)
}

func TestCompileRejectsBadValueType(t *testing.T) {
	src := `
rules: {
	broken: {
		column:  "X"
		match:   "x"
		pattern: #"(\d+)"#
		value:   "complex"
	}
}
`
	_, err := compileString(t, src)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "value", ce.Field)
}

func TestCompileRejectsMissingField(t *testing.T) {
	src := `
rules: {
	broken: {
		match:   "x"
		pattern: #"(\d+)"#
		value:   "int"
	}
}
`
	_, err := compileString(t, src)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "column", ce.Field)
}

func TestMergeOverridesAndAppends(t *testing.T) {
	base := ledger.BuiltinRules()
	custom, err := compileString(t, `
rules: {
	price: {
		column:  "Unit Price"
		match:   "price"
		pattern: #"\$(\d+)"#
		value:   "int"
	}
	"lead-time": {
		column:  "Lead Time"
		match:   "lead time"
		pattern: #"to (\d+) days"#
		value:   "int"
	}
}
`)
	require.NoError(t, err)

	merged := Merge(base, custom)
	require.Len(t, merged, len(base)+1)

	price, ok := ledger.RuleFor(merged, ledger.KindPrice)
	require.True(t, ok)
	require.Equal(t, "Unit Price", price.Column)

	_, ok = ledger.RuleFor(merged, ledger.Kind("lead-time"))
	require.True(t, ok)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.cue")
	src := `
rules: {
	capacity: {
		column:  "Capacity Allocation %"
		match:   "capacity allocation"
		pattern: #"to (\d+\.?\d*)"#
		value:   "decimal"
	}
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	compiled, err := LoadFile(path)
	require.NoError(t, err)
	// Built-ins kept, capacity overridden in place.
	require.Len(t, compiled, len(ledger.BuiltinRules()))

	capacity, ok := ledger.RuleFor(compiled, ledger.KindCapacity)
	require.True(t, ok)
	require.True(t, capacity.Decimal)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
}
