package table

import (
	"strings"
	"testing"
)

func sampleWorkbook() *Workbook {
	std := NewTable("Day", "Units")
	std.AppendRow(int64(1), int64(60))
	std.AppendRow(int64(2), int64(55))

	hist := NewTable("Day", "Description")
	hist.AppendRow(int64(3), "Updated price to $150.")

	w := NewWorkbook()
	w.Put("Standard", std)
	w.Put("History", hist)
	return w
}

func TestMarshalCanonicalDeterministic(t *testing.T) {
	a, err := MarshalCanonical(sampleWorkbook())
	if err != nil {
		t.Fatalf("MarshalCanonical failed: %v", err)
	}
	b, err := MarshalCanonical(sampleWorkbook())
	if err != nil {
		t.Fatalf("MarshalCanonical failed: %v", err)
	}
	if string(a) != string(b) {
		t.Error("canonical output differs between identical workbooks")
	}
}

func TestMarshalCanonicalKeyOrderAndEscaping(t *testing.T) {
	w := NewWorkbook()
	tbl := NewTable("A & B")
	tbl.AppendRow("<tag>")
	w.Put("S", tbl)

	out, err := MarshalCanonical(w)
	if err != nil {
		t.Fatalf("MarshalCanonical failed: %v", err)
	}
	s := string(out)

	// Keys sorted by UTF-16 code units: columns < name < rows.
	ci := strings.Index(s, `"columns"`)
	ni := strings.Index(s, `"name"`)
	ri := strings.Index(s, `"rows"`)
	if !(ci < ni && ni < ri) {
		t.Errorf("key order wrong in %s", s)
	}

	// No HTML escaping.
	if !strings.Contains(s, "A & B") || !strings.Contains(s, "<tag>") {
		t.Errorf("HTML characters were escaped: %s", s)
	}
}

func TestMarshalCanonicalFloats(t *testing.T) {
	w := NewWorkbook()
	tbl := NewTable("Allocation")
	tbl.AppendRow(62.5)
	w.Put("S", tbl)

	out, err := MarshalCanonical(w)
	if err != nil {
		t.Fatalf("MarshalCanonical failed: %v", err)
	}
	if !strings.Contains(string(out), "62.5") {
		t.Errorf("float not rendered in shortest form: %s", out)
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	w1 := sampleWorkbook()
	w2 := sampleWorkbook()
	w2.Sheet("Standard").Rows[0][1] = int64(61)

	f1, err := Fingerprint(w1)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	f2, err := Fingerprint(w2)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if f1 == f2 {
		t.Error("fingerprints equal for different content")
	}
}
