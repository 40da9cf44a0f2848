package table

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical renders a workbook as deterministic JSON: sheets
// in workbook order, rows in row order, object keys sorted by UTF-16
// code units, strings NFC normalized, no HTML escaping. Two workbooks
// with equal content always produce byte-identical output, which is
// what the golden tests and Fingerprint rely on.
//
// Unlike identity-bearing canonical JSON, decimal cells are allowed
// here; they are rendered in shortest round-trip form.
func MarshalCanonical(w *Workbook) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.WriteString(`"sheets":[`)
	for i, s := range w.Sheets() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalSheet(&buf, s); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", s.Name, err)
		}
	}
	buf.WriteString(`]}`)
	return buf.Bytes(), nil
}

// Fingerprint returns the hex SHA-256 of the canonical rendering.
func Fingerprint(w *Workbook) (string, error) {
	data, err := MarshalCanonical(w)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func marshalSheet(buf *bytes.Buffer, s *Sheet) error {
	keys := sortKeysUTF16([]string{"columns", "name", "rows"})
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		ks, err := marshalString(k)
		if err != nil {
			return err
		}
		buf.Write(ks)
		buf.WriteByte(':')
		switch k {
		case "name":
			ns, err := marshalString(s.Name)
			if err != nil {
				return err
			}
			buf.Write(ns)
		case "columns":
			buf.WriteByte('[')
			for j, c := range s.Columns {
				if j > 0 {
					buf.WriteByte(',')
				}
				cs, err := marshalString(c)
				if err != nil {
					return err
				}
				buf.Write(cs)
			}
			buf.WriteByte(']')
		case "rows":
			buf.WriteByte('[')
			for j, row := range s.Rows {
				if j > 0 {
					buf.WriteByte(',')
				}
				buf.WriteByte('[')
				for m, cell := range row {
					if m > 0 {
						buf.WriteByte(',')
					}
					cb, err := marshalCell(cell)
					if err != nil {
						return fmt.Errorf("row %d col %d: %w", j, m, err)
					}
					buf.Write(cb)
				}
				buf.WriteByte(']')
			}
			buf.WriteByte(']')
		}
	}
	buf.WriteByte('}')
	return nil
}

func marshalCell(c Cell) ([]byte, error) {
	switch v := c.(type) {
	case nil:
		// Blank-default policy: cells are never null.
		return marshalString("")
	case string:
		return marshalString(v)
	case int64:
		return []byte(strconv.FormatInt(v, 10)), nil
	case int:
		return []byte(strconv.Itoa(v)), nil
	case float64:
		return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case bool:
		if v {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	default:
		return nil, fmt.Errorf("unsupported cell type %T", c)
	}
}

// marshalString produces a canonical JSON string: NFC normalized, no
// HTML escaping.
func marshalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	return result, nil
}

// sortKeysUTF16 sorts object keys by UTF-16 code units, per RFC 8785.
func sortKeysUTF16(keys []string) []string {
	sorted := append([]string(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool {
		return lessUTF16(sorted[i], sorted[j])
	})
	return sorted
}

func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}
