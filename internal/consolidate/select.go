package consolidate

import (
	"regexp"
	"strconv"
	"strings"
)

// MasterFileName is the persisted master workbook's file name; it is
// never a snapshot candidate.
const MasterFileName = "Master.xlsx"

// lockMarkerPrefix is the transient lock-marker prefix Excel leaves
// next to open workbooks.
const lockMarkerPrefix = "~$"

var dayNumberPattern = regexp.MustCompile(`Day (\d+)`)

// DayNumber extracts the sequence number embedded in a snapshot file
// name: the integer following the literal token "Day ". Names
// without a match get sequence number 0.
func DayNumber(name string) int {
	m := dayNumberPattern.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// SelectLatest picks the snapshot with the highest day number from
// the candidate file names, excluding the master file itself and
// lock-marker files. Ties on day number are broken by lexical name
// so repeated runs make the same choice. Returns false if no
// candidate remains.
func SelectLatest(candidates []string) (string, bool) {
	best := ""
	bestDay := -1
	for _, name := range candidates {
		if name == MasterFileName || strings.HasPrefix(name, lockMarkerPrefix) {
			continue
		}
		day := DayNumber(name)
		if day > bestDay || (day == bestDay && name > best) {
			best = name
			bestDay = day
		}
	}
	if bestDay < 0 {
		return "", false
	}
	return best, true
}
