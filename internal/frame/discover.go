package frame

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// DiscoveryError reports that no CSV in the data directory matched a
// required candidate-name list. The message enumerates what was wanted and
// what was present so unfamiliar drops are easy to map.
type DiscoveryError struct {
	Dir        string
	Candidates []string
	Available  []string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("no CSV in %s matching any of %v; available: %s",
		e.Dir, e.Candidates, strings.Join(e.Available, ", "))
}

// normName reduces a filename to lowercase alphanumerics so matching is
// case, whitespace and punctuation insensitive ("PNR+Flight+Level+Data.csv"
// matches "pnr flight level").
func normName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FindCSV locates a CSV file in dir whose normalized name contains any of
// the candidate keys, tried in order. Candidate order is the priority order.
func FindCSV(dir string, candidates []string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("scan data dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, cand := range candidates {
		key := normName(cand)
		for _, name := range files {
			if strings.Contains(normName(name), key) {
				return filepath.Join(dir, name), nil
			}
		}
	}
	return "", &DiscoveryError{Dir: dir, Candidates: candidates, Available: files}
}
