package dirstat

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// curDir is the "." component.
const curDir = "."

// Components splits p into its path components. A rooted path yields the root
// (volume name plus separator) as its first component, so "/a/b" becomes
// ["/", "a", "b"]. A leading "." is kept, so "./a" becomes [".", "a"] and
// records of a walk rooted at "." share that ancestor. Empty components and
// "." components past the first are dropped.
func Components(p string) []string {
	if p == "" {
		return nil
	}

	volume := filepath.VolumeName(p)
	rest := p[len(volume):]

	var out []string

	switch {
	case rest != "" && os.IsPathSeparator(rest[0]):
		out = append(out, volume+string(filepath.Separator))
		rest = rest[1:]
	case volume != "":
		out = append(out, volume)
	case leadingCurDir(rest):
		out = append(out, curDir)
	}

	for part := range strings.FieldsFuncSeq(rest, isSeparator) {
		if part == curDir {
			continue
		}

		out = append(out, part)
	}

	return out
}

// JoinComponents is the inverse of Components.
func JoinComponents(components []string) string {
	if len(components) == 0 {
		return ""
	}

	if components[0] == curDir && len(components) > 1 {
		return curDir + string(filepath.Separator) + filepath.Join(components[1:]...)
	}

	return filepath.Join(components...)
}

// Truncate keeps the first n components. n <= 0 keeps everything.
func Truncate(components []string, n int) []string {
	if n <= 0 || n >= len(components) {
		return components
	}

	return components[:n]
}

// HasPrefix reports whether components starts with every element of prefix.
func HasPrefix(components, prefix []string) bool {
	if len(prefix) > len(components) {
		return false
	}

	return slices.Equal(components[:len(prefix)], prefix)
}

// TrimPrefix returns components relative to prefix. The caller must have
// checked HasPrefix.
func TrimPrefix(components, prefix []string) []string {
	return components[len(prefix):]
}

// CompareComponents orders paths component by component, so "a/b" sorts
// before "a-c" even though '-' < '/' bytewise.
func CompareComponents(a, b []string) int {
	return slices.Compare(a, b)
}

// leadingCurDir reports whether p is "." or starts with "." and a separator.
func leadingCurDir(p string) bool {
	rest, ok := strings.CutPrefix(p, curDir)

	return ok && (rest == "" || os.IsPathSeparator(rest[0]))
}

func isSeparator(r rune) bool {
	return r < 0x80 && os.IsPathSeparator(uint8(r))
}
