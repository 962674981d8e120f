package iso9660

import "strings"

// NormalizeComponent upper-cases a single path component and replaces any
// character outside [A-Z 0-9 _] with an underscore, per ISO 9660 Level 1
// d-character rules.
func NormalizeComponent(s string) string {
	upper := strings.ToUpper(s)
	b := make([]byte, len(upper))
	for i := 0; i < len(upper); i++ {
		c := upper[i]
		if isDChar(c) {
			b[i] = c
		} else {
			b[i] = '_'
		}
	}
	return string(b)
}

// NormalizeFileName splits name at its last '.' before any character
// normalization happens (the dot itself is not a d-character, so
// normalizing first would erase the split point), then normalizes the
// basename and extension separately, truncating to 8 and 3 characters. The
// result is the "8.3" name without a version suffix; that is appended at
// write time.
func NormalizeFileName(name string) string {
	base, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		base, ext = name[:i], name[i+1:]
	}
	base = NormalizeComponent(base)
	ext = NormalizeComponent(ext)
	if len(base) > 8 {
		base = base[:8]
	}
	if len(ext) > 3 {
		ext = ext[:3]
	}
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// NormalizeDirName normalizes a directory component: upper-cased,
// disallowed characters replaced, truncated to 30 characters (ISO 9660
// Level 1's directory identifier maximum).
func NormalizeDirName(name string) string {
	norm := NormalizeComponent(name)
	if len(norm) > 30 {
		norm = norm[:30]
	}
	return norm
}

// FileIdentifier returns the on-disc file identifier for name, including
// the ";1" version suffix required at write time.
func FileIdentifier(normalizedName string) string {
	return normalizedName + ";1"
}
