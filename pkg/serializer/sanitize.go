package serializer

import "strings"

var keyStripper = strings.NewReplacer(".", "", "/", "")

// SanitizeKey cleans a property name for storage and reports whether its
// value is marked for detachment. Dots and slashes are removed. A leading
// "@@" collapses to a literal "@" and does not detach; a single leading
// "@" is removed and detaches.
func SanitizeKey(key string) (clean string, detach bool) {
	clean = keyStripper.Replace(key)
	switch {
	case strings.HasPrefix(clean, "@@"):
		return clean[1:], false
	case strings.HasPrefix(clean, "@"):
		return clean[1:], true
	}
	return clean, false
}
