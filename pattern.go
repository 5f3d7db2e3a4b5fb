package res

// Pattern is a resource name template that may contain placeholders and
// wildcards:
//
//	Pattern("library.books")      // Matches the exact resource name
//	Pattern("library.book.$id")   // Tag ($id) matches a single part
//	Pattern("library.book.*")     // Wildcard (*) matches a single part
//	Pattern("library.>")          // Full wildcard (>) matches one or more trailing parts
type Pattern string

// IsValid returns true if the pattern is valid, otherwise false.
//
// An empty pattern is valid.
func (p Pattern) IsValid() bool {
	if len(p) == 0 {
		return true
	}
	partStart := true // at the first character of a part
	single := false   // current part is a lone * wildcard
	tagOnly := false  // current part is a lone $ character
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '.' {
			if partStart || tagOnly {
				return false
			}
			partStart = true
			single = false
			continue
		}
		if single || c < 33 || c > 126 || c == '?' {
			return false
		}
		switch c {
		case '>':
			// Must be a part of its own, and the last character.
			if !partStart || i != len(p)-1 {
				return false
			}
		case '*':
			if !partStart {
				return false
			}
			single = true
		case '$':
			tagOnly = partStart
		default:
			tagOnly = false
		}
		partStart = false
	}
	return !partStart && !tagOnly
}

// Matches tests if the resource name, s, matches the pattern.
//
// Behavior is undefined for an invalid pattern or an invalid resource name.
func (p Pattern) Matches(s string) bool {
	pi, si := 0, 0
	for pi < len(p) {
		if si == len(s) {
			return false
		}
		switch p[pi] {
		case '$', '*':
			// Skip to the end of both parts.
			for pi < len(p) && p[pi] != '.' {
				pi++
			}
			for si < len(s) && s[si] != '.' {
				si++
			}
		case '>':
			return pi == len(p)-1
		default:
			if p[pi] != s[si] {
				return false
			}
			pi++
			si++
		}
	}
	return si == len(s)
}

// IndexWildcard returns the index of the first instance of a wildcard part
// (*, >, or $tag) in the pattern, or -1 if no wildcard is present.
//
// Behavior is undefined for an invalid pattern.
func (p Pattern) IndexWildcard() int {
	partStart := true
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '.' {
			partStart = true
			continue
		}
		if partStart {
			if c == '*' || c == '$' || (c == '>' && i == len(p)-1) {
				return i
			}
		}
		partStart = false
	}
	return -1
}

// splitPattern splits a pattern or resource name into its dot-separated
// parts. An empty string results in a nil slice.
func splitPattern(p string) []string {
	if len(p) == 0 {
		return nil
	}
	parts := make([]string, 0, 8)
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '.' {
			parts = append(parts, p[start:i])
			start = i + 1
		}
	}
	return append(parts, p[start:])
}

// mergePattern joins two pattern fragments with a dot separator.
func mergePattern(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "." + b
}

// isValidPart returns true if p is a valid, non-wildcard part of a resource
// name or event name.
func isValidPart(p string) bool {
	if p == "" {
		return false
	}
	for _, r := range p {
		if r < 33 || r > 126 || r == '?' || r == '*' || r == '>' || r == '.' {
			return false
		}
	}
	return true
}
