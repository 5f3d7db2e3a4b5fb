package res

import (
	"fmt"
	"strings"
)

// group is a parsed worker group name. Each segment is either a literal
// string, or a reference to a tag part of the pattern by part index.
type group []groupSegment

type groupSegment struct {
	str string
	idx int
}

// parseGroup parses a group name for ${tag} references, verifying that each
// tag exists as a placeholder in the pattern. An empty group name results in
// a nil group, meaning the resource name is used as group.
//
// Panics on a malformed group name, or when a tag is not found in the
// pattern.
func parseGroup(g string, pattern string) group {
	if g == "" {
		return nil
	}
	parts := splitPattern(pattern)

	var gr group
	i := 0
	for i < len(g) {
		j := strings.IndexByte(g[i:], '$')
		if j < 0 {
			gr = append(gr, groupSegment{str: g[i:]})
			return gr
		}
		if j > 0 {
			gr = append(gr, groupSegment{str: g[i : i+j]})
			i += j
		}
		// g[i] is the start of a ${tag} reference
		if i+1 >= len(g) || g[i+1] != '{' {
			panic(fmt.Sprintf("res: expected group tag to start with \"${\" at pos %d", i))
		}
		end := strings.IndexByte(g[i+2:], '}')
		if end < 0 {
			panic("res: unterminated group tag in group: " + g)
		}
		tag := g[i+2 : i+2+end]
		if tag == "" {
			panic(fmt.Sprintf("res: empty group tag at pos %d", i))
		}
		for _, c := range tag {
			if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' && c != '-' {
				panic("res: non alphanumeric (a-z0-9_-) character in group tag: " + tag)
			}
		}
		idx := -1
		for k, p := range parts {
			if p == "$"+tag {
				idx = k
				break
			}
		}
		if idx < 0 {
			panic("res: group tag $" + tag + " not found in pattern: " + pattern)
		}
		gr = append(gr, groupSegment{idx: idx})
		i += end + 3
	}
	return gr
}

// toString resolves the group for a resource name split into parts. A nil
// group resolves to the resource name itself.
func (g group) toString(rname string, parts []string) string {
	if len(g) == 0 {
		return rname
	}
	if len(g) == 1 && g[0].str != "" {
		return g[0].str
	}
	var b strings.Builder
	for _, s := range g {
		if s.str == "" {
			b.WriteString(parts[s.idx])
		} else {
			b.WriteString(s.str)
		}
	}
	return b.String()
}
