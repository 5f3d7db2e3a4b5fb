package res

// The router stores handlers in a trie over the dot-separated parts of their
// patterns, and matches resource names against it with the precedence:
//
//	1. Literal part
//	2. Placeholder part ($tag or *)
//	3. Full wildcard (>), consuming all remaining parts
//
// The structure is inspired by the sublist in nats-server:
// https://github.com/nats-io/nats-server/blob/master/server/sublist.go

// Router stores handlers and retrieves them for resource names matching
// their patterns.
type Router struct {
	prefix string
	root   *routeNode
}

// routeNode is a single part of one or more registered patterns.
type routeNode struct {
	literals map[string]*routeNode
	param    *routeNode // $tag and * parts
	fwild    *routeNode // > part
	leaf     *routeLeaf // set if a pattern terminates at this node
}

// routeLeaf is a registered handler with its pattern metadata.
type routeLeaf struct {
	h       Handler
	caps    Capability
	tags    []tagRef // placeholder tags in the pattern
	group   group
	pattern Pattern // full pattern, including the router prefix
}

// tagRef is a named placeholder at a given part index of the pattern.
type tagRef struct {
	name string
	idx  int
}

// Match is the result of matching a resource name against the router.
type Match struct {
	// Handler registered for the matched pattern.
	Handler Handler

	// Params maps placeholder tags to the parts they captured.
	Params map[string]string

	// Group is the resolved worker group. Empty if no group was set.
	Group string

	// Pattern is the full pattern that matched.
	Pattern Pattern
}

// NewRouter returns a new Router where all patterns are prefixed with the
// given resource name fragment. An empty prefix adds nothing to the
// patterns. Panics if the prefix contains wildcards or is otherwise invalid.
func NewRouter(prefix string) *Router {
	if !isValidPrefix(prefix) {
		panic("res: invalid prefix: " + prefix)
	}
	return &Router{
		prefix: prefix,
		root:   &routeNode{},
	}
}

// Prefix returns the pattern prefixing all registered patterns.
func (rt *Router) Prefix() string {
	return rt.prefix
}

// Add registers a handler for a pattern, relative to the router prefix.
//
// Panics if the pattern is invalid, if the pattern is already registered, or
// if the group references a tag not present in the pattern.
func (rt *Router) Add(pattern string, h Handler) {
	if !Pattern(pattern).IsValid() {
		panic("res: invalid pattern: " + pattern)
	}

	l := &routeLeaf{
		h:       h,
		caps:    h.Capabilities(),
		group:   parseGroup(h.Group, pattern),
		pattern: Pattern(mergePattern(rt.prefix, pattern)),
	}

	n := rt.root
	for i, part := range splitPattern(pattern) {
		switch part[0] {
		case '$':
			for _, tag := range l.tags {
				if tag.name == part[1:] {
					panic("res: placeholder " + part + " found multiple times in pattern: " + pattern)
				}
			}
			l.tags = append(l.tags, tagRef{name: part[1:], idx: i})
			fallthrough
		case '*':
			if n.param == nil {
				n.param = &routeNode{}
			}
			n = n.param
		case '>':
			// Pattern validity guarantees > is the last part.
			if n.fwild == nil {
				n.fwild = &routeNode{}
			}
			n = n.fwild
		default:
			if n.literals == nil {
				n.literals = make(map[string]*routeNode)
			}
			next := n.literals[part]
			if next == nil {
				next = &routeNode{}
				n.literals[part] = next
			}
			n = next
		}
	}

	if n.leaf != nil {
		panic("res: registration already done for pattern " + string(l.pattern))
	}
	n.leaf = l
}

// Lookup matches a resource name against the registered patterns and
// returns the matching handler together with captured parameters, resolved
// group, and the matched pattern. Returns nil if no pattern matches.
func (rt *Router) Lookup(rname string) *Match {
	sub, ok := rt.trimPrefix(rname)
	if !ok {
		return nil
	}

	var l *routeLeaf
	var parts []string
	if sub == "" {
		l = rt.root.leaf
	} else {
		parts = splitPattern(sub)
		l = matchRoute(rt.root, parts, 0)
	}
	if l == nil {
		return nil
	}

	var params map[string]string
	if len(l.tags) > 0 {
		params = make(map[string]string, len(l.tags))
		for _, tag := range l.tags {
			params[tag.name] = parts[tag.idx]
		}
	}

	var g string
	if l.group != nil {
		g = l.group.toString(rname, parts)
	}

	return &Match{
		Handler: l.h,
		Params:  params,
		Group:   g,
		Pattern: l.pattern,
	}
}

// matchRoute does a depth first search for the leaf with the highest
// matching precedence.
func matchRoute(n *routeNode, parts []string, i int) *routeLeaf {
	last := i == len(parts)-1

	if next, ok := n.literals[parts[i]]; ok {
		if last {
			if next.leaf != nil {
				return next.leaf
			}
		} else if l := matchRoute(next, parts, i+1); l != nil {
			return l
		}
	}

	if next := n.param; next != nil {
		if last {
			if next.leaf != nil {
				return next.leaf
			}
		} else if l := matchRoute(next, parts, i+1); l != nil {
			return l
		}
	}

	if n.fwild != nil {
		return n.fwild.leaf
	}

	return nil
}

// Contains reports whether any registered handler matches the predicate.
func (rt *Router) Contains(test func(h Handler) bool) bool {
	return containsRoute(rt.root, test)
}

func containsRoute(n *routeNode, test func(h Handler) bool) bool {
	if n == nil {
		return false
	}
	if n.leaf != nil && test(n.leaf.h) {
		return true
	}
	if containsRoute(n.param, test) || containsRoute(n.fwild, test) {
		return true
	}
	for _, next := range n.literals {
		if containsRoute(next, test) {
			return true
		}
	}
	return false
}

// Patterns returns the full patterns of all registered handlers matching the
// predicate.
func (rt *Router) Patterns(test func(h Handler) bool) []Pattern {
	var ps []Pattern
	traverseRoute(rt.root, func(l *routeLeaf) {
		if test(l.h) {
			ps = append(ps, l.pattern)
		}
	})
	return ps
}

func traverseRoute(n *routeNode, cb func(*routeLeaf)) {
	if n == nil {
		return
	}
	if n.leaf != nil {
		cb(n.leaf)
	}
	traverseRoute(n.param, cb)
	traverseRoute(n.fwild, cb)
	for _, next := range n.literals {
		traverseRoute(next, cb)
	}
}

// trimPrefix strips the router prefix from a resource name. Returns false if
// the name does not belong under the prefix.
func (rt *Router) trimPrefix(rname string) (string, bool) {
	if rt.prefix == "" {
		return rname, true
	}
	if rname == rt.prefix {
		return "", true
	}
	pl := len(rt.prefix)
	if len(rname) <= pl || rname[:pl] != rt.prefix || rname[pl] != '.' {
		return "", false
	}
	return rname[pl+1:], true
}

func isValidPrefix(p string) bool {
	return Pattern(p).IsValid() && Pattern(p).IndexWildcard() == -1
}
