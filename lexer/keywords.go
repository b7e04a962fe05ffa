package lexer

import "strings"

// group is one named keyword family (§4.2): directives,
// directive-keywords, statements, conditions, system-functions,
// system-constants, opcode names, segment markers, trace keywords,
// misc keywords, opcode macros. Each has its own enabled flag and
// case-sensitivity, and is matched only when its Context bit is set.
type group struct {
	kind          Kind
	contextBit    Context
	caseSensitive bool
	byName        map[string]int
	names         []string
}

func newGroup(kind Kind, bit Context, caseSensitive bool, names ...string) *group {
	g := &group{kind: kind, contextBit: bit, caseSensitive: caseSensitive, names: names, byName: make(map[string]int, len(names))}
	for i, n := range names {
		key := n
		if !caseSensitive {
			key = strings.ToLower(n)
		}
		g.byName[key] = i
	}
	return g
}

func (g *group) lookup(name string) (int, bool) {
	key := name
	if !g.caseSensitive {
		key = strings.ToLower(name)
	}
	i, ok := g.byName[key]
	return i, ok
}

// Classifier bundles every keyword group the lexer consults (§4.2).
// The directive-keyword set is the in-scope subset §1/§4.4/§4.3 name:
// Global, Array, Constant, Replace, Include, Link, System_file,
// Default, and the conditional-compilation keywords IfTrue, Ifnot,
// Iffalse, Endif, Ifdef and Ifndef (written `#`-prefixed, they reach
// the dispatcher through ClassifyDirectiveKeyword).
type Classifier struct {
	groups []*group
	locals [128]string // single-letter local names, index by letter
}

// NewClassifier returns a classifier with every group populated and
// enabled by default (Default() context), per §4.2.
func NewClassifier() *Classifier {
	c := &Classifier{}
	c.groups = []*group{
		newGroup(KindDirectiveKeyword, GroupDirectiveKeywords, false,
			"Global", "Array", "Constant", "Replace", "Include", "Link",
			"System_file", "IfTrue", "Ifnot", "Iffalse", "Endif", "Ifdef", "Ifndef", "Default"),
		newGroup(KindStatement, GroupStatements, false,
			"if", "else", "while", "do", "for", "objectloop", "switch", "return",
			"break", "continue", "jump", "print", "print_ret", "quit", "restart",
			"save", "restore", "new_line", "give", "move", "remove", "spaces", "style"),
		newGroup(KindCondition, GroupConditions, false,
			"has", "hasnt", "in", "notin", "ofclass", "provides", "or", "and", "not"),
		newGroup(KindSystemFunction, GroupSystemFunctions, false,
			"random", "parent", "child", "children", "elder", "sibling", "younger",
			"indirect", "metaclass", "glk"),
		newGroup(KindSystemConstant, GroupSystemConstants, false,
			"true", "false", "nothing"),
		newGroup(KindOpcodeName, GroupOpcodeNames, false,
			"@add", "@sub", "@mul", "@div", "@mod", "@jz", "@je", "@jl", "@jg",
			"@call", "@ret", "@storew", "@storeb", "@loadw", "@loadb"),
		newGroup(KindSegmentMarker, GroupSegmentMarkers, false,
			"Object", "Class", "Routine", "Verb"),
		newGroup(KindTraceKeyword, GroupTraceKeywords, false,
			"on", "off", "line", "assembly", "tokens", "linker", "dictionary", "symbols"),
		newGroup(KindMiscKeyword, GroupMiscKeywords, false,
			"string", "table", "buffer", "static"),
		newGroup(KindOpcodeMacro, GroupOpcodeMacros, false,
			"Box", "Font", "Objectloop"),
	}
	for letter := 'a'; letter <= 'z'; letter++ {
		c.locals[letter] = string(letter)
	}
	return c
}

// Classify returns the group kind and within-group index for name
// under ctx, or (KindBareIdentifier, 0, false) if no enabled group
// matches. When ctx is in directive-only mode (ModeDirectiveOnly),
// only the directive-keyword group is considered, per §4.2.
func (c *Classifier) Classify(name string, ctx Context) (Kind, int, bool) {
	if ctx.Has(ModeDirectiveOnly) {
		if i, ok := c.groups[0].lookup(name); ok {
			return KindDirectiveKeyword, i, true
		}
		return KindBareIdentifier, 0, false
	}
	for _, g := range c.groups {
		if !ctx.Has(g.contextBit) {
			continue
		}
		if i, ok := g.lookup(name); ok {
			return g.kind, i, true
		}
	}
	return KindBareIdentifier, 0, false
}

// ClassifyDirectiveKeyword looks up name (case-insensitively) in the
// directive-keyword group alone. Callers that receive a directive name
// via a `#`-prefixed separator token (§4.2's SepHash "consumes a
// following identifier" rule — `#IfTrue` lexes as one separator token,
// not as an identifier) use this instead of Classify.
func (c *Classifier) ClassifyDirectiveKeyword(name string) (int, bool) {
	return c.groups[0].lookup(name)
}

// LocalLetter reports whether name is a single lowercase letter that
// resolves via the 128-entry local lookup (§4.2), returning its slot.
func (c *Classifier) LocalLetter(name string) (int, bool) {
	if len(name) != 1 {
		return 0, false
	}
	r := name[0]
	if r >= 'a' && r <= 'z' {
		return int(r), true
	}
	return 0, false
}
