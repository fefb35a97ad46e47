package mcp

import (
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// MaxTitleLength bounds tool titles and names.
const MaxTitleLength = 64

// Names is the process-wide set of registered tool titles and the dashed
// tool names derived from them. It only grows; Reserve is safe for concurrent use.
type Names struct {
	mu    sync.Mutex
	taken map[string]struct{}
	tools map[string]struct{}
}

// NewNames creates an empty registry.
func NewNames() *Names {
	return &Names{taken: make(map[string]struct{}), tools: make(map[string]struct{})}
}

// Reserve records title, suffixing "---N" while the title or its dashed tool
// name is already taken. Each candidate keeps its last 64 characters before
// it is checked. It returns the final title.
func (n *Names) Reserve(title string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	candidate := tail(title, MaxTitleLength)
	for i := n.nextSuffix(title); n.collides(candidate); i++ {
		candidate = tail(title+"---"+strconv.Itoa(i), MaxTitleLength)
	}
	n.taken[candidate] = struct{}{}
	n.tools[Dashify(candidate)] = struct{}{}
	return candidate
}

// collides reports whether title or its tool name is in use. Caller holds mu.
func (n *Names) collides(title string) bool {
	if _, ok := n.taken[title]; ok {
		return true
	}
	_, ok := n.tools[Dashify(title)]
	return ok
}

// Has reports whether title has been reserved.
func (n *Names) Has(title string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.taken[title]
	return ok
}

// HasTool reports whether a tool name has been handed out.
func (n *Names) HasTool(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.tools[name]
	return ok
}

// Len returns the number of reserved titles.
func (n *Names) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.taken)
}

// nextSuffix is one more than the highest "---N" already used for base. Caller holds mu.
func (n *Names) nextSuffix(base string) int {
	highest := 0
	prefix := base + "---"
	for existing := range n.taken {
		if !strings.HasPrefix(existing, prefix) {
			continue
		}
		if v, err := strconv.Atoi(strings.TrimPrefix(existing, prefix)); err == nil && v > highest {
			highest = v
		}
	}
	return highest + 1
}

func tail(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[len(r)-max:])
}

// Dashify turns a title into a tool name: camel-case boundaries and every
// non-word character become "-", leading and trailing dashes are trimmed and
// the result is lower-cased. Runs of dashes are kept.
func Dashify(title string) string {
	in := []rune(strings.TrimSpace(title))
	var b strings.Builder
	for i, r := range in {
		if i > 0 && unicode.IsUpper(r) && isASCIILower(in[i-1]) {
			b.WriteRune('-')
		}
		if isWordRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	return tail(strings.ToLower(strings.Trim(b.String(), "-")), MaxTitleLength)
}

func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }

// isWordRune matches \w plus the Latin-1 and Latin Extended-A letters, which are kept as-is.
func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return true
	case r >= 'À' && r <= 'ž':
		return true
	}
	return false
}

// TitleCase converts a path or identifier into spaced, capitalised words.
// "-" and "_" separate words, as do whitespace and every upper-case letter.
func TitleCase(s string) string {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()

	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " ")
}
