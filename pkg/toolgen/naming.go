package toolgen

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Tool names follow {service}_{verb}_{resource}: lower case, underscore
// separated, globally unique within one compiled set. Naming is a pure
// function of (method, path, override table); recompiling an unchanged
// document yields byte-identical names.

// methodVerbs maps HTTP methods to tool-name verbs. GET resolves to "list"
// or "get" depending on identifier placeholders in the path.
var methodVerbs = map[string]string{
	"GET":    "list",
	"HEAD":   "list",
	"POST":   "create",
	"PUT":    "update",
	"PATCH":  "update",
	"DELETE": "delete",
}

// apiPrefixes are stripped from paths before deriving resource words.
var apiPrefixes = []string{"/api/v0/", "/api/v1/", "/api/"}

// plurals maps singular resource words to irregular or known plural forms.
// Words absent from the table fall back to suffix heuristics; a word that is
// already plural never gets a blind "s" appended.
var plurals = map[string]string{
	"search":       "searches",
	"conversation": "conversations",
	"transfer":     "transfers",
	"download":     "downloads",
	"upload":       "uploads",
	"room":         "rooms",
	"share":        "shares",
	"user":         "users",
	"file":         "files",
	"event":        "events",
	"log":          "logs",
	"message":      "messages",
	"member":       "members",
	"directory":    "directories",
	"option":       "options",
	"report":       "reports",
	"metric":       "metrics",
	"response":     "responses",
	"status":       "status",
}

var singulars = func() map[string]string {
	m := make(map[string]string, len(plurals))
	for s, p := range plurals {
		m[p] = s
	}
	return m
}()

var (
	camelBoundaryRe = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	acronymRe       = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	segmentJunkRe   = regexp.MustCompile(`[^a-z0-9_]`)
	underscoreRunRe = regexp.MustCompile(`_+`)
)

func pluralize(word string) string {
	if p, ok := plurals[word]; ok {
		return p
	}
	if _, ok := singulars[word]; ok {
		return word // already plural
	}
	switch {
	case strings.HasSuffix(word, "s"):
		return word
	case strings.HasSuffix(word, "y") && len(word) > 1 && !isVowel(word[len(word)-2]):
		return word[:len(word)-1] + "ies"
	default:
		return word + "s"
	}
}

func singularize(word string) string {
	if s, ok := singulars[word]; ok {
		return s
	}
	if _, ok := plurals[word]; ok {
		return word // already singular
	}
	switch {
	case strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "ches"), strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "xes"), strings.HasSuffix(word, "zes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return word[:len(word)-1]
	default:
		return word
	}
}

func isVowel(c byte) bool {
	return c == 'a' || c == 'e' || c == 'i' || c == 'o' || c == 'u'
}

// sanitizeSegment turns one path segment into a snake_case identifier chunk.
func sanitizeSegment(segment string) string {
	s := acronymRe.ReplaceAllString(segment, "${1}_${2}")
	s = camelBoundaryRe.ReplaceAllString(s, "${1}_${2}")
	s = strings.ToLower(s)
	s = strings.NewReplacer(".", "_", "-", "_").Replace(s)
	s = segmentJunkRe.ReplaceAllString(s, "")
	s = underscoreRunRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// pathWords splits a path into resource words, stripping the API prefix and
// identifier placeholders. A word immediately followed by a placeholder in
// the original path is singularized (it addresses one entity).
func pathWords(path string, verb string) []string {
	trimmed := path
	for _, prefix := range apiPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			trimmed = trimmed[len(prefix):]
			break
		}
	}
	trimmed = strings.TrimPrefix(trimmed, "/")
	raw := strings.Split(trimmed, "/")

	var words []string
	for i, seg := range raw {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		word := sanitizeSegment(seg)
		if word == "" {
			continue
		}
		if i+1 < len(raw) && strings.HasPrefix(raw[i+1], "{") {
			word = singularize(word)
		}
		words = append(words, word)
	}
	if len(words) == 0 {
		return words
	}
	last := len(words) - 1
	switch verb {
	case "list":
		words[last] = pluralize(words[last])
	case "create":
		words[last] = singularize(words[last])
	}
	return words
}

// hasPathID reports whether the path contains an identifier placeholder.
func hasPathID(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, "{") {
			return true
		}
	}
	return false
}

// namer derives candidate names and resolves collisions through the
// NamingRegistry.
type namer struct {
	service   string
	overrides *Overrides
	logger    *zap.Logger
}

// candidate derives the naive {service}_{verb}_{resource} name for one
// operation, before collision resolution.
func (n *namer) candidate(method, path string) string {
	verb := methodVerbs[method]
	if verb == "" {
		verb = strings.ToLower(method)
	}
	if (method == "GET" || method == "HEAD") && hasPathID(path) {
		verb = "get"
	}
	words := pathWords(path, verb)
	if len(words) == 0 {
		return fmt.Sprintf("%s_%s_root", n.service, verb)
	}
	return fmt.Sprintf("%s_%s_%s", n.service, verb, strings.Join(words, "_"))
}

// NamingRegistry maps candidate names to the operations that produced them.
// It lives for one compilation run: populated here, read by the assembler,
// then discarded.
type NamingRegistry struct {
	byName map[string][]string
}

func newNamingRegistry() *NamingRegistry {
	return &NamingRegistry{byName: map[string][]string{}}
}

func (r *NamingRegistry) add(name, opKey string) {
	r.byName[name] = append(r.byName[name], opKey)
}

// Operations returns the operation keys registered under a name.
func (r *NamingRegistry) Operations(name string) []string {
	return r.byName[name]
}

// assign derives a final, collision-free name for every operation, in input
// order. Collisions are resolved in order: operator override, singularized
// variant with the next distinguishing path segment, deterministic numeric
// suffix (with a logged warning). A name that still collides afterwards,
// including an override colliding with another override, is a fatal
// NamingCollisionError.
func (n *namer) assign(ops []Operation) ([]string, *NamingRegistry, error) {
	registry := newNamingRegistry()
	candidates := make([]string, len(ops))
	overridden := make([]bool, len(ops))
	for i, op := range ops {
		if name, ok := n.overrides.nameFor(op.Method, op.Path); ok {
			candidates[i] = name
			overridden[i] = true
		} else {
			candidates[i] = n.candidate(op.Method, op.Path)
		}
		registry.add(candidates[i], op.Key())
	}

	final := make([]string, len(ops))
	taken := map[string]int{} // name -> index of op that claimed it
	for i, op := range ops {
		name := candidates[i]
		if _, clash := taken[name]; !clash && len(registry.Operations(name)) == 1 {
			final[i] = name
			taken[name] = i
			continue
		}
		if overridden[i] {
			// An override that collides is a configuration defect, never
			// silently suffixed.
			if j, clash := taken[name]; clash {
				return nil, nil, &NamingCollisionError{Name: name, Operations: []string{ops[j].Key(), op.Key()}}
			}
			final[i] = name
			taken[name] = i
			continue
		}
		resolved, ok := n.resolveCollision(op, name, taken)
		if !ok {
			return nil, nil, &NamingCollisionError{Name: name, Operations: registry.Operations(name)}
		}
		final[i] = resolved
		taken[resolved] = i
	}

	// An overridden name may have been claimed by an earlier automatic name.
	counts := map[string][]string{}
	for i, name := range final {
		counts[name] = append(counts[name], ops[i].Key())
	}
	for name, keys := range counts {
		if len(keys) > 1 {
			return nil, nil, &NamingCollisionError{Name: name, Operations: keys}
		}
	}
	return final, registry, nil
}

// resolveCollision tries progressively more specific variants of a colliding
// candidate name. The naive candidate itself is abandoned by every member of
// the colliding group.
func (n *namer) resolveCollision(op Operation, candidate string, taken map[string]int) (string, bool) {
	variants := []string{singularizedVariant(candidate)}
	if seg := trailingPlaceholder(op.Path); seg != "" {
		variants = append(variants, singularizedVariant(candidate)+"_by_"+seg)
	}
	for _, v := range variants {
		if _, clash := taken[v]; !clash {
			if v != candidate {
				n.logger.Warn("tool name collision resolved",
					zap.String("operation", op.Key()),
					zap.String("candidate", candidate),
					zap.String("name", v))
			}
			return v, true
		}
	}
	base := singularizedVariant(candidate)
	for i := 2; i < 100; i++ {
		v := fmt.Sprintf("%s_%d", base, i)
		if _, clash := taken[v]; !clash {
			n.logger.Warn("tool name collision resolved with numeric suffix",
				zap.String("operation", op.Key()),
				zap.String("name", v))
			return v, true
		}
	}
	return "", false
}

// singularizedVariant rewrites every resource word of a name to its singular
// form, leaving the service prefix and verb untouched.
func singularizedVariant(name string) string {
	parts := strings.Split(name, "_")
	if len(parts) <= 2 {
		return name
	}
	for i := 2; i < len(parts); i++ {
		parts[i] = singularize(parts[i])
	}
	return strings.Join(parts, "_")
}

// trailingPlaceholder returns the sanitized name of the last identifier
// placeholder in the path, if any.
func trailingPlaceholder(path string) string {
	segs := strings.Split(path, "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if strings.HasPrefix(segs[i], "{") {
			return sanitizeSegment(strings.Trim(segs[i], "{}"))
		}
	}
	return ""
}
