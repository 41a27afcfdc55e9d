package method

import (
	"slices"
	"strings"

	"github.com/gobeam/stringy"

	"github.com/roach88/repoquery/internal/derrors"
	"github.com/roach88/repoquery/internal/queryir"
	"github.com/roach88/repoquery/internal/schema"
)

// Action is the operation a derived method performs.
type Action string

const (
	ActionSelect Action = "select"
	ActionCount  Action = "count"
	ActionExists Action = "exists"
	ActionDelete Action = "delete"
)

var actionPrefixes = map[string]Action{
	"find":   ActionSelect,
	"get":    ActionSelect,
	"query":  ActionSelect,
	"read":   ActionSelect,
	"stream": ActionSelect,
	"search": ActionSelect,
	"count":  ActionCount,
	"exists": ActionExists,
	"delete": ActionDelete,
	"remove": ActionDelete,
}

// Keyword is a comparison keyword of a criteria term.
type Keyword string

const (
	KeywordEquals           Keyword = "Equals"
	KeywordLike             Keyword = "Like"
	KeywordGreaterThan      Keyword = "GreaterThan"
	KeywordGreaterThanEqual Keyword = "GreaterThanEqual"
	KeywordLessThan         Keyword = "LessThan"
	KeywordLessThanEqual    Keyword = "LessThanEqual"
	KeywordBetween          Keyword = "Between"
	KeywordIn               Keyword = "In"
	KeywordTrue             Keyword = "True"
	KeywordFalse            Keyword = "False"
)

// keywords is ordered longest match first.
var keywords = []struct {
	kw    Keyword
	words []string
}{
	{KeywordGreaterThanEqual, []string{"Greater", "Than", "Equal"}},
	{KeywordLessThanEqual, []string{"Less", "Than", "Equal"}},
	{KeywordGreaterThan, []string{"Greater", "Than"}},
	{KeywordLessThan, []string{"Less", "Than"}},
	{KeywordBetween, []string{"Between"}},
	{KeywordIn, []string{"In"}},
	{KeywordLike, []string{"Like"}},
	{KeywordEquals, []string{"Equals"}},
	{KeywordTrue, []string{"True"}},
	{KeywordFalse, []string{"False"}},
}

// Slots returns how many arguments the keyword consumes. In takes a single
// collection argument.
func (k Keyword) Slots() int {
	switch k {
	case KeywordBetween:
		return 2
	case KeywordTrue, KeywordFalse:
		return 0
	}
	return 1
}

// Operator returns the condition operator the keyword builds.
func (k Keyword) Operator() queryir.Operator {
	switch k {
	case KeywordLike:
		return queryir.OpLike
	case KeywordGreaterThan:
		return queryir.OpGreaterThan
	case KeywordGreaterThanEqual:
		return queryir.OpGreaterOrEqual
	case KeywordLessThan:
		return queryir.OpLessThan
	case KeywordLessThanEqual:
		return queryir.OpLessOrEqual
	case KeywordBetween:
		return queryir.OpBetween
	case KeywordIn:
		return queryir.OpIn
	}
	return queryir.OpEquals
}

// Term is one parsed criteria term.
type Term struct {
	Field   schema.FieldPath
	Keyword Keyword

	// Negations counts the Not keywords around the term. Each one wraps
	// the leaf once more.
	Negations int
}

// Tree is the parsed form of a method name.
type Tree struct {
	Action Action

	// Combinator is OpAnd or OpOr when Terms holds more than one term.
	Combinator queryir.Operator

	Terms []Term
	Sorts []queryir.Sort
}

// Parse matches a method name against the entity schema.
// Errors are *derrors.DeriveError values attributed to name.
func Parse(name string, p schema.Provider) (*Tree, error) {
	m := &matcher{words: Split(name), provider: p}
	tree, err := m.parse()
	if err != nil {
		return nil, derrors.Attribute(err, name)
	}
	return tree, nil
}

type matcher struct {
	words    []string
	pos      int
	provider schema.Provider
}

func (m *matcher) done() bool { return m.pos >= len(m.words) }

func (m *matcher) peek(words ...string) bool {
	if m.pos+len(words) > len(m.words) {
		return false
	}
	return slices.Equal(m.words[m.pos:m.pos+len(words)], words)
}

func (m *matcher) accept(words ...string) bool {
	if m.peek(words...) {
		m.pos += len(words)
		return true
	}
	return false
}

// rest renders the unparsed words up to the next combinator for errors.
func (m *matcher) rest() string {
	end := m.pos
	for end < len(m.words) {
		w := m.words[end]
		if end > m.pos && (w == "And" || w == "Or" || w == "Order") {
			break
		}
		end++
	}
	return join(m.words[m.pos:end])
}

func (m *matcher) parse() (*Tree, error) {
	if len(m.words) == 0 {
		return nil, derrors.NewUnrecognizedToken("", "method name is empty")
	}
	action, ok := actionPrefixes[m.words[0]]
	if !ok {
		return nil, derrors.NewUnrecognizedToken(m.words[0], "unknown action prefix")
	}
	tree := &Tree{Action: action}
	m.pos = 1
	m.accept("All")

	if m.accept("By") {
		if err := m.criteria(tree); err != nil {
			return nil, err
		}
	}
	if m.accept("Order", "By") {
		if err := m.orderSpec(tree); err != nil {
			return nil, err
		}
	}
	if !m.done() {
		return nil, derrors.NewUnrecognizedToken(m.rest(), "expected By or OrderBy")
	}
	return tree, nil
}

func (m *matcher) criteria(tree *Tree) error {
	if m.done() {
		return derrors.NewUnrecognizedToken("By", "criteria expected after By")
	}
	for {
		term, err := m.term()
		if err != nil {
			return err
		}
		tree.Terms = append(tree.Terms, term)

		switch {
		case m.done(), m.peek("Order", "By"):
			return nil
		case m.accept("And"):
			if tree.Combinator == "" {
				tree.Combinator = queryir.OpAnd
			}
		case m.accept("Or"):
			if tree.Combinator == "" {
				tree.Combinator = queryir.OpOr
			}
		default:
			return derrors.NewUnrecognizedToken(m.rest(), "expected And, Or or OrderBy")
		}
		if m.done() {
			return derrors.NewUnrecognizedToken(m.words[m.pos-1], "dangling combinator")
		}
	}
}

func (m *matcher) term() (Term, error) {
	var t Term
	path, err := m.fieldPath()
	if err != nil && derrors.IsUnrecognizedToken(err) && m.peek("Not") {
		m.pos++
		t.Negations++
		path, err = m.fieldPath()
	}
	if err != nil {
		return Term{}, err
	}
	t.Field = path

	if m.accept("Not") {
		t.Negations++
	}
	t.Keyword = KeywordEquals
	for _, k := range keywords {
		if m.accept(k.words...) {
			t.Keyword = k.kw
			break
		}
	}
	return t, nil
}

type candidate struct {
	path schema.FieldPath
	end  int
}

// fieldPath resolves the longest run of words at the current position that
// names a schema field. Distinct paths ending at the same maximal position
// are ambiguous.
func (m *matcher) fieldPath() (schema.FieldPath, error) {
	found := m.resolve(m.pos, "")
	if len(found) == 0 {
		return schema.FieldPath{}, derrors.NewUnrecognizedToken(m.rest(), "no schema field matches")
	}

	best := slices.MaxFunc(found, func(a, b candidate) int { return a.end - b.end }).end
	var paths []string
	var match schema.FieldPath
	for _, c := range found {
		if c.end == best && !slices.Contains(paths, c.path.Path) {
			paths = append(paths, c.path.Path)
			match = c.path
		}
	}
	if len(paths) > 1 {
		slices.Sort(paths)
		return schema.FieldPath{}, derrors.NewAmbiguousFieldPath(join(m.words[m.pos:best]), paths)
	}
	m.pos = best
	return match, nil
}

// resolve collects every schema path that starts at word pos under prefix,
// descending into nested fields. A boundary word ends the current segment.
func (m *matcher) resolve(pos int, prefix string) []candidate {
	var found []candidate
	for end := pos + 1; end <= len(m.words); end++ {
		if m.words[end-1] == boundary {
			break
		}
		for _, name := range segmentNames(m.words[pos:end]) {
			full := name
			if prefix != "" {
				full = prefix + "." + name
			}
			fp, ok := m.provider.ResolveField(full)
			if !ok {
				continue
			}
			found = append(found, candidate{path: fp, end: end})
			if fp.Nested() {
				next := end
				if next < len(m.words) && m.words[next] == boundary {
					next++
				}
				if next < len(m.words) {
					found = append(found, m.resolve(next, full)...)
				}
			}
		}
	}
	return found
}

// segmentNames returns the field names a run of words may spell: its
// lowerCamel and snake_case forms, and the all-lower form of a single
// acronym word.
func segmentNames(words []string) []string {
	s := join(words)
	names := []string{stringy.New(s).LcFirst()}
	if snake := stringy.New(s).SnakeCase("?", "").ToLower(); !slices.Contains(names, snake) {
		names = append(names, snake)
	}
	if len(words) == 1 && strings.ToUpper(s) == s {
		if lower := strings.ToLower(s); !slices.Contains(names, lower) {
			names = append(names, lower)
		}
	}
	return names
}

func (m *matcher) orderSpec(tree *Tree) error {
	if m.done() {
		return derrors.NewUnrecognizedToken("OrderBy", "property expected after OrderBy")
	}
	for {
		path, err := m.orderProperty()
		if err != nil {
			return err
		}
		dir := queryir.Ascending
		if m.accept("Desc") {
			dir = queryir.Descending
		} else {
			m.accept("Asc")
		}
		tree.Sorts = append(tree.Sorts, queryir.Sort{Field: path, Direction: dir})

		switch {
		case m.done():
			return nil
		case m.peek("Order", "By"):
			return derrors.NewDuplicateOrderBy()
		case m.accept("And"):
			if m.done() {
				return derrors.NewUnrecognizedToken("And", "property expected after And")
			}
		default:
			return derrors.NewUnrecognizedToken(m.rest(), "expected Asc, Desc or And")
		}
	}
}

// orderProperty resolves a sort property against the schema. A property
// the schema does not declare falls back to its literal path: each segment
// lower-cased at its first letter, underscores read as dots.
func (m *matcher) orderProperty() (string, error) {
	start := m.pos
	path, err := m.fieldPath()
	switch {
	case err == nil && (m.done() || m.words[m.pos] != boundary):
		return path.Path, nil
	case err == nil:
		m.pos = start
		err = derrors.NewUnrecognizedToken(m.rest(), "no schema field matches")
	case !derrors.IsUnrecognizedToken(err):
		return "", err
	}

	var (
		segments []string
		run      []string
	)
	for !m.done() {
		w := m.words[m.pos]
		if w == "Asc" || w == "Desc" || w == "And" || m.peek("Order", "By") {
			break
		}
		m.pos++
		if w == boundary {
			if len(run) > 0 {
				segments = append(segments, stringy.New(join(run)).LcFirst())
				run = nil
			}
			continue
		}
		run = append(run, w)
	}
	if len(run) > 0 {
		segments = append(segments, stringy.New(join(run)).LcFirst())
	}
	if len(segments) == 0 {
		return "", err
	}
	return strings.Join(segments, "."), nil
}
