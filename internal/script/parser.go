package script

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tagwright/tagwright-server/internal/normalize"
)

var (
	categoryRe          = regexp.MustCompile(`(?i)^(?:change\s+)?category\s+(\S+?)\s*->\s*(\S+)$`)
	createAliasRe       = regexp.MustCompile(`(?i)^(?:create\s+alias|aliasing|alias)\s+(\S+?)\s*->\s*(\S+)$`)
	removeAliasRe       = regexp.MustCompile(`(?i)^(?:remove\s+alias|unaliasing|unalias)\s+(\S+?)\s*->\s*(\S+)$`)
	createImplicationRe = regexp.MustCompile(`(?i)^(?:create\s+implication|implicating|implicate|imply)\s+(\S+?)\s*->\s*(\S+)$`)
	removeImplicationRe = regexp.MustCompile(`(?i)^(?:remove\s+implication|unimplicating|unimplicate|unimply)\s+(\S+?)\s*->\s*(\S+)$`)
	massUpdateRe        = regexp.MustCompile(`(?i)^(?:mass\s+update|updating|update|change)\s+(.+?)\s*->\s*(.*)$`)
)

// ParseError describes one line that could not be parsed.
type ParseError struct {
	Line   int    `json:"line"` // 1-based
	Text   string `json:"text"`
	Reason string `json:"reason,omitempty"`
}

func (e ParseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Reason, e.Text)
	}
	return fmt.Sprintf("Unparseable line %d: %s", e.Line, e.Text)
}

// ParseErrors collects every bad line of a script.
type ParseErrors []ParseError

func (e ParseErrors) Error() string {
	msgs := make([]string, len(e))
	for i, pe := range e {
		msgs[i] = pe.Error()
	}
	return strings.Join(msgs, "; ")
}

// Parse turns a script into an ActionSet. Blank lines and lines starting with
// '#' are skipped. Keywords are case-insensitive and tag names are normalized.
// On failure the returned error is a ParseErrors listing every bad line.
func Parse(text string) (*ActionSet, error) {
	var (
		actions []Action
		errs    ParseErrors
	)

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		action, err := parseLine(line)
		if err != nil {
			errs = append(errs, ParseError{Line: i + 1, Text: line, Reason: err.Error()})
			continue
		}
		if action == nil {
			errs = append(errs, ParseError{Line: i + 1, Text: line})
			continue
		}
		actions = append(actions, action)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return NewActionSet(actions...), nil
}

// MustParse is like Parse but panics on error. Intended for tests and fixtures.
func MustParse(text string) *ActionSet {
	set, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return set
}

// parseLine returns (nil, nil) when the line matches no verb.
func parseLine(line string) (Action, error) {
	if m := categoryRe.FindStringSubmatch(line); m != nil {
		tag, err := tagName(m[1])
		if err != nil {
			return nil, err
		}
		return ChangeCategory{Tag: tag, Category: normalize.Keyword(m[2])}, nil
	}

	pairVerbs := []struct {
		re   *regexp.Regexp
		make func(Pair) Action
	}{
		{createAliasRe, func(p Pair) Action { return CreateAlias{p} }},
		{removeAliasRe, func(p Pair) Action { return RemoveAlias{p} }},
		{createImplicationRe, func(p Pair) Action { return CreateImplication{p} }},
		{removeImplicationRe, func(p Pair) Action { return RemoveImplication{p} }},
	}
	for _, v := range pairVerbs {
		m := v.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		pair, err := parsePair(m[1], m[2])
		if err != nil {
			return nil, err
		}
		return v.make(pair), nil
	}

	if m := massUpdateRe.FindStringSubmatch(line); m != nil {
		ante, err := parseTokens(m[1])
		if err != nil {
			return nil, err
		}
		if len(ante) == 0 {
			return nil, fmt.Errorf("empty search")
		}
		cons, err := parseTokens(m[2])
		if err != nil {
			return nil, err
		}
		return MassUpdate{Antecedent: ante, Consequent: cons}, nil
	}

	return nil, nil
}

func parsePair(a, b string) (Pair, error) {
	ante, err := tagName(a)
	if err != nil {
		return Pair{}, err
	}
	cons, err := tagName(b)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Antecedent: ante, Consequent: cons}, nil
}

func tagName(raw string) (string, error) {
	name := normalize.TagName(raw)
	if !normalize.IsValidTagName(name) {
		return "", fmt.Errorf("invalid tag name %q", raw)
	}
	return name, nil
}

func parseTokens(s string) ([]Token, error) {
	fields := strings.Fields(s)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		var tok Token
		switch {
		case strings.HasPrefix(f, "-"):
			tok.Negated = true
			f = f[1:]
		case strings.HasPrefix(f, "~"):
			tok.Optional = true
			f = f[1:]
		}
		name := normalize.TagName(f)
		if !normalize.IsValidTagName(name) {
			return nil, fmt.Errorf("invalid tag %q", f)
		}
		tok.Name = name
		tokens = append(tokens, tok)
	}
	return tokens, nil
}
