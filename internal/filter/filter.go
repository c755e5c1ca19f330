// Package filter turns one line of free text into a predicate over tagged
// users. Input is dispatched on its leading sigil: "$" searches mutual
// groups, "@" searches names, "^$" selects untagged users, text using
// & | ( ) ! # or AND/OR/NOT is a tag expression, and anything else is a
// case-insensitive regular expression.
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode is the matching strategy a filter uses.
type Mode string

const (
	ModeNone       Mode = "none"
	ModeGroup      Mode = "group"
	ModeName       Mode = "name"
	ModeEmpty      Mode = "empty"
	ModeExpression Mode = "expression"
	ModeRegex      Mode = "regex"
)

// ParseMode accepts a mode name. "" and "auto" mean detect from input.
func ParseMode(s string) (Mode, bool, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", "auto":
		return "", false, nil
	case ModeNone, ModeGroup, ModeName, ModeEmpty, ModeExpression, ModeRegex:
		return m, true, nil
	default:
		return "", false, fmt.Errorf("unknown filter mode %q", s)
	}
}

// Detect picks the mode for input using the sigil rules.
func Detect(input string) Mode {
	s := strings.TrimSpace(input)
	switch {
	case s == "":
		return ModeNone
	case strings.HasPrefix(s, "$"):
		return ModeGroup
	case strings.HasPrefix(s, "@"):
		return ModeName
	case s == "^$":
		return ModeEmpty
	case looksLikeExpression(s):
		return ModeExpression
	default:
		return ModeRegex
	}
}

// Subject is what a filter can look at for one user.
type Subject struct {
	UserID      string
	Username    string
	DisplayName string
	Tags        []string
	Groups      []string
}

// RegexError reports a pattern that failed to compile.
type RegexError struct {
	Pattern string
	Err     error
}

func (e *RegexError) Error() string {
	return fmt.Sprintf("invalid regex %q: %v", e.Pattern, e.Err)
}

func (e *RegexError) Unwrap() error { return e.Err }

// Filter is a compiled filter.
type Filter struct {
	Mode  Mode
	Input string
	// Query is the lower-cased search text for group and name filters.
	Query string
	Expr  Node
	Regex *regexp.Regexp
	// Invalid is set when a regex failed to compile; such a filter matches
	// everyone.
	Invalid bool
}

// Compile detects the mode of input and compiles it.
//
// A tag expression that does not parse returns a nil Filter and a
// *ParseError. A regex that does not compile returns an Invalid filter that
// matches everyone together with a *RegexError.
func Compile(input string) (*Filter, error) {
	return CompileMode(input, Detect(input))
}

// CompileMode compiles input as the given mode, bypassing detection. Group
// and name sigils are stripped when present.
func CompileMode(input string, mode Mode) (*Filter, error) {
	s := strings.TrimSpace(input)
	f := &Filter{Mode: mode, Input: input}

	switch mode {
	case ModeNone, ModeEmpty:
	case ModeGroup:
		f.Query = strings.ToLower(strings.TrimPrefix(s, "$"))
	case ModeName:
		f.Query = strings.ToLower(strings.TrimPrefix(s, "@"))
	case ModeExpression:
		n, err := Parse(s)
		if err != nil {
			return nil, err
		}
		f.Expr = n
	case ModeRegex:
		re, err := regexp.Compile("(?i)" + s)
		if err != nil {
			f.Invalid = true
			return f, &RegexError{Pattern: s, Err: err}
		}
		f.Regex = re
	default:
		return nil, fmt.Errorf("unknown filter mode %q", mode)
	}
	return f, nil
}

// Match reports whether s passes the filter.
func (f *Filter) Match(s Subject) bool {
	switch f.Mode {
	case ModeGroup:
		for _, g := range s.Groups {
			if strings.Contains(strings.ToLower(g), f.Query) {
				return true
			}
		}
		return false
	case ModeName:
		return strings.Contains(strings.ToLower(s.DisplayName+s.Username), f.Query)
	case ModeEmpty:
		return len(s.Tags) == 0
	case ModeExpression:
		return Eval(f.Expr, s.Tags)
	case ModeRegex:
		if f.Invalid || f.Regex == nil {
			return true
		}
		for _, h := range haystack(s) {
			if f.Regex.MatchString(h) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// haystack lists the non-empty strings a regex filter is tried against.
func haystack(s Subject) []string {
	candidates := []string{
		s.DisplayName,
		s.Username,
		s.UserID,
		strings.Join(s.Tags, " "),
		strings.Join(s.Groups, " "),
	}
	out := candidates[:0]
	for _, c := range candidates {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
