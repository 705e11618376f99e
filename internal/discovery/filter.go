package discovery

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter selects units by fully qualified name. An empty Include matches
// everything; Exclude always wins.
type Filter struct {
	Include RegexList
	Exclude RegexList
}

// Match reports whether a unit named fqn should run.
func (f Filter) Match(fqn string) bool {
	return (!f.Include.IsDefined() || f.Include.AnyMatch(fqn)) && !f.Exclude.AnyMatch(fqn)
}

// IsDefined reports whether any pattern is set.
func (f Filter) IsDefined() bool {
	return f.Include.IsDefined() || f.Exclude.IsDefined()
}

// RegexList is a repeatable command line flag of regular expressions.
type RegexList struct {
	patterns []*regexp.Regexp
}

// NewRegexList compiles patterns.
func NewRegexList(patterns ...string) (RegexList, error) {
	var l RegexList
	for _, p := range patterns {
		if err := l.Set(p); err != nil {
			return RegexList{}, err
		}
	}
	return l, nil
}

func (l RegexList) String() string {
	ss := make([]string, 0, len(l.patterns))
	for _, p := range l.patterns {
		ss = append(ss, `"`+p.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set is called by the command line parser.
func (l *RegexList) Set(value string) error {
	rx, err := regexp.Compile(value)
	if err != nil {
		return fmt.Errorf("invalid regex %q: %w", value, err)
	}
	l.patterns = append(l.patterns, rx)
	return nil
}

// Type names the flag value kind in help output.
func (l *RegexList) Type() string { return "regex" }

func (l RegexList) IsDefined() bool {
	return len(l.patterns) != 0
}

func (l RegexList) AnyMatch(s string) bool {
	for _, p := range l.patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
