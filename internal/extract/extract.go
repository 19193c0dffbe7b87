// Package extract evaluates declarative selector rules against rendered
// markup and returns the named fields they match.
package extract

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"gopkg.in/yaml.v3"
)

// Mode declares how a rule's matches are shaped.
type Mode int

const (
	// First takes the first matching node only.
	First Mode = iota
	// JoinText takes every match and joins the trimmed texts with newlines.
	JoinText
	// List takes every match as a separate value.
	List
)

func (m Mode) String() string {
	switch m {
	case First:
		return "first"
	case JoinText:
		return "join"
	case List:
		return "list"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// UnmarshalYAML accepts the mode names used in rule configuration.
func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "", "first":
		*m = First
	case "join":
		*m = JoinText
	case "list":
		*m = List
	default:
		return fmt.Errorf("unknown rule mode %q", s)
	}
	return nil
}

// Rule maps one named field to a CSS selector. If Attr is set the value is
// that attribute, otherwise the node's trimmed text.
type Rule struct {
	Field    string `yaml:"field"`
	Selector string `yaml:"selector"`
	Mode     Mode   `yaml:"mode"`
	Attr     string `yaml:"attr"`
}

// Fields holds extracted values keyed by field name. A field that matched
// nothing is simply absent. Values are string (First, JoinText) or
// []string (List).
type Fields map[string]any

// Text returns a string-valued field.
func (f Fields) Text(field string) (string, bool) {
	v, ok := f[field].(string)
	return v, ok
}

// List returns a list-valued field, or nil when absent.
func (f Fields) List(field string) []string {
	if v, ok := f[field].([]string); ok {
		return v
	}
	return nil
}

// Time parses a string-valued field as a date. Unparsable or absent values
// report false, never an error.
func (f Fields) Time(field string) (time.Time, bool) {
	s, ok := f.Text(field)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Extract parses content once and evaluates every rule against it. Missing
// matches leave their fields absent; the only error is unparsable markup.
func Extract(content string, rules []Rule) (Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	out := make(Fields, len(rules))
	for _, rule := range rules {
		sel := doc.Find(rule.Selector)
		switch rule.Mode {
		case First:
			node := sel.First()
			if node.Length() == 0 {
				continue
			}
			if v, ok := nodeValue(node, rule.Attr); ok {
				out[rule.Field] = v
			}
		case JoinText:
			var parts []string
			sel.Each(func(_ int, s *goquery.Selection) {
				if v, ok := nodeValue(s, rule.Attr); ok && v != "" {
					parts = append(parts, v)
				}
			})
			if len(parts) > 0 {
				out[rule.Field] = strings.Join(parts, "\n")
			}
		case List:
			var values []string
			sel.Each(func(_ int, s *goquery.Selection) {
				if v, ok := nodeValue(s, rule.Attr); ok && v != "" {
					values = append(values, v)
				}
			})
			if len(values) > 0 {
				out[rule.Field] = values
			}
		}
	}
	return out, nil
}

func nodeValue(s *goquery.Selection, attr string) (string, bool) {
	if attr != "" {
		v, ok := s.Attr(attr)
		return strings.TrimSpace(v), ok
	}
	return strings.TrimSpace(s.Text()), true
}

// ResolveLinks resolves extracted hrefs against the page URL, dropping
// fragments, unparsable values and non-HTTP schemes.
func ResolveLinks(pageURL string, hrefs []string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	var out []string
	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		abs.Fragment = ""
		out = append(out, abs.String())
	}
	return out
}
