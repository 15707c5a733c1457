// Package format rewrites the backend's Markdown answers into the rich-text
// dialect of each chat surface.
//
// A Converter applies an ordered list of regexp rules. Before the rules run,
// fenced code blocks and inline code spans are swapped for placeholders so
// no rule can touch them; they are put back verbatim after the last rule.
package format

import (
	"regexp"
	"strconv"
	"strings"
)

// Rule is one rewrite step. Replace uses regexp.Expand syntax ($1, ${name}).
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
}

// Converter rewrites text with an ordered rule list.
type Converter struct {
	name  string
	rules []Rule

	// stripLang drops the language tag of multi-line code blocks.
	stripLang bool
}

// Placeholder delimiters. Control characters never appear in chat text.
const (
	phOpen  = "\x00"
	phClose = "\x01"
)

var (
	fencePattern  = regexp.MustCompile("(?s)```.*?```")
	langPattern   = regexp.MustCompile("(?s)^```([A-Za-z0-9_+-]+)\\n(.*\\n)```$")
	inlinePattern = regexp.MustCompile("`[^`\\n]+`")
	phPattern     = regexp.MustCompile(`\x00([fi])([0-9]+)\x01`)
)

// Name identifies the dialect.
func (c *Converter) Name() string { return c.name }

// Rules returns the rule names in application order.
func (c *Converter) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Convert applies every rule in order and restores protected code last.
func (c *Converter) Convert(text string) string {
	if text == "" {
		return text
	}

	var saved []string
	protect := func(kind string) func(string) string {
		return func(m string) string {
			saved = append(saved, m)
			return phOpen + kind + strconv.Itoa(len(saved)-1) + phClose
		}
	}
	text = fencePattern.ReplaceAllStringFunc(text, protect("f"))
	text = inlinePattern.ReplaceAllStringFunc(text, protect("i"))

	for _, r := range c.rules {
		text = r.Pattern.ReplaceAllString(text, r.Replace)
	}

	return phPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := phPattern.FindStringSubmatch(m)
		idx, _ := strconv.Atoi(sub[2])
		if idx >= len(saved) {
			return m
		}
		if sub[1] == "f" && c.stripLang {
			return untagged(saved[idx])
		}
		return saved[idx]
	})
}

// untagged removes the language tag from a block whose tag and closing
// marker each sit on their own line. Anything else is returned as is.
func untagged(block string) string {
	sub := langPattern.FindStringSubmatch(block)
	if sub == nil {
		return block
	}
	return "```\n" + sub[2] + "```"
}

// identity leaves text untouched.
var identity = &Converter{name: "plain"}

// ForChannel returns the converter for a transport name. Unknown channels
// get a converter without rules.
func ForChannel(channel string) *Converter {
	switch strings.ToLower(channel) {
	case "whatsapp":
		return WhatsApp
	case "discord":
		return Discord
	default:
		return identity
	}
}
