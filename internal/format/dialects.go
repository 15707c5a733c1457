package format

import "regexp"

// boldMark stands in for bold while single-asterisk italics are rewritten.
const boldMark = "\x02"

var (
	imageRule = Rule{"image", regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)[^)]*\)`), "${2}"}
	blankRule = Rule{"blank-lines", regexp.MustCompile(`\n{3,}`), "\n\n"}
)

// WhatsApp converts Markdown to WhatsApp formatting:
// *bold*, _italic_, ~strike~, ```mono```, "> " quotes and • bullets.
var WhatsApp = &Converter{
	name: "whatsapp",
	rules: []Rule{
		imageRule,
		{"link", regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)[^)]*\)`), "${1} (${2})"},
		{"rule", regexp.MustCompile(`(?m)^[ \t]*(?:-{3,}|\*{3,}|_{3,})[ \t]*$`), "───"},
		{"bold", regexp.MustCompile(`\*\*(.+?)\*\*`), boldMark + "${1}" + boldMark},
		{"bold-underscore", regexp.MustCompile(`__(.+?)__`), boldMark + "${1}" + boldMark},
		{"heading", regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]+(.+?)[ \t#]*$`), boldMark + "${1}" + boldMark},
		{"bullet", regexp.MustCompile(`(?m)^([ \t]*)[*+-][ \t]+`), "${1}• "},
		{"italic", regexp.MustCompile(`\*([^*\n]+)\*`), "_${1}_"},
		{"strike", regexp.MustCompile(`~~(.+?)~~`), "~${1}~"},
		{"bold-restore", regexp.MustCompile(boldMark), "*"},
		{"quote", regexp.MustCompile(`(?m)^>[ \t]?`), "> "},
		blankRule,
	},
	// WhatsApp has no language tags on code blocks.
	stripLang: true,
}

// Discord understands most Markdown natively; only what it cannot render
// is rewritten.
var Discord = &Converter{
	name: "discord",
	rules: []Rule{
		imageRule,
		{"minor-heading", regexp.MustCompile(`(?m)^[ \t]{0,3}#{4,6}[ \t]+(.+?)[ \t#]*$`), "**${1}**"},
		{"line-break", regexp.MustCompile(`(?i)<br\s*/?>`), "\n"},
		blankRule,
	},
}
