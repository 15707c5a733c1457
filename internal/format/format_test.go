package format

import (
	"strings"
	"testing"
)

func TestWhatsAppConvert(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"bold and italic", "**Hello** *world*", "*Hello* _world_"},
		{"underscore bold", "__loud__ _soft_", "*loud* _soft_"},
		{"strike", "this is ~~old~~ news", "this is ~old~ news"},
		{"heading", "# Title\nbody", "*Title*\nbody"},
		{"heading with closing hashes", "## Sub ##", "*Sub*"},
		{"bullets", "- one\n* two\n+ three", "• one\n• two\n• three"},
		{"nested bullet keeps indent", "- a\n  - b", "• a\n  • b"},
		{"bullet with italic", "* item *em*", "• item _em_"},
		{"link", "see [docs](https://x.io/a)", "see docs (https://x.io/a)"},
		{"link with title", `[docs](https://x.io "Docs")`, "docs (https://x.io)"},
		{"image", "![logo](https://x.io/l.png)", "https://x.io/l.png"},
		{"horizontal rule", "a\n---\nb", "a\n───\nb"},
		{"quote", ">quoted\n> already", "> quoted\n> already"},
		{"blank lines collapse", "a\n\n\n\nb", "a\n\nb"},
		{"inline code untouched", "run `go test **./...**` now", "run `go test **./...**` now"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WhatsApp.Convert(tt.in); got != tt.want {
				t.Errorf("Convert(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDiscordConvert(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"**bold** *it*", "**bold** *it*"},
		{"# Big", "# Big"},
		{"#### Small", "**Small**"},
		{"a<br>b<BR/>c", "a\nb\nc"},
		{"![x](https://x.io/i.png)", "https://x.io/i.png"},
	}

	for _, tt := range tests {
		if got := Discord.Convert(tt.in); got != tt.want {
			t.Errorf("Convert(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCodeBlocksSurviveVerbatim(t *testing.T) {
	code := "x := **1** * 2\n# not a heading\n- not a bullet\n[a](b)\n"
	in := "Here:\n```go\n" + code + "```\nand **done**"

	for _, c := range []*Converter{WhatsApp, Discord, ForChannel("other")} {
		t.Run(c.Name(), func(t *testing.T) {
			out := c.Convert(in)
			start := strings.Index(out, "```")
			end := strings.LastIndex(out, "```")
			if start < 0 || end <= start {
				t.Fatalf("no code markers in %q", out)
			}
			inner := out[start+3 : end]
			if i := strings.IndexByte(inner, '\n'); i >= 0 {
				inner = inner[i+1:]
			}
			if inner != code {
				t.Errorf("code block changed:\n got %q\nwant %q", inner, code)
			}
		})
	}
}

func TestConvertIdempotentOnCode(t *testing.T) {
	inputs := []string{
		"```\nfoo := bar\n```",
		"```python\nprint('*hi*')\n```",
		"```one-liner```",
		"use `a_b_c` here",
	}
	for _, c := range []*Converter{WhatsApp, Discord} {
		for _, in := range inputs {
			once := c.Convert(in)
			twice := c.Convert(once)
			if once != twice {
				t.Errorf("%s: converting twice changed %q: %q -> %q", c.Name(), in, once, twice)
			}
		}
	}
}

func TestWhatsAppDropsLanguageTag(t *testing.T) {
	got := WhatsApp.Convert("```go\nfmt.Println()\n```")
	if got != "```\nfmt.Println()\n```" {
		t.Errorf("got %q", got)
	}
	got = Discord.Convert("```go\nfmt.Println()\n```")
	if got != "```go\nfmt.Println()\n```" {
		t.Errorf("discord should keep the tag, got %q", got)
	}
}

func TestSingleLineFencesKeptAsWritten(t *testing.T) {
	tests := []struct {
		name, in string
	}{
		{"inline triple backticks", "run ```print(1)``` now"},
		{"tag-like first line without closing newline", "```hello\nworld```"},
		{"bare fence", "```\n*not italic*\n```"},
	}
	for _, c := range []*Converter{WhatsApp, Discord, ForChannel("other")} {
		for _, tt := range tests {
			t.Run(c.Name()+"/"+tt.name, func(t *testing.T) {
				if got := c.Convert(tt.in); got != tt.in {
					t.Errorf("Convert(%q) = %q, want it unchanged", tt.in, got)
				}
			})
		}
	}
}

func TestForChannel(t *testing.T) {
	if ForChannel("WhatsApp") != WhatsApp {
		t.Error("whatsapp lookup should be case-insensitive")
	}
	if ForChannel("discord") != Discord {
		t.Error("discord converter expected")
	}
	if got := ForChannel("cli").Convert("**x**"); got != "**x**" {
		t.Errorf("unknown channel should pass text through, got %q", got)
	}
	if names := WhatsApp.Rules(); names[0] != "image" || names[len(names)-1] != "blank-lines" {
		t.Errorf("unexpected rule order: %v", names)
	}
}
