// internal/extract/extract.go

// Package extract turns the collected data into display records. Captured
// network records are preferred; two DOM readers over a page snapshot act as
// fallbacks when nothing was captured.
package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/ActivityScrapexter/internal/record"
)

// Method names the strategy that produced an outcome.
type Method string

const (
	MethodNetwork    Method = "network"
	MethodDOMLabel   Method = "dom-label"
	MethodDOMVisible Method = "dom-visible"
)

// TruncationWarning accompanies visible-prompt results.
const TruncationWarning = "history was read from visible prompts; long entries may be truncated"

// Input is everything a strategy may read.
type Input struct {
	Doc      *goquery.Document
	Records  []record.Record
	Location *time.Location
}

// Outcome is the result of one successful strategy.
type Outcome struct {
	Method  Method
	Records []record.DisplayRecord
	Warning string
}

// Strategy produces display records or reports that it has no result.
type Strategy interface {
	Method() Method
	Extract(in Input) (Outcome, bool)
}

// Chain is an ordered list of strategies; the first with a result wins.
type Chain []Strategy

// DefaultChain is network capture, then delete labels, then visible prompts.
func DefaultChain(sel Selectors) Chain {
	sel = sel.Merge(DefaultSelectors())
	return Chain{
		Network{},
		DeleteLabel{Selectors: sel},
		VisiblePrompt{Selectors: sel},
	}
}

// Run evaluates the chain in order. The boolean is false only when no
// strategy produced a result.
func (c Chain) Run(in Input) (Outcome, bool) {
	for _, s := range c {
		if out, ok := s.Extract(in); ok {
			out.Method = s.Method()
			return out, true
		}
	}
	return Outcome{}, false
}

// Network converts captured records.
type Network struct{}

func (Network) Method() Method { return MethodNetwork }

func (Network) Extract(in Input) (Outcome, bool) {
	if len(in.Records) == 0 {
		return Outcome{}, false
	}
	return Outcome{Records: record.DisplayAll(in.Records, in.Location)}, true
}

// DeleteLabel reads full entry text from the accessible label of each
// entry's delete control.
type DeleteLabel struct {
	Selectors Selectors
}

func (DeleteLabel) Method() Method { return MethodDOMLabel }

func (s DeleteLabel) Extract(in Input) (Outcome, bool) {
	if in.Doc == nil {
		return Outcome{}, false
	}
	root := searchRoot(in.Doc, s.Selectors)
	if root.Find(s.Selectors.DeleteControl).Length() == 0 {
		return Outcome{}, false
	}

	prefix := strings.TrimSpace(s.Selectors.DeleteLabelPrefix)
	var out []record.DisplayRecord
	walk(root, s.Selectors, func(date string, entry *goquery.Selection) {
		label, _ := entry.Find(s.Selectors.DeleteControl).First().Attr("aria-label")
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(label), prefix))
		if date == "" || text == "" {
			return
		}
		out = append(out, record.DisplayRecord{
			FullTime: fullTime(date, entryTime(entry, s.Selectors)),
			Text:     text,
		})
	})
	return Outcome{Records: out}, true
}

// VisiblePrompt reads the rendered prompt text. It always has a result.
type VisiblePrompt struct {
	Selectors Selectors
}

func (VisiblePrompt) Method() Method { return MethodDOMVisible }

func (s VisiblePrompt) Extract(in Input) (Outcome, bool) {
	out := Outcome{Warning: TruncationWarning}
	if in.Doc == nil {
		return out, true
	}

	prefix := promptPrefix(s.Selectors.PromptPrefix)
	walk(searchRoot(in.Doc, s.Selectors), s.Selectors, func(date string, entry *goquery.Selection) {
		prompt := entry.Find(s.Selectors.Prompt).First()
		timeEl := entry.Find(s.Selectors.Time).First()
		if prompt.Length() == 0 || timeEl.Length() == 0 {
			return
		}
		text := strings.TrimSpace(prompt.Text())
		if prefix != nil {
			text = strings.TrimSpace(prefix.ReplaceAllString(text, ""))
		}
		out.Records = append(out.Records, record.DisplayRecord{
			FullTime: fullTime(date, entryTime(entry, s.Selectors)),
			Text:     text,
		})
	})
	return out, true
}

func promptPrefix(p string) *regexp.Regexp {
	p = strings.TrimSpace(p)
	if p == "" {
		return nil
	}
	return regexp.MustCompile(`^` + regexp.QuoteMeta(p) + `\s+`)
}

// searchRoot is the parent of the list container, or the body when the
// container is missing.
func searchRoot(doc *goquery.Document, sel Selectors) *goquery.Selection {
	if c := doc.Find(sel.Container).First(); c.Length() > 0 {
		if parent := c.Parent(); parent.Length() > 0 {
			return parent
		}
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

// walk visits the direct children of root in order, tracking the latest day
// group header, and calls fn for every entry element with the entry's date.
func walk(root *goquery.Selection, sel Selectors, fn func(date string, entry *goquery.Selection)) {
	current := ""
	root.Children().Each(func(_ int, el *goquery.Selection) {
		if header := el.Find(sel.DateHeader).First(); header.Length() > 0 {
			if key, ok := el.Attr(sel.DateAttribute); ok && strings.TrimSpace(key) != "" {
				current = record.KeyToDate(key)
			} else {
				current = strings.TrimSpace(header.Text())
			}
			return
		}
		if el.Is(sel.Entry) {
			fn(entryDate(el, current, sel), el)
		}
	})
}

// entryDate prefers the entry's own date attribute over the enclosing header.
func entryDate(entry *goquery.Selection, current string, sel Selectors) string {
	if key, ok := entry.Attr(sel.DateAttribute); ok && strings.TrimSpace(key) != "" {
		return record.KeyToDate(key)
	}
	return current
}

func entryTime(entry *goquery.Selection, sel Selectors) string {
	raw := entry.Find(sel.Time).First().Text()
	if sel.TimeSeparator != "" {
		raw, _, _ = strings.Cut(raw, sel.TimeSeparator)
	}
	return NormalizeClock(raw)
}

func fullTime(date, clock string) string {
	return strings.TrimSpace(date + " " + clock)
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
	"3:04:05PM",
	"3:04PM",
}

// NormalizeClock renders a visible time of day as HH:MM:SS. Text that is not
// a recognised clock is returned trimmed but otherwise unchanged.
func NormalizeClock(raw string) string {
	s := strings.Join(strings.Fields(strings.ReplaceAll(raw, "\u202f", " ")), " ")
	if s == "" {
		return ""
	}
	upper := strings.ToUpper(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, upper); err == nil {
			return t.Format("15:04:05")
		}
	}
	return s
}
