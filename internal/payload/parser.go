// internal/payload/parser.go

// Package payload extracts records from raw history API response bodies.
// The bodies are fragments of a partially escaped array literal, so records
// are located with a tolerant pattern rather than a strict decode.
package payload

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/ActivityScrapexter/internal/record"
	"github.com/valpere/ActivityScrapexter/internal/utils"
)

const (
	// DefaultMinLength rejects bodies too short to hold a record.
	DefaultMinLength = 100
	// DefaultMarker is the literal token closing a prompt entry.
	DefaultMarker = "Gemini Apps"
)

// Predecessor is the token preceding the text field inside its group.
type Predecessor string

const (
	PredecessorNull    Predecessor = "null"
	PredecessorBracket Predecessor = "]"
)

// Delimiter is the quote style around the text field.
type Delimiter string

const (
	DelimiterEscaped Delimiter = `\"`
	DelimiterBare    Delimiter = `"`
)

// Match is one located record candidate before text decoding.
type Match struct {
	Micros      string
	Predecessor Predecessor
	Delimiter   Delimiter
	RawText     string
}

// Parser locates and decodes records in payload text. The zero value is not
// usable; build one with NewParser.
type Parser struct {
	minLength int
	pattern   *regexp.Regexp
	logger    utils.Logger
}

// Options configures a Parser.
type Options struct {
	MinLength int
	Marker    string
	Logger    utils.Logger
}

// NewParser compiles the record pattern for the configured marker.
func NewParser(opts Options) *Parser {
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	if opts.Marker == "" {
		opts.Marker = DefaultMarker
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	return &Parser{
		minLength: opts.MinLength,
		pattern:   compilePattern(opts.Marker),
		logger:    opts.Logger.WithField("component", "payload"),
	}
}

// timestampToken marks where an entry starts. Each candidate is matched only
// up to the next token, so an entry without a marker tail cannot run into
// the one after it.
var timestampToken = regexp.MustCompile(`\b\d{16}\b`)

// compilePattern builds the entry pattern, anchored at a timestamp token.
// Capture groups:
//
//	1 timestamp in microseconds (16 digits)
//	2 predecessor of the text field: null or ]
//	3 text delimited by \"
//	4 text delimited by "
func compilePattern(marker string) *regexp.Regexp {
	quotedMarker := `\\?"` + regexp.QuoteMeta(marker) + `\\?"`
	expr := `^(\d{16})[\s\S]*?(null|\])\s*,\s*` +
		`(?:\\"([\s\S]*?)\\"|"([\s\S]*?)")` +
		`\s*\]\s*,\s*(?:true|1)\s*,\s*` + quotedMarker
	return regexp.MustCompile(expr)
}

// Matches returns every record candidate in raw, in payload order.
func (p *Parser) Matches(raw string) []Match {
	if len(raw) < p.minLength {
		return nil
	}

	starts := timestampToken.FindAllStringIndex(raw, -1)
	out := make([]Match, 0, len(starts))
	for i, loc := range starts {
		end := len(raw)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		segment := raw[loc[0]:end]

		idx := p.pattern.FindStringSubmatchIndex(segment)
		if idx == nil {
			continue
		}
		m := Match{
			Micros:      segment[idx[2]:idx[3]],
			Predecessor: Predecessor(segment[idx[4]:idx[5]]),
		}
		// A group that did not take part in the match has index -1, so an
		// empty text field still identifies its branch.
		if idx[6] >= 0 {
			m.Delimiter = DelimiterEscaped
			m.RawText = segment[idx[6]:idx[7]]
		} else {
			m.Delimiter = DelimiterBare
			m.RawText = segment[idx[8]:idx[9]]
		}
		out = append(out, m)
	}
	return out
}

// Parse extracts records from raw. Malformed candidates are skipped.
func (p *Parser) Parse(raw string) []record.Record {
	records, _ := p.ParseAll(raw)
	return records
}

// ParseAll extracts records from raw and reports how many candidates were
// dropped because their text or timestamp could not be decoded.
func (p *Parser) ParseAll(raw string) ([]record.Record, int) {
	matches := p.Matches(raw)
	if len(matches) == 0 {
		return nil, 0
	}

	records := make([]record.Record, 0, len(matches))
	failures := 0
	for _, m := range matches {
		rec, err := p.decode(m)
		if err != nil {
			failures++
			p.logger.WithField("micros", m.Micros).Warnf("skipping payload entry: %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records, failures
}

func (p *Parser) decode(m Match) (record.Record, error) {
	micros, err := strconv.ParseInt(m.Micros, 10, 64)
	if err != nil {
		return record.Record{}, fmt.Errorf("invalid timestamp %q: %w", m.Micros, err)
	}

	decode := DecodeText
	if m.Delimiter == DelimiterEscaped {
		decode = DecodeNestedText
	}
	text, err := decode(m.RawText)
	if err != nil {
		return record.Record{}, err
	}

	return record.Record{
		Timestamp: micros / 1000,
		Text:      text,
	}, nil
}

// ParseDocument runs the parser over inline script contents of a page
// snapshot. History data present at page load never shows up as a request.
func (p *Parser) ParseDocument(doc *goquery.Document) []record.Record {
	if doc == nil {
		return nil
	}

	var out []record.Record
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		out = append(out, p.Parse(s.Text())...)
	})
	return out
}
