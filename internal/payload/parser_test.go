// internal/payload/parser_test.go
package payload

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/ActivityScrapexter/internal/record"
)

const (
	envelopeHead = `)]}'` + "\n\n" + `1043` + "\n" + `[["wrb.fr","QBqKff","[[`
	envelopeTail = `],null,\"next-page-token\"]",null,null,null,"generic"],["di",81],["af.httprm",81,"-4183126733196340201",27]]`
)

// escapedEntry renders one history entry inside the string-encoded inner array.
func escapedEntry(micros, predecessor, text string) string {
	group := `[null,\"` + text + `\"]`
	if predecessor == "]" {
		group = `[[\"en\",\"model\"],\"` + text + `\"]`
	}
	return `[\"c_` + micros[:6] + `\",[` + micros + `,291000000],null,` + group + `,true,\"Gemini Apps\"]`
}

// bareEntry renders one entry with bare quotes, as seen in inline script data.
func bareEntry(micros, predecessor, text string) string {
	group := `[null,"` + text + `"]`
	if predecessor == "]" {
		group = `[["en","model"],"` + text + `"]`
	}
	return `["c_` + micros[:6] + `",[` + micros + `,291000000],null,` + group + `,true,"Gemini Apps"]`
}

func wrap(entries ...string) string {
	return envelopeHead + strings.Join(entries, ",") + envelopeTail
}

func newTestParser() *Parser {
	return NewParser(Options{})
}

func TestParseRoundTrip(t *testing.T) {
	raw := wrap(escapedEntry("1700000000000000", "null", `Hello\\u4e16\\u754c`))

	records := newTestParser().Parse(raw)

	require.Len(t, records, 1)
	assert.Equal(t, record.Record{Timestamp: 1700000000000, Text: "Hello世界"}, records[0])
}

func TestParseDelimiterTolerance(t *testing.T) {
	p := newTestParser()
	escaped := wrap(escapedEntry("1700000000000000", "null", `Hello\\u4e16\\u754c`))
	bare := wrap(bareEntry("1700000000000000", "null", `Hello\u4e16\u754c`))

	escapedMatches := p.Matches(escaped)
	bareMatches := p.Matches(bare)
	require.Len(t, escapedMatches, 1)
	require.Len(t, bareMatches, 1)
	assert.Equal(t, DelimiterEscaped, escapedMatches[0].Delimiter)
	assert.Equal(t, DelimiterBare, bareMatches[0].Delimiter)

	assert.Equal(t, p.Parse(escaped), p.Parse(bare))
}

func TestParsePredecessorTolerance(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name        string
		raw         string
		predecessor Predecessor
	}{
		{"null placeholder escaped", wrap(escapedEntry("1700000000000000", "null", "Hi")), PredecessorNull},
		{"closing bracket escaped", wrap(escapedEntry("1700000000000000", "]", "Hi")), PredecessorBracket},
		{"null placeholder bare", wrap(bareEntry("1700000000000000", "null", "Hi")), PredecessorNull},
		{"closing bracket bare", wrap(bareEntry("1700000000000000", "]", "Hi")), PredecessorBracket},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := p.Matches(tt.raw)
			require.Len(t, matches, 1)
			assert.Equal(t, tt.predecessor, matches[0].Predecessor)

			records := p.Parse(tt.raw)
			require.Len(t, records, 1)
			assert.Equal(t, record.Record{Timestamp: 1700000000000, Text: "Hi"}, records[0])
		})
	}
}

func TestParseMultipleEntriesSkipsMalformed(t *testing.T) {
	raw := wrap(
		escapedEntry("1700000300000000", "null", "third"),
		escapedEntry("1700000200000000", "null", "   "),
		escapedEntry("1700000100000000", "]", "first"),
	)

	records, failures := newTestParser().ParseAll(raw)

	assert.Equal(t, 1, failures)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1700000300000), records[0].Timestamp)
	assert.Equal(t, "third", records[0].Text)
	assert.Equal(t, int64(1700000100000), records[1].Timestamp)
	assert.Equal(t, "first", records[1].Text)
}

func TestParseEntryWithoutMarkerLeavesNextIntact(t *testing.T) {
	other := `[\"c_170000\",[1700000300000000,291000000],null,[null,\"feedback\"],false,\"Other\"]`
	raw := wrap(other, escapedEntry("1700000100000000", "null", "second"))

	records, failures := newTestParser().ParseAll(raw)

	assert.Zero(t, failures)
	require.Len(t, records, 1)
	assert.Equal(t, record.Record{Timestamp: 1700000100000, Text: "second"}, records[0])
}

func TestParseShortInput(t *testing.T) {
	entry := bareEntry("1700000000000000", "null", "x")
	require.Less(t, len(entry), DefaultMinLength)

	assert.Nil(t, newTestParser().Parse(entry))
}

func TestParseCustomMarker(t *testing.T) {
	raw := strings.ReplaceAll(wrap(escapedEntry("1700000000000000", "null", "hi")), "Gemini Apps", "Bard")

	assert.Empty(t, newTestParser().Parse(raw))
	assert.Len(t, NewParser(Options{Marker: "Bard"}).Parse(raw), 1)
}

func TestParseIdempotent(t *testing.T) {
	p := newTestParser()
	raw := wrap(
		escapedEntry("1700000300000000", "null", "a"),
		escapedEntry("1700000100000000", "]", "b"),
	)

	assert.Equal(t, p.Parse(raw), p.Parse(raw))
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"unicode escape", `caf\u00e9`, "café"},
		{"surrogate pair", `smile \ud83d\ude00`, "smile 😀"},
		{"newline and quotes", `line1\nline2 \"quoted\"`, "line1\nline2 \"quoted\""},
		{"escaped backslash", `C:\\temp`, `C:\temp`},
		{"escaped backslash before n", `C:\\new`, `C:\new`},
		{"unknown escape kept", `tab\there`, `tab\there`},
		{"truncated unicode escape", `x\u12`, `x\u12`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeText(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeNestedText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"unicode escapes", `Hello\\u4e16\\u754c`, "Hello世界"},
		{"single backslash unicode", `caf\u00e9`, "café"},
		{"surrogate pair", `smile \\ud83d\\ude00`, "smile 😀"},
		{"newline and quotes", `line1\\nline2 \\\"quoted\\\"`, "line1\nline2 \"quoted\""},
		{"escaped backslash before n", `C:\\\\new`, `C:\new`},
		{"html entities and tags", `Tom &amp; Jerry \\u003cb\\u003ebold\\u003c/b\\u003e`, "Tom & Jerry bold"},
		{"narrow no-break space", `10:30\\u202fAM`, "10:30 AM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeNestedText(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeTextEmpty(t *testing.T) {
	_, err := DecodeText(`  \n `)
	assert.Error(t, err)

	_, err = DecodeNestedText(`  \\n `)
	assert.Error(t, err)
}

func TestParseKeepsEscapedBackslashBeforeN(t *testing.T) {
	p := newTestParser()

	escaped := p.Parse(wrap(escapedEntry("1700000000000000", "null", `C:\\\\new`)))
	bare := p.Parse(wrap(bareEntry("1700000000000000", "null", `C:\\new`)))

	require.Len(t, escaped, 1)
	require.Len(t, bare, 1)
	assert.Equal(t, `C:\new`, escaped[0].Text)
	assert.Equal(t, `C:\new`, bare[0].Text)
}

func TestParseDocumentInlineScripts(t *testing.T) {
	html := `<html><head><script>AF_initDataCallback({key: 'ds:0', data:[` +
		bareEntry("1700000000000000", "null", "from script") + `,` +
		bareEntry("1700000060000000", "]", "second") +
		`]});</script></head><body><script>var unrelated = 1;</script></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	records := newTestParser().ParseDocument(doc)

	require.Len(t, records, 2)
	assert.Equal(t, "from script", records[0].Text)
	assert.Equal(t, int64(1700000060000), records[1].Timestamp)
}
