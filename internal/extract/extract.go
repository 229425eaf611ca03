package extract

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message/mail"
)

// Sentinels returned when a field cannot be extracted.
const (
	UnknownSender = "Unknown Sender"
	NoSubject     = "No Subject"
)

const (
	// headerScanLimit bounds how far into the text a bare address is
	// searched for, so a huge paste cannot inflate scan cost.
	headerScanLimit = 2000

	// signatureWindow bounds how far back from the end a sign-off marker
	// is searched for.
	signatureWindow = 300
)

// Message holds the fields pulled out of a raw email blob.
type Message struct {
	From    string
	Subject string
	Body    string
}

// Patterns are anchored and use explicit repetition counts so untrusted
// input cannot trigger pathological backtracking.
var (
	fromHeaderRe    = regexp.MustCompile(`(?mi)^from:[ \t]{0,8}(.{1,200})`)
	senderHeaderRe  = regexp.MustCompile(`(?mi)^sender:[ \t]{0,8}(.{1,200})`)
	subjectHeaderRe = regexp.MustCompile(`(?mi)^subject:[ \t]{0,8}(.{0,500})`)

	// Local part up to 64 chars, up to 10 domain labels of up to 63 chars.
	addressRe = regexp.MustCompile(`[A-Za-z0-9._%+-]{1,64}@[A-Za-z0-9-]{1,63}(?:\.[A-Za-z0-9-]{1,63}){1,9}`)

	headerLineRe  = regexp.MustCompile(`(?i)^(from|to|subject|sender|date|cc|bcc):`)
	subjectLikeRe = regexp.MustCompile(`(?i)^(from|to|subject|sender|date):`)
)

var signOffMarkers = []string{
	"best regards",
	"kind regards",
	"regards",
	"thanks",
	"thank you",
	"cheers",
	"sincerely",
	"sent from my",
}

// Parse extracts sender, subject and body from a raw blob. A blob that
// parses as a real RFC 822 message is read structurally first; anything
// else falls back to line heuristics.
func Parse(text string) Message {
	if looksLikeHTML(text) {
		text = htmlToText(text)
	}

	m, ok := parseStrict(text)
	if !ok {
		m = Message{}
	}
	if m.From == "" {
		m.From = Sender(text)
	}
	if m.Subject == "" {
		m.Subject = Subject(text)
	}
	if m.Body != "" {
		m.Body = StripSignature(m.Body)
	} else {
		m.Body = Body(text)
	}
	return m
}

// parseStrict reads the blob with the mail reader. It only succeeds when
// the blob has a usable header block.
func parseStrict(text string) (Message, bool) {
	mr, err := mail.CreateReader(strings.NewReader(text))
	if err != nil {
		return Message{}, false
	}

	var m Message
	if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		m.From = addrs[0].Address
	}
	if m.From == "" {
		if addrs, err := mr.Header.AddressList("Sender"); err == nil && len(addrs) > 0 {
			m.From = addrs[0].Address
		}
	}
	if subject, err := mr.Header.Subject(); err == nil {
		m.Subject = strings.TrimSpace(subject)
	}
	if m.From == "" && m.Subject == "" {
		return Message{}, false
	}

	var htmlBody string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		if h, ok := p.Header.(*mail.InlineHeader); ok {
			ct, _, _ := h.ContentType()
			body, _ := io.ReadAll(p.Body)
			if strings.HasPrefix(ct, "text/plain") && m.Body == "" {
				m.Body = strings.TrimSpace(string(body))
			} else if strings.HasPrefix(ct, "text/html") && htmlBody == "" {
				htmlBody = string(body)
			}
		}
	}
	if m.Body == "" && htmlBody != "" {
		m.Body = strings.TrimSpace(htmlToText(htmlBody))
	}

	return m, true
}

// Sender finds the sender of the blob: a From: header, then a Sender:
// header, then any bare address in a bounded prefix of the text.
func Sender(text string) string {
	for _, re := range []*regexp.Regexp{fromHeaderRe, senderHeaderRe} {
		if match := re.FindStringSubmatch(text); match != nil {
			value := strings.TrimSpace(match[1])
			// Headers like "From: John Doe <john@x.com>" carry the
			// address inside the value.
			if addr := addressRe.FindString(value); addr != "" {
				return addr
			}
			if value != "" {
				return value
			}
		}
	}

	if addr := addressRe.FindString(prefix(text, headerScanLimit)); addr != "" {
		return addr
	}
	return UnknownSender
}

// Subject finds the subject of the blob: a Subject: header, else the
// first non-empty line that is not itself a header line.
func Subject(text string) string {
	if match := subjectHeaderRe.FindStringSubmatch(text); match != nil {
		if value := strings.TrimSpace(match[1]); value != "" {
			return value
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || subjectLikeRe.MatchString(line) {
			continue
		}
		return line
	}
	return NoSubject
}

// Body returns the signature-stripped body of the blob, or "" when
// nothing usable remains.
func Body(text string) string {
	return StripSignature(rawBody(text))
}

// rawBody skips leading header lines and blank lines; the body runs from
// the first real content line to the end of the text.
func rawBody(text string) string {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || headerLineRe.MatchString(trimmed) {
			continue
		}
		start = i
		break
	}
	if start < 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[start:], "\n"))
}

// StripSignature removes a trailing "--" signature block and common
// sign-off blocks. A body that would become empty keeps its raw form.
func StripSignature(body string) string {
	raw := strings.TrimSpace(body)
	stripped := raw

	// "--" on its own line is the conventional signature delimiter.
	if lines := strings.Split(stripped, "\n"); len(lines) > 1 {
		for i, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				stripped = strings.Join(lines[:i], "\n")
				break
			}
		}
	}

	for _, marker := range signOffMarkers {
		stripped = trimSignOff(stripped, marker)
	}

	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		return raw
	}
	return stripped
}

// trimSignOff cuts the body at a line starting with the marker, looking
// only inside the trailing window so the scan stays bounded.
func trimSignOff(body, marker string) string {
	offset := 0
	if len(body) > signatureWindow {
		offset = len(body) - signatureWindow
	}
	lower := strings.ToLower(body[offset:])

	for search := 0; search < len(lower); {
		i := strings.Index(lower[search:], marker)
		if i < 0 {
			break
		}
		pos := search + i
		if pos == 0 && offset > 0 {
			// Window start is mid-line; not a line start.
			search = pos + 1
			continue
		}
		if pos == 0 || lower[pos-1] == '\n' {
			return strings.TrimRight(body[:offset+pos], " \t\n")
		}
		search = pos + 1
	}
	return body
}

// looksLikeHTML reports whether the blob is likely a pasted HTML email.
func looksLikeHTML(text string) bool {
	lower := strings.ToLower(prefix(text, headerScanLimit))
	return strings.Contains(lower, "<html") ||
		strings.Contains(lower, "<body") ||
		strings.Contains(lower, "<div") ||
		strings.Contains(lower, "<br")
}

// htmlToText flattens HTML to plain text, falling back to a tag-stripping
// regex when the document cannot be parsed.
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		re := regexp.MustCompile(`<[^>]{0,500}>`)
		return strings.TrimSpace(re.ReplaceAllString(html, " "))
	}
	doc.Find("script,style").Remove()
	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("\n")
	})
	return strings.TrimSpace(doc.Text())
}

// prefix returns at most n bytes of s without splitting a rune.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
