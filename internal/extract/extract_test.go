package extract

import (
	"strings"
	"testing"
)

func TestSender(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "plain From header",
			text:     "From: john@company.com\nSubject: Help\n\nBody here",
			expected: "john@company.com",
		},
		{
			name:     "From header with display name",
			text:     "From: John Doe <john@company.com>\n\nBody here",
			expected: "john@company.com",
		},
		{
			name:     "Sender header when From absent",
			text:     "Sender: ops@example.org\n\nBody here",
			expected: "ops@example.org",
		},
		{
			name:     "From wins over Sender",
			text:     "Sender: ops@example.org\nFrom: john@company.com\n\nBody",
			expected: "john@company.com",
		},
		{
			name:     "bare address in text",
			text:     "please reach out to jane.doe@example.co.uk for details",
			expected: "jane.doe@example.co.uk",
		},
		{
			name:     "case-insensitive header",
			text:     "FROM: shout@example.com\n\nBody",
			expected: "shout@example.com",
		},
		{
			name:     "no sender anywhere",
			text:     "hello there, just checking in",
			expected: UnknownSender,
		},
		{
			name:     "address beyond scan limit is ignored",
			text:     strings.Repeat("filler text without any addresses here ", 60) + "late@example.com",
			expected: UnknownSender,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sender(tt.text); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "Subject header",
			text:     "From: a@b.com\nSubject: Printer on fire\n\nHelp",
			expected: "Printer on fire",
		},
		{
			name:     "lowercase subject header",
			text:     "subject: lowercase works\n\nbody",
			expected: "lowercase works",
		},
		{
			name:     "first non-header line as fallback",
			text:     "From: a@b.com\nTo: support@c.com\nThe VPN keeps dropping\nmore text",
			expected: "The VPN keeps dropping",
		},
		{
			name:     "plain text first line",
			text:     "hello there, just checking in",
			expected: "hello there, just checking in",
		},
		{
			name:     "only header lines",
			text:     "From: a@b.com\nDate: yesterday",
			expected: NoSubject,
		},
		{
			name:     "empty input",
			text:     "",
			expected: NoSubject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Subject(tt.text); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBody(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "headers skipped",
			text:     "From: a@b.com\nSubject: x\n\nFirst body line.\nSecond body line.",
			expected: "First body line.\nSecond body line.",
		},
		{
			name:     "cc and bcc skipped too",
			text:     "Cc: c@d.com\nBcc: e@f.com\nActual content",
			expected: "Actual content",
		},
		{
			name:     "only headers yields empty",
			text:     "From: a@b.com\nSubject: x",
			expected: "",
		},
		{
			name:     "signature delimiter removed",
			text:     "My laptop screen is cracked and needs replacement soon.\n-- \nJohn Doe\nCEO",
			expected: "My laptop screen is cracked and needs replacement soon.",
		},
		{
			name:     "sign-off block removed",
			text:     "The build server is unreachable since this morning.\n\nBest regards,\nJane",
			expected: "The build server is unreachable since this morning.",
		},
		{
			name:     "sent from my removed",
			text:     "Cannot open the shared drive from home office today.\n\nSent from my iPhone",
			expected: "Cannot open the shared drive from home office today.",
		},
		{
			name:     "all-signature body falls back to raw",
			text:     "Thanks,\nJohn",
			expected: "Thanks,\nJohn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Body(tt.text); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestStripSignatureKeepsRawWhenEmpty(t *testing.T) {
	raw := "-- \nOnly a signature"
	if got := StripSignature(raw); got != raw {
		t.Errorf("got %q, want raw body back", got)
	}
}

func TestParseFullMessage(t *testing.T) {
	text := "From: john@company.com\nSubject: Can't login to my account\n\nI've been locked out of my account for 2 hours. I need access urgently for a client meeting.\n"

	m := Parse(text)
	if m.From != "john@company.com" {
		t.Errorf("From: got %q", m.From)
	}
	if m.Subject != "Can't login to my account" {
		t.Errorf("Subject: got %q", m.Subject)
	}
	if !strings.HasPrefix(m.Body, "I've been locked out") {
		t.Errorf("Body: got %q", m.Body)
	}
}

func TestParsePlainText(t *testing.T) {
	m := Parse("hello there, just checking in")
	if m.From != UnknownSender {
		t.Errorf("From: got %q, want %q", m.From, UnknownSender)
	}
	if m.Subject != "hello there, just checking in" {
		t.Errorf("Subject: got %q", m.Subject)
	}
	if m.Body != "hello there, just checking in" {
		t.Errorf("Body: got %q", m.Body)
	}
}

func TestParseHTMLInput(t *testing.T) {
	html := "<html><body><div>The wifi connection drops every few minutes.</div><br><div>Desk 14</div></body></html>"

	m := Parse(html)
	if strings.Contains(m.Body, "<") {
		t.Errorf("Body still contains markup: %q", m.Body)
	}
	if !strings.Contains(m.Body, "wifi connection drops") {
		t.Errorf("Body lost content: %q", m.Body)
	}
}
