package ingest

import (
	"bytes"
	"io"
	"net/mail"
	"strings"
)

// EmailParser parses RFC 2822 messages (.eml). The subject line is folded
// into the content so it is searchable alongside the body.
type EmailParser struct{}

func (p *EmailParser) Name() string { return "email" }

func (p *EmailParser) CanParse(contentType, filename string) bool {
	return hasContentType(contentType, "message/rfc822") || hasExt(filename, ".eml")
}

func (p *EmailParser) Parse(data []byte) (*ParseResult, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return &ParseResult{ErrorNote: "parse email: " + err.Error()}, nil
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return &ParseResult{ErrorNote: "read email body: " + err.Error()}, nil
	}
	var b strings.Builder
	if subject := msg.Header.Get("Subject"); subject != "" {
		b.WriteString("Subject: ")
		b.WriteString(subject)
		b.WriteString("\n\n")
	}
	b.Write(body)
	return &ParseResult{Content: strings.TrimSpace(b.String())}, nil
}
