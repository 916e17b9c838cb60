package mailintake

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// parseMessage splits a raw RFC822 message into its Message-Id and a plain
// text body. HTML bodies are flattened to text so the field scanner sees the
// same shape either way.
func parseMessage(raw []byte) (messageID, bodyText string) {
	if len(raw) == 0 {
		return "", ""
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return "", string(raw)
	}

	messageID = strings.TrimSpace(msg.Header.Get("Message-Id"))
	if messageID == "" {
		messageID = strings.TrimSpace(msg.Header.Get("Message-ID"))
	}

	bodyRaw, _ := io.ReadAll(io.LimitReader(msg.Body, 5<<20))
	plain, htmlPart := extractTextParts(msg.Header, bodyRaw)

	switch {
	case plain != "":
		bodyText = plain
	case htmlPart != "":
		bodyText = htmlToText(htmlPart)
	default:
		bodyText = string(bodyRaw)
	}
	return messageID, bodyText
}

// extractTextParts walks a (possibly multipart) body and returns the biggest
// text/plain and text/html parts, transfer-decoded.
func extractTextParts(h mail.Header, body []byte) (plain string, htmlPart string) {
	ct := h.Get("Content-Type")
	cte := strings.ToLower(strings.TrimSpace(h.Get("Content-Transfer-Encoding")))

	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return string(decodeTransferEncoding(body, cte)), ""
	}
	mediaType = strings.ToLower(mediaType)

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return string(decodeTransferEncoding(body, cte)), ""
		}

		mr := multipart.NewReader(bytes.NewReader(body), boundary)
		var bestPlain, bestHTML string
		for {
			p, err := mr.NextPart()
			if err != nil {
				break
			}
			partCTE := strings.ToLower(strings.TrimSpace(p.Header.Get("Content-Transfer-Encoding")))
			pMedia, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
			pMedia = strings.ToLower(pMedia)

			b, _ := io.ReadAll(io.LimitReader(p, 3<<20))
			b = decodeTransferEncoding(b, partCTE)

			// Nested multipart happens with forwarded notifications.
			if strings.HasPrefix(pMedia, "multipart/") {
				pl, ht := extractTextParts(mail.Header(p.Header), b)
				if len(ht) > len(bestHTML) {
					bestHTML = ht
				}
				if len(pl) > len(bestPlain) {
					bestPlain = pl
				}
				continue
			}

			switch {
			case strings.HasPrefix(pMedia, "text/html"):
				if len(b) > len(bestHTML) {
					bestHTML = string(b)
				}
			case strings.HasPrefix(pMedia, "text/plain"):
				if len(b) > len(bestPlain) {
					bestPlain = string(b)
				}
			}
		}
		return bestPlain, bestHTML
	}

	s := decodeTransferEncoding(body, cte)
	if strings.HasPrefix(mediaType, "text/html") {
		return "", string(s)
	}
	return string(s), ""
}

func decodeTransferEncoding(b []byte, cte string) []byte {
	switch cte {
	case "base64":
		dec := base64.NewDecoder(base64.StdEncoding, bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, 5<<20))
		return out
	case "quoted-printable":
		dec := quotedprintable.NewReader(bytes.NewReader(b))
		out, _ := io.ReadAll(io.LimitReader(dec, 5<<20))
		return out
	default:
		return b
	}
}

// htmlToText flattens notification HTML to line-oriented text. Block elements
// become line breaks so "Name: ..." rows survive as separate lines.
func htmlToText(htmlBody string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return htmlBody
	}
	doc.Find("script, style").Remove()
	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("\n")
	})

	var lines []string
	doc.Find("p, div, td, li, h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		// Skip containers; leaf blocks carry the actual rows.
		if s.Children().Filter("p, div, td, li, h1, h2, h3").Length() > 0 {
			return
		}
		if t := strings.TrimSpace(s.Text()); t != "" {
			lines = append(lines, t)
		}
	})
	if len(lines) == 0 {
		return strings.TrimSpace(doc.Text())
	}
	return strings.Join(lines, "\n")
}

// leadFields is what a web-to-lead notification email carries.
type leadFields struct {
	Name    string
	Phone   string
	Email   string
	Address string
	City    string
	State   string
	Zip     string
	Message string
}

var fieldLabels = map[string]*regexp.Regexp{
	"name":    regexp.MustCompile(`(?i)^(?:customer\s+)?name\s*:\s*(.+)$`),
	"phone":   regexp.MustCompile(`(?i)^(?:phone|phone\s+number|tel)\s*:\s*(.+)$`),
	"email":   regexp.MustCompile(`(?i)^(?:e-?mail)\s*:\s*(.+)$`),
	"address": regexp.MustCompile(`(?i)^(?:address|street|street\s+address)\s*:\s*(.+)$`),
	"city":    regexp.MustCompile(`(?i)^city\s*:\s*(.+)$`),
	"state":   regexp.MustCompile(`(?i)^state\s*:\s*(.+)$`),
	"zip":     regexp.MustCompile(`(?i)^(?:zip|zip\s+code|postal\s+code)\s*:\s*(.+)$`),
}

var messageLabel = regexp.MustCompile(`(?i)^(?:message|comments?|project\s+details?|description)\s*:\s*(.*)$`)

// parseLeadFields scans label: value lines. Everything after a message label
// is collected verbatim so date phrases inside it stay intact.
func parseLeadFields(text string) leadFields {
	var lf leadFields
	var msgLines []string
	inMessage := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := messageLabel.FindStringSubmatch(line); m != nil {
			inMessage = true
			if m[1] != "" {
				msgLines = append(msgLines, m[1])
			}
			continue
		}

		matched := false
		for field, re := range fieldLabels {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			v := strings.TrimSpace(m[1])
			switch field {
			case "name":
				lf.Name = v
			case "phone":
				lf.Phone = v
			case "email":
				lf.Email = v
			case "address":
				lf.Address = v
			case "city":
				lf.City = v
			case "state":
				lf.State = v
			case "zip":
				lf.Zip = v
			}
			matched = true
			inMessage = false
			break
		}
		if !matched && inMessage {
			msgLines = append(msgLines, line)
		}
	}

	lf.Message = strings.Join(msgLines, "\n")
	return lf
}

// channelForSender maps the sender's domain to a source channel. Matching is
// by suffix so "no-reply@mail.yelp.com" hits a "yelp.com" entry.
func channelForSender(from string, senderChannels map[string]string) string {
	addr := from
	if i := strings.IndexByte(addr, ','); i >= 0 {
		addr = addr[:i]
	}
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return "email"
	}
	domain := strings.ToLower(strings.TrimSpace(addr[at+1:]))

	for suffix, channel := range senderChannels {
		suffix = strings.ToLower(suffix)
		if domain == suffix || strings.HasSuffix(domain, "."+suffix) {
			return channel
		}
	}
	return "email"
}
