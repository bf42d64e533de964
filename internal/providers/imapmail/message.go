package imapmail

import (
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"

	"github.com/littlecapa/finbox/internal/sweep"
)

// extractParts parses a raw RFC822 payload into a plain-text body and the
// decoded attachments. Parsing is best effort: an unreadable part is logged
// and skipped, and a payload that cannot be parsed at all is treated as a
// plain-text body with no attachments.
func extractParts(raw []byte, log *logrus.Entry) (string, []sweep.Attachment) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		log.WithError(err).Debug("payload is not MIME, keeping as plain text")
		return string(raw), nil
	}
	defer mr.Close()

	var body string
	var attachments []sweep.Attachment

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.WithError(err).Warn("unreadable MIME part, skipping rest")
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			if body != "" || !strings.HasPrefix(contentType, "text/") {
				continue
			}
			data, err := io.ReadAll(part.Body)
			if err != nil {
				log.WithError(err).Warn("unreadable inline part, skipping")
				continue
			}
			body = string(data)

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				// Keep the name so the sweep can report what was lost;
				// the save step skips payload-less attachments.
				log.WithError(err).WithField("name", filename).Warn("malformed attachment")
				attachments = append(attachments, sweep.Attachment{Name: filename})
				continue
			}
			attachments = append(attachments, sweep.Attachment{Name: filename, Content: data})
		}
	}

	return body, attachments
}
