package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"

	"guestcheckin/internal/domain"
)

// buildRawMessage renders msg as multipart/mixed. The text and HTML bodies sit in a
// multipart/alternative part inside a multipart/related part that also holds the inline
// attachments; other attachments follow at the top level.
func buildRawMessage(from string, msg *domain.EmailMessage) ([]byte, error) {
	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	var related bytes.Buffer
	relatedWriter := multipart.NewWriter(&related)
	if err := writeAlternative(relatedWriter, msg); err != nil {
		return nil, err
	}
	for _, a := range msg.Attachments {
		if a.ContentID == "" {
			continue
		}
		if err := writeAttachment(relatedWriter, a, "inline"); err != nil {
			return nil, err
		}
	}
	if err := relatedWriter.Close(); err != nil {
		return nil, err
	}

	relatedPart, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/related; boundary=%q", relatedWriter.Boundary())},
	})
	if err != nil {
		return nil, err
	}
	if _, err := relatedPart.Write(related.Bytes()); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		if a.ContentID != "" {
			continue
		}
		if err := writeAttachment(mixed, a, "attachment"); err != nil {
			return nil, err
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeAlternative(parent *multipart.Writer, msg *domain.EmailMessage) error {
	var alt bytes.Buffer
	altWriter := multipart.NewWriter(&alt)
	bodies := []struct{ contentType, body string }{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	for _, b := range bodies {
		if b.body == "" {
			continue
		}
		part, err := altWriter.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {b.contentType},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return err
		}
		if err := writeBase64(part, []byte(b.body)); err != nil {
			return err
		}
	}
	if err := altWriter.Close(); err != nil {
		return err
	}
	part, err := parent.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%q", altWriter.Boundary())},
	})
	if err != nil {
		return err
	}
	_, err = part.Write(alt.Bytes())
	return err
}

func writeAttachment(w *multipart.Writer, a domain.EmailAttachment, disposition string) error {
	header := textproto.MIMEHeader{
		"Content-Type":              {a.ContentType},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {mime.FormatMediaType(disposition, map[string]string{"filename": a.Filename})},
	}
	if a.ContentID != "" {
		header.Set("Content-ID", "<"+a.ContentID+">")
	}
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	return writeBase64(part, a.Data)
}

// writeBase64 writes data base64-encoded in 76 character lines.
func writeBase64(w io.Writer, data []byte) error {
	const lineLen = 76
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := min(lineLen, len(encoded))
		if _, err := w.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}
