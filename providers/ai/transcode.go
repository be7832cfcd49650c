package ai

import (
	"fmt"
	"os"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"go.uber.org/zap"
)

// Transcoder converts stored file attachments into the content representation
// a provider variant accepts. Binary-capable providers (Claude, Gemini)
// receive image and PDF attachments as inline binary blocks; everything else
// is read as UTF-8 text and injected between delimited attached-file markers.
// HTML is additionally converted to markdown before injection so the model
// sees readable text instead of markup.
type Transcoder struct {
	logger *zap.Logger
}

// NewTranscoder returns a Transcoder that logs skipped attachments through
// logger. A nil logger falls back to zap's no-op logger.
func NewTranscoder(logger *zap.Logger) *Transcoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcoder{logger: logger}
}

// binarySupported reports whether the declared MIME type is accepted by
// binary-capable providers as an inline binary block.
func binarySupported(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}

// Transcode converts attachments into ContentParts for a provider.
// supportsBinary selects between the inline-binary path and the text-fallback
// path for image/PDF attachments. A transcoding failure for one attachment
// (unreadable file) is logged and skipped so the rest of the request
// proceeds; the returned slice preserves attachment order.
func (transcoder *Transcoder) Transcode(attachments []Attachment, supportsBinary bool) []ContentPart {
	var parts []ContentPart

	for _, attachment := range attachments {
		part, err := transcoder.transcodeOne(attachment, supportsBinary)
		if err != nil {
			transcoder.logger.Warn("skipping unreadable attachment",
				zap.String("name", attachment.Name),
				zap.String("path", attachment.Path),
				zap.Error(err))
			continue
		}
		parts = append(parts, part)
	}

	return parts
}

func (transcoder *Transcoder) transcodeOne(attachment Attachment, supportsBinary bool) (ContentPart, error) {
	data, err := os.ReadFile(attachment.Path)
	if err != nil {
		return ContentPart{}, fmt.Errorf("reading attachment %q: %w", attachment.Name, err)
	}

	if binarySupported(attachment.MIMEType) {
		if supportsBinary {
			return ContentPart{
				Type:     ContentTypeFile,
				Data:     data,
				MIMEType: attachment.MIMEType,
				Name:     attachment.Name,
			}, nil
		}
		// Binary content cannot be injected as text; substitute a short
		// placeholder so the model knows a file was attached.
		return ContentPart{
			Type: ContentTypeText,
			Text: fmt.Sprintf("[attached file %q (%s) omitted: this provider does not accept binary input]", attachment.Name, attachment.MIMEType),
			Name: attachment.Name,
		}, nil
	}

	text := string(data)

	// HTML reads badly as raw markup; convert to markdown first.
	if attachment.MIMEType == "text/html" {
		if markdown, convErr := htmltomarkdown.ConvertString(text); convErr == nil {
			text = markdown
		} else {
			transcoder.logger.Warn("html-to-markdown conversion failed, injecting raw content",
				zap.String("name", attachment.Name),
				zap.Error(convErr))
		}
	}

	return ContentPart{
		Type: ContentTypeText,
		Text: wrapAttachedFile(attachment.Name, text),
		Name: attachment.Name,
	}, nil
}

// wrapAttachedFile delimits injected file content so the model can tell where
// the attachment starts and ends and which file it came from.
func wrapAttachedFile(name, content string) string {
	var builder strings.Builder
	builder.WriteString("--- BEGIN ATTACHED FILE: ")
	builder.WriteString(name)
	builder.WriteString(" ---\n")
	builder.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		builder.WriteString("\n")
	}
	builder.WriteString("--- END ATTACHED FILE: ")
	builder.WriteString(name)
	builder.WriteString(" ---")
	return builder.String()
}
