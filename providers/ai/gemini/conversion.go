package gemini

import (
	"encoding/base64"

	"github.com/davext/chatgate/providers/ai"
)

// historyToContents converts the generic conversation history to Gemini
// content objects.
// Role mapping: user -> user, assistant -> model. Each turn's transcoded
// attachment parts are ordered ahead of the turn's own text.
func historyToContents(history []ai.Message) []content {
	contents := make([]content, 0, len(history))

	for _, msg := range history {
		role := "user"
		if msg.Role == ai.RoleAssistant {
			role = "model"
		}

		turn := content{Role: role}

		for _, contentPart := range msg.Parts {
			turn.Parts = append(turn.Parts, partFromGeneric(contentPart))
		}

		if msg.Content != "" || len(turn.Parts) == 0 {
			turn.Parts = append(turn.Parts, part{Text: msg.Content})
		}

		contents = append(contents, turn)
	}

	return contents
}

// partFromGeneric converts one generic content part into a Gemini part.
// Binary parts become inlineData with base64 payloads; text parts (including
// the delimited attached-file fallback) become plain text parts.
func partFromGeneric(contentPart ai.ContentPart) part {
	if contentPart.Type == ai.ContentTypeFile {
		return part{
			InlineData: &inlineData{
				MIMEType: contentPart.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(contentPart.Data),
			},
		}
	}

	return part{Text: contentPart.Text}
}
