package claude

import (
	"encoding/base64"

	"github.com/davext/chatgate/providers/ai"
)

// historyToClaude converts the generic conversation history into Anthropic
// message objects. The role vocabulary maps directly (user/assistant), and
// each turn's transcoded attachment parts are ordered ahead of the turn's own
// text within its content block list.
func historyToClaude(history []ai.Message) []claudeMessage {
	messages := make([]claudeMessage, 0, len(history))

	for _, msg := range history {
		claudeMsg := claudeMessage{Role: string(msg.Role)}

		for _, part := range msg.Parts {
			claudeMsg.Content = append(claudeMsg.Content, partToBlock(part))
		}

		if msg.Content != "" || len(claudeMsg.Content) == 0 {
			claudeMsg.Content = append(claudeMsg.Content, contentBlock{
				Type: "text",
				Text: msg.Content,
			})
		}

		messages = append(messages, claudeMsg)
	}

	return messages
}

// partToBlock converts one generic content part into an Anthropic content
// block. Images map to "image" blocks, PDFs to "document" blocks, and text
// parts (including the delimited attached-file fallback) to "text" blocks.
func partToBlock(part ai.ContentPart) contentBlock {
	if part.Type == ai.ContentTypeFile {
		blockType := "image"
		if part.MIMEType == "application/pdf" {
			blockType = "document"
		}
		return contentBlock{
			Type: blockType,
			Source: &blockSource{
				Type:      "base64",
				MediaType: part.MIMEType,
				Data:      base64.StdEncoding.EncodeToString(part.Data),
			},
		}
	}

	return contentBlock{Type: "text", Text: part.Text}
}
