package ai

/*
	##### PROVIDER INPUT #####
*/

// Message represents a single turn in a conversation as handed to a provider.
// Role uses the generic vocabulary; each provider maps it onto its own wire
// vocabulary during request conversion (Gemini, notably, renames assistant to
// "model").
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content,omitempty"`

	// Parts carries transcoded attachment content for this turn. Parts are
	// ordered ahead of Content within the turn's payload on every provider.
	Parts []ContentPart `json:"parts,omitempty"`
}

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Model reply
)

// ContentType discriminates the payload carried by a ContentPart.
type ContentType string

const (
	// ContentTypeText is a plain text block (including the delimited
	// attached-file fallback produced by the Transcoder).
	ContentTypeText ContentType = "text"
	// ContentTypeFile is an inline binary block (image or PDF) tagged with
	// its MIME type. Providers without native binary support substitute a
	// text placeholder during conversion.
	ContentTypeFile ContentType = "file"
)

// ContentPart is one block of multi-modal input within a message. Exactly one
// of Text or Data is populated, selected by Type.
type ContentPart struct {
	Type ContentType `json:"type"`

	// Text payload (Type == ContentTypeText).
	Text string `json:"text,omitempty"`

	// Binary payload (Type == ContentTypeFile).
	Data     []byte `json:"data,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Attachment is a reference to a stored file supplied with a user turn: a
// readable path plus the declared original name and MIME type. The gateway
// assumes the file exists and is readable for the duration of the request
// that references it; no ownership of the bytes is implied beyond that.
type Attachment struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
}
