package gemini

/*
	GEMINI GENERATECONTENT API - WIRE TYPES

	Request types model the subset of the generateContent wire format the
	gateway uses: role-tagged contents whose parts are text or inline binary
	data. Streaming uses the streamGenerateContent endpoint with alt=sse;
	each SSE event carries a full generateContentResponse snapshot rather
	than a delta.
*/

// generateContentRequest is the request body for
// POST /models/{model}:streamGenerateContent.
type generateContentRequest struct {
	Contents []content `json:"contents"`
}

// content is one conversation turn. Role is "user" or "model" — Gemini has
// no "assistant" role.
type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

// part is one block within a turn: plain text or inline binary data.
type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
	Thought    bool        `json:"thought,omitempty"` // response-only: marks reasoning parts
}

// inlineData carries base64-encoded binary content (images, PDFs).
type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded bytes
}

// generateContentResponse is one SSE event payload: a cumulative snapshot of
// the response so far.
type generateContentResponse struct {
	Candidates []candidate  `json:"candidates"`
	Error      *geminiError `json:"error,omitempty"`
}

// candidate is one generated reply variant; the gateway only reads the first.
type candidate struct {
	Content      *content `json:"content"`
	FinishReason string   `json:"finishReason,omitempty"`
}

// geminiError is the error object Gemini embeds in failed responses.
type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
