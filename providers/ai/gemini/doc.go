// Package gemini implements the [ai.Provider] interface for Google's Gemini
// generative language API.
//
// It handles request conversion from the generic [ai.Message] history to
// Gemini's generateContent wire format (notably mapping the assistant role to
// "model" and attachments to inlineData parts) and SSE-based streaming via
// the streamGenerateContent endpoint. Unlike the other backends, Gemini SSE
// events each carry a cumulative response snapshot rather than a delta, so
// the stream layer tracks seen-text length and emits only the new portion.
//
// The primary entry point is [New], which reads GEMINI_API_KEY and
// GEMINI_API_BASE_URL from the environment. Use [GeminiProvider.WithAPIKey],
// [GeminiProvider.WithBaseURL], or [GeminiProvider.WithHttpClient] to
// configure the provider programmatically.
package gemini
