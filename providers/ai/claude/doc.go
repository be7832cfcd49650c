// Package claude implements the [ai.Provider] interface for Anthropic's
// Messages API.
//
// It handles request conversion from the generic [ai.Message] history to the
// Messages wire format (including inline image and PDF content blocks) and
// SSE-based streaming: Anthropic's event lifecycle is reduced to the text
// deltas carried by content_block_delta events, with every other event kind
// treated as control traffic.
//
// The primary entry point is [New], which reads ANTHROPIC_API_KEY and
// ANTHROPIC_API_BASE_URL from the environment. Use [ClaudeProvider.WithAPIKey],
// [ClaudeProvider.WithBaseURL], or [ClaudeProvider.WithHttpClient] to
// configure the provider programmatically.
package claude
