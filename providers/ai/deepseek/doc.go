// Package deepseek implements the [ai.Provider] interface for DeepSeek's
// OpenAI-compatible chat completions API.
//
// Streaming uses the /chat/completions endpoint with stream=true: SSE chunks
// carry incremental choice deltas and the stream terminates with the [DONE]
// sentinel. DeepSeek has no native binary-attachment support, so attachment
// content reaches it only through the Transcoder's text-injection fallback.
//
// The primary entry point is [New], which reads DEEPSEEK_API_KEY and
// DEEPSEEK_API_BASE_URL from the environment.
package deepseek
