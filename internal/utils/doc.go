// Package utils provides shared low-level helpers for streaming (SSE)
// communication with AI provider APIs.
//
// Key entry points: [DoPostStream] to open a streaming POST request, and
// [SSEScanner] to read Server-Sent Events from the open response body.
package utils
