// Package ai defines the shared, provider-agnostic types and interfaces used
// across all chat backend implementations (Claude, Gemini, DeepSeek). Each
// provider's conversion layer is responsible for mapping these types to its
// own wire format, keeping the rest of the gateway decoupled from
// provider-specific details.
//
// The central interface is [Provider], whose StreamReply method turns a
// conversation history ([]Message) into a [ReplyStream] of incremental text
// fragments. [Registry] resolves provider identifiers to lazily constructed
// singleton clients, [Transcoder] converts file attachments into the content
// shape each backend accepts, and [Classify] sorts provider failures into a
// small closed error taxonomy.
package ai
