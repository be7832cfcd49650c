// Package chat owns the conversation domain: the persisted conversation and
// message model, the service-level error taxonomy, the conversation state
// manager (lookup-or-create, capacity and windowing rules, provider-switch
// bookkeeping, turn persistence), and the provider health probe.
//
// The package writes conversations exclusively through a [ConversationStore];
// nothing else in the gateway mutates persisted conversation state.
package chat
