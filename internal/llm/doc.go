// Package llm is the model gateway: it turns a list of chat messages and a task
// kind into one vendor request, and reports the result in a vendor-neutral
// [Response].
//
// Vendor adapters exist for OpenAI-compatible endpoints, Google Gemini,
// Anthropic and line-oriented Sakura servers. The [Gateway] owns key rotation
// and the per-endpoint client cache; [RateLimiter] is used by callers to admit
// requests before they reach the gateway.
package llm
