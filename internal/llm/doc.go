// Package llm provides chat completion clients used by the documentation Q&A workflow.
//
// # Overview
//
// A Chatter turns an ordered list of messages into a single assistant reply.
// Three providers are available:
//
//   - openai: OpenAI-compatible chat completions via github.com/sashabaranov/go-openai.
//     OPENAI_BASE_URL points the client at any compatible gateway.
//   - gemini: Google Gemini via google.golang.org/genai. System messages become the
//     system instruction, assistant messages are sent with the "model" role.
//   - echo: offline provider returning the last user message. Used for demos and tests.
//
// # Provider Selection
//
// NewFromEnv picks the provider in this order:
//  1. DOCOPS_LLM_PROVIDER (openai, gemini, echo)
//  2. OPENAI_API_KEY present: openai
//  3. GEMINI_API_KEY present: gemini
//  4. echo
//
// DOCOPS_MODEL overrides the provider's default model.
//
// # Retries
//
// Remote providers retry transient failures with exponential backoff (3 attempts,
// 100ms initial delay, 5s cap). Requests rejected by the API with a 4xx status other
// than 429 are returned immediately.
//
// # Defaults
//
// Completions are requested with temperature 0.2 and at most 2048 output tokens.
// An empty choice list from the API yields an empty reply, not an error.
package llm
