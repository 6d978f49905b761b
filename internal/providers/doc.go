// Package providers implements the Completer interface over OpenAI-compatible
// chat-completion APIs.
//
// OpenAI, DeepSeek, and local Ollama servers all speak the same wire
// protocol, so one go-openai backed client serves every provider; the
// provider name only selects the default base URL and whether an API key is
// required.
//
// Every call runs under its own timeout and its error is classified into a
// *retry.Failure at this boundary (timeout, rate_limited, auth, api_error,
// unknown). Retrying is left to the caller.
//
// Use [New] to obtain a Completer from a Config.
package providers
