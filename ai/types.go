package ai

// Provider kinds accepted by Config.Provider.
const (
	// ProviderOpenAI talks to an OpenAI-compatible HTTP API.
	ProviderOpenAI = "openai"
	// ProviderLocal runs an ONNX sentence-transformer in process.
	ProviderLocal = "local"
)

// DefaultMaxKeywords is how many search terms are extracted per item.
const DefaultMaxKeywords = 5
