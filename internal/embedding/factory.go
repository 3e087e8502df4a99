package embedding

import "fmt"

// NewEmbedder creates an embedder for the given provider name.
// "hash" (default) is the deterministic stand-in; "onnx" loads a local model
// and requires a CGO build with the onnxruntime library installed.
func NewEmbedder(provider, modelPath string, dimensions, maxTokens, cacheSize int) (Embedder, error) {
	switch provider {
	case "hash", "":
		return NewHashEmbedder(dimensions, cacheSize), nil
	case "onnx":
		return NewONNXEmbedder(modelPath, dimensions, maxTokens, cacheSize)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: hash, onnx)", provider)
	}
}
