package embedding

import "context"

type Embedder interface {
	BatchSize() int
	Embed(ctx context.Context, strings []string) ([][]float32, error)
}
