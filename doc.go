// Package microvector is a small embedded vector store for Go.
//
// It keeps embedding vectors alongside arbitrary document payloads,
// answers exact top-k nearest-neighbor queries under a choice of metrics
// (cosine, dot product, euclidean, derrida), and persists each named
// partition as a single compressed snapshot file.
//
// # Quick Start
//
//	ctx := context.Background()
//	client, err := microvector.New()
//	if err != nil {
//	    panic(err)
//	}
//	defer client.Close()
//
//	_, err = client.Save(ctx, "products", []document.Document{
//	    {"text": "wireless headphones", "price": 79.99},
//	    {"text": "mechanical keyboard", "price": 129.00},
//	})
//
//	results, err := client.Search(ctx, "products", "bluetooth audio", 3)
//	for _, r := range results {
//	    fmt.Println(r.Score, r.Document)
//	}
//
// By default documents are embedded locally with an ONNX model that is
// downloaded and cached on first use. Supply your own implementation of
// embed.Embedder via WithEmbedder to use a different vector source.
//
// Search is exact brute force over the partition's vectors. There is no
// approximate index; the design targets small-to-medium collections that
// fit comfortably in memory.
package microvector
