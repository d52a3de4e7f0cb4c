// Package unisearch embeds the unisearch search layer in a Go program
// without the HTTP server.
//
// A client connects to Redis, Valkey or an in-process memory store, and
// optionally to Elasticsearch for managed full-text search:
//
//	client, _ := unisearch.New(ctx,
//	    unisearch.WithRedis("localhost:6379", ""),
//	    unisearch.WithElasticsearch([]string{"http://localhost:9200"}, "", ""),
//	)
//	defer client.Close()
//
//	_, _ = client.Provision(ctx, true)
//	res, _ := client.Search(ctx, unisearch.SearchParams{Query: "calculus", Type: "notes"})
//	for _, slot := range res.Slots {
//	    fmt.Println(slot.Type, slot.Total)
//	}
//
// Searches degrade per collection: managed full-text search when its index
// answers, the store's weighted text index otherwise, and case-insensitive
// substring matching as the last resort.
package unisearch
