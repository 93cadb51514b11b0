// Package jurisdoc embeds the court decision store, its query engine and the
// archive ingestion pass in another Go program, without the HTTP layer.
//
//	client, _ := jurisdoc.Open(ctx, jurisdoc.WithRedis("localhost:6379", ""))
//	defer client.Close()
//
//	sum, _ := client.Ingest(ctx)
//	hits, _ := client.Decisions().Search(ctx, "responsabilité contractuelle", 10)
//
// For tests and small corpora use WithMemory, which keeps everything in process.
package jurisdoc
