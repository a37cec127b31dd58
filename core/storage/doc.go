// Package storage provides S3-compatible object storage used to publish
// purchase lists.
//
// It wraps the MinIO Go SDK behind the small Client interface so that tests
// can substitute mocks.Client.
//
// # Publishing
//
// A Publisher uploads each generated purchase-list file under a configurable
// prefix, creating the bucket on first use:
//
//	client, err := storage.NewClient(cfg.Storage)
//	pub := storage.NewPublisher(client, cfg.Storage.Bucket, cfg.Storage.Prefix)
//	if err := pub.EnsureBucket(ctx); err != nil { ... }
//	name, err := pub.Publish(ctx, "out/order_mouser.csv")
package storage
