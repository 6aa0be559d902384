// Package storage defines where generated artifacts, such as rendered
// reports, are written. The S3 integration implements Storage for
// production; MemoryStorage serves tests and deployments without a bucket.
//
//	store := storage.NewMemoryStorage("memory://reports")
//	url, err := store.Put(ctx, "reports/deal_summary/42.pdf", "application/pdf", bytes.NewReader(pdf))
package storage
