// Package s3 stores generated artifacts in Amazon S3 or an S3-compatible
// service (MinIO, DigitalOcean Spaces, Wasabi) using the AWS SDK v2.
//
//	var cfg s3.Config
//	config.MustLoad(&cfg)
//
//	store, err := s3.New(ctx, cfg, s3.WithUploadTimeout(time.Minute))
//	if err != nil {
//		return err
//	}
//
//	url, err := store.Put(ctx, "reports/deal_summary/42.pdf", "application/pdf", body)
//
// For S3-compatible services set Endpoint and usually ForcePathStyle. BaseURL
// overrides the generated artifact URLs, for example to point at a CDN.
//
// SDK errors are translated to the storage package's sentinel errors, so
// callers can use errors.Is(err, storage.ErrAccessDenied) and similar checks.
package s3
