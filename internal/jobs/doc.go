// Package jobs holds the job processors of dealqueue and the helpers that
// enqueue their jobs with per-family options.
//
// Three families are registered by Register:
//
//   - notifications (concurrency 5): durable in-app record plus best-effort
//     email and push sends running concurrently
//   - report-generation (concurrency 1): staged report rendered to PDF, Excel
//     or CSV, stored as an artifact, with a dedicated timeout
//   - document-processing (concurrency 2): OCR, analysis or conversion that
//     appends an entry to the owning deal's timeline
//
// Processors keep no state between jobs; every read and write goes through
// records.Store. Invalid payloads fail permanently. Missing records fail the
// attempt and are retried according to the job's options. A retried job may
// repeat its side effects, so a notification can be created twice.
package jobs
