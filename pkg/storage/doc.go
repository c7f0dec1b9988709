// Package storage reads campaign attachment blobs from S3-compatible object
// storage (AWS S3, MinIO, R2).
//
//	store, err := storage.New(cfg.Storage)
//	data, obj, err := store.ReadAll(ctx, "attachments/u1/price-list.pdf")
//	if errors.Is(err, storage.ErrTooLarge) {
//		// larger than STORAGE_MAX_OBJECT_SIZE
//	}
//
// Objects are size-checked with HeadObject before the body is fetched, and
// the body read is capped again in case the object changed in between.
package storage
