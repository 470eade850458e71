package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
	"github.com/utafrali/EcommerceGo/catalog/internal/mutation"
	"github.com/utafrali/EcommerceGo/catalog/internal/storage"
)

const blobDeleteConcurrency = 4

// applyImages uploads the files the resolved batch references and folds the
// batch into the image set. It returns the keys it uploaded; when an upload
// fails the earlier ones are already deleted again.
func (s *ProductService) applyImages(
	ctx context.Context,
	productID string,
	current []domain.Image,
	resolved *ResolvedMutation,
	uploads []domain.Upload,
) (mutation.ImagePlan, []string, error) {
	files := make(map[int]mutation.StoredFile, len(resolved.Thumbnail.ReferencedIndices))
	uploaded := make([]string, 0, len(resolved.Thumbnail.ReferencedIndices))

	for _, idx := range resolved.Thumbnail.ReferencedIndices {
		f, err := s.upload(ctx, productID, uploads[idx])
		if err != nil {
			s.compensate(ctx, uploaded)
			return mutation.ImagePlan{}, nil, fmt.Errorf("upload image file %d: %w", idx, err)
		}
		files[idx] = f
		uploaded = append(uploaded, f.Key)
	}

	plan := mutation.ApplyImages(productID, current, resolved.Thumbnail, files, s.newID)
	return plan, uploaded, nil
}

func (s *ProductService) upload(ctx context.Context, productID string, u domain.Upload) (mutation.StoredFile, error) {
	rc, err := u.Open()
	if err != nil {
		return mutation.StoredFile{}, fmt.Errorf("open %s: %w", u.FileName, err)
	}
	defer rc.Close()

	res, err := s.blobs.Upload(ctx, &storage.UploadInput{
		Key:         storage.ImageKey(productID, s.newID(), u.FileName),
		ContentType: u.ContentType,
		Size:        u.Size,
		Data:        rc,
	})
	if err != nil {
		return mutation.StoredFile{}, err
	}
	return mutation.StoredFile{Key: res.Key, URL: res.URL}, nil
}

// compensate deletes blobs uploaded for a mutation that was not persisted.
// It runs even when ctx was canceled.
func (s *ProductService) compensate(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		err := s.blobs.Delete(ctx, key)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.metrics.compensated(false)
			s.log(ctx).ErrorContext(ctx, "failed to delete orphaned blob",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.metrics.compensated(true)
	}
}

// removeBlobs deletes blobs no longer referenced after a commit. Failures
// are logged only.
func (s *ProductService) removeBlobs(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(blobDeleteConcurrency)
	for _, key := range keys {
		if key == "" {
			continue
		}
		g.Go(func() error {
			if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
				s.log(ctx).WarnContext(ctx, "failed to delete superseded blob",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// supersededKeys lists the blobs of deleted images and the previous files of
// replaced ones.
func supersededKeys(plan mutation.ImagePlan) []string {
	keys := make([]string, 0, len(plan.Deleted)+len(plan.Replaced))
	for _, img := range plan.Deleted {
		keys = append(keys, img.Key)
	}
	for _, img := range plan.Replaced {
		keys = append(keys, img.Key)
	}
	return keys
}
