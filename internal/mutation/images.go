package mutation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/catalog/pkg/errors"
)

// ValidateImages checks an image batch against the upload batch and the
// current images, collecting every violation. It returns nil or an
// *apperrors.AppError with code IMAGES_VALIDATION_FAILED.
func ValidateImages(uploads []domain.Upload, ops *domain.ImageOps, current []domain.Image) error {
	if ops == nil {
		return nil
	}

	v := imageViolations{}

	createIdx := make(map[int]bool, len(ops.Create))
	for i, c := range ops.Create {
		if createIdx[c.FileIndex] {
			v.add(CodeDuplicateCreateFileIndex, domain.OpPath(domain.OpCreate, i),
				"fileIndex %d is used by more than one create entry", c.FileIndex)
		}
		createIdx[c.FileIndex] = true
	}

	updateIdx := make(map[int]bool, len(ops.Update))
	for i, u := range ops.Update {
		if u.FileIndex == nil {
			continue
		}
		if updateIdx[*u.FileIndex] {
			v.add(CodeDuplicateUpdateFileIndex, domain.OpPath(domain.OpUpdate, i),
				"fileIndex %d is used by more than one update entry", *u.FileIndex)
		}
		updateIdx[*u.FileIndex] = true
	}

	for i, u := range ops.Update {
		if u.FileIndex != nil && createIdx[*u.FileIndex] {
			v.add(CodeSharedFileIndex, domain.OpPath(domain.OpUpdate, i),
				"fileIndex %d is used by both a create and an update entry", *u.FileIndex)
		}
	}

	deleted := make(map[string]bool, len(ops.Delete))
	for _, id := range ops.Delete {
		deleted[id] = true
	}

	var thumbs []string
	for i, c := range ops.Create {
		if isTrue(c.IsThumbnail) {
			thumbs = append(thumbs, domain.OpPath(domain.OpCreate, i))
		}
	}
	thumbIDs := make(map[string]bool)
	for i, u := range ops.Update {
		if isTrue(u.IsThumbnail) && !deleted[u.ID] && !thumbIDs[u.ID] {
			thumbIDs[u.ID] = true
			thumbs = append(thumbs, domain.OpPath(domain.OpUpdate, i))
		}
	}
	if len(thumbs) > 1 {
		v.add(CodeMultipleThumbnails, "",
			"only one image can be the thumbnail, got %d: %s", len(thumbs), strings.Join(thumbs, ", "))
	}

	for i, c := range ops.Create {
		if c.FileIndex < 0 || c.FileIndex >= len(uploads) {
			v.add(CodeFileIndexOutOfBounds, domain.OpPath(domain.OpCreate, i),
				"fileIndex %d is outside the %d uploaded file(s)", c.FileIndex, len(uploads))
		}
	}
	for i, u := range ops.Update {
		if u.FileIndex != nil && (*u.FileIndex < 0 || *u.FileIndex >= len(uploads)) {
			v.add(CodeFileIndexOutOfBounds, domain.OpPath(domain.OpUpdate, i),
				"fileIndex %d is outside the %d uploaded file(s)", *u.FileIndex, len(uploads))
		}
	}

	if len(current) > 0 && len(ops.Create) == 0 && allDeleted(current, deleted) {
		v.add(CodeAllImagesDeleted, "delete",
			"deleting every image requires at least one create entry")
	}

	seenUpdate := make(map[string]bool, len(ops.Update))
	for i, u := range ops.Update {
		if seenUpdate[u.ID] {
			v.add(CodeDuplicateUpdateImageID, domain.OpPath(domain.OpUpdate, i),
				"image %q is updated more than once", u.ID)
		}
		seenUpdate[u.ID] = true
	}

	seenDelete := make(map[string]bool, len(ops.Delete))
	for i, id := range ops.Delete {
		if seenDelete[id] {
			v.add(CodeDuplicateDeleteImageID, domain.OpPath(domain.OpDelete, i),
				"image %q is deleted more than once", id)
		}
		seenDelete[id] = true
	}

	return v.err()
}

// ReferencedIndices returns the sorted, distinct upload positions consumed by
// create and update entries.
func ReferencedIndices(ops *domain.ImageOps) []int {
	set := make(map[int]struct{})
	for _, cmd := range ops.Commands() {
		if idx, ok := cmd.FileIndex(); ok {
			set[idx] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

type imageViolations struct {
	subs []apperrors.SubError
}

func (v *imageViolations) add(code, path, format string, args ...any) {
	v.subs = append(v.subs, apperrors.SubError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	})
}

func (v *imageViolations) err() error {
	if len(v.subs) == 0 {
		return nil
	}
	return apperrors.ValidationFailed(
		CodeImagesValidationFailed,
		fmt.Sprintf("image operations are invalid: %d violation(s)", len(v.subs)),
		v.subs,
	)
}

func allDeleted(current []domain.Image, deleted map[string]bool) bool {
	for _, img := range current {
		if !deleted[img.ID] {
			return false
		}
	}
	return true
}

func isTrue(b *bool) bool  { return b != nil && *b }
func isFalse(b *bool) bool { return b != nil && !*b }
