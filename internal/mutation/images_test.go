package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
)

func uploads(n int) []domain.Upload {
	out := make([]domain.Upload, n)
	for i := range out {
		out[i] = domain.Upload{FileName: "img.jpg", ContentType: "image/jpeg", Size: 10}
	}
	return out
}

func currentImages(ids ...string) []domain.Image {
	out := make([]domain.Image, len(ids))
	for i, id := range ids {
		out[i] = domain.Image{ID: id, Key: "products/p1/" + id, IsThumbnail: i == 0, SortOrder: i}
	}
	return out
}

func TestValidateImages_Valid(t *testing.T) {
	ops := &domain.ImageOps{
		Create: []domain.ImageCreate{{FileIndex: 0, IsThumbnail: ptr(true)}, {FileIndex: 2}},
		Update: []domain.ImageUpdate{{ID: "b", FileIndex: ptr(1), IsThumbnail: ptr(false)}},
		Delete: []string{"a"},
	}

	assert.NoError(t, ValidateImages(uploads(3), ops, currentImages("a", "b")))
}

func TestValidateImages_NilOps(t *testing.T) {
	assert.NoError(t, ValidateImages(nil, nil, currentImages("a")))
}

func TestValidateImages_TwoThumbnailCreates(t *testing.T) {
	ops := &domain.ImageOps{Create: []domain.ImageCreate{
		{FileIndex: 0, IsThumbnail: ptr(true)},
		{FileIndex: 1, IsThumbnail: ptr(true)},
	}}

	appErr := requireViolation(t, ValidateImages(uploads(2), ops, nil), CodeImagesValidationFailed)
	assert.Equal(t, []string{CodeMultipleThumbnails}, subCodes(appErr))
	assert.Contains(t, appErr.SubErrors()[0].Message, "create[0], create[1]")
}

func TestValidateImages_Violations(t *testing.T) {
	tests := []struct {
		name      string
		files     int
		current   []domain.Image
		ops       *domain.ImageOps
		wantCodes []string
		wantPaths []string
	}{
		{
			name:  "duplicate create fileIndex",
			files: 2,
			ops: &domain.ImageOps{Create: []domain.ImageCreate{
				{FileIndex: 1}, {FileIndex: 0}, {FileIndex: 1},
			}},
			wantCodes: []string{CodeDuplicateCreateFileIndex},
			wantPaths: []string{"create[2]"},
		},
		{
			name:    "duplicate update fileIndex",
			files:   1,
			current: currentImages("a", "b"),
			ops: &domain.ImageOps{Update: []domain.ImageUpdate{
				{ID: "a", FileIndex: ptr(0)}, {ID: "b", FileIndex: ptr(0)},
			}},
			wantCodes: []string{CodeDuplicateUpdateFileIndex},
			wantPaths: []string{"update[1]"},
		},
		{
			name:    "fileIndex shared by create and update",
			files:   1,
			current: currentImages("a"),
			ops: &domain.ImageOps{
				Create: []domain.ImageCreate{{FileIndex: 0}},
				Update: []domain.ImageUpdate{{ID: "a", FileIndex: ptr(0)}},
			},
			wantCodes: []string{CodeSharedFileIndex},
			wantPaths: []string{"update[0]"},
		},
		{
			name:    "create and update both request thumbnail",
			files:   1,
			current: currentImages("a", "b"),
			ops: &domain.ImageOps{
				Create: []domain.ImageCreate{{FileIndex: 0, IsThumbnail: ptr(true)}},
				Update: []domain.ImageUpdate{{ID: "b", IsThumbnail: ptr(true)}},
			},
			wantCodes: []string{CodeMultipleThumbnails},
			wantPaths: []string{""},
		},
		{
			name:  "create fileIndex out of bounds",
			files: 2,
			ops: &domain.ImageOps{Create: []domain.ImageCreate{
				{FileIndex: 0}, {FileIndex: 2},
			}},
			wantCodes: []string{CodeFileIndexOutOfBounds},
			wantPaths: []string{"create[1]"},
		},
		{
			name:    "update fileIndex out of bounds",
			files:   0,
			current: currentImages("a"),
			ops: &domain.ImageOps{Update: []domain.ImageUpdate{
				{ID: "a", FileIndex: ptr(0)},
			}},
			wantCodes: []string{CodeFileIndexOutOfBounds},
			wantPaths: []string{"update[0]"},
		},
		{
			name:      "negative fileIndex",
			files:     1,
			ops:       &domain.ImageOps{Create: []domain.ImageCreate{{FileIndex: -1}}},
			wantCodes: []string{CodeFileIndexOutOfBounds},
			wantPaths: []string{"create[0]"},
		},
		{
			name:      "delete every image without create",
			current:   currentImages("a", "b"),
			ops:       &domain.ImageOps{Delete: []string{"a", "b"}},
			wantCodes: []string{CodeAllImagesDeleted},
			wantPaths: []string{"delete"},
		},
		{
			name:    "duplicate update id",
			current: currentImages("a"),
			ops: &domain.ImageOps{Update: []domain.ImageUpdate{
				{ID: "a", AltText: ptr("front")}, {ID: "a", AltText: ptr("back")},
			}},
			wantCodes: []string{CodeDuplicateUpdateImageID},
			wantPaths: []string{"update[1]"},
		},
		{
			name:      "duplicate delete id",
			files:     1,
			current:   currentImages("a", "b"),
			ops:       &domain.ImageOps{Delete: []string{"a", "a"}},
			wantCodes: []string{CodeDuplicateDeleteImageID},
			wantPaths: []string{"delete[1]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := requireViolation(t, ValidateImages(uploads(tt.files), tt.ops, tt.current), CodeImagesValidationFailed)
			assert.Equal(t, tt.wantCodes, subCodes(appErr))
			assert.Equal(t, tt.wantPaths, subPaths(appErr))
		})
	}
}

func TestValidateImages_DeleteAllWithCreateAccepted(t *testing.T) {
	ops := &domain.ImageOps{
		Delete: []string{"a", "b"},
		Create: []domain.ImageCreate{{FileIndex: 0}},
	}
	assert.NoError(t, ValidateImages(uploads(1), ops, currentImages("a", "b")))
}

func TestValidateImages_ThumbnailOnDeletedImageIgnored(t *testing.T) {
	ops := &domain.ImageOps{
		Delete: []string{"b"},
		Update: []domain.ImageUpdate{{ID: "b", IsThumbnail: ptr(true)}},
		Create: []domain.ImageCreate{{FileIndex: 0, IsThumbnail: ptr(true)}},
	}
	assert.NoError(t, ValidateImages(uploads(1), ops, currentImages("a", "b")))
}

func TestValidateImages_CollectsEveryViolation(t *testing.T) {
	ops := &domain.ImageOps{
		Create: []domain.ImageCreate{
			{FileIndex: 0, IsThumbnail: ptr(true)},
			{FileIndex: 0, IsThumbnail: ptr(true)},
			{FileIndex: 5},
		},
		Delete: []string{"a", "a"},
	}

	appErr := requireViolation(t, ValidateImages(uploads(1), ops, currentImages("a")), CodeImagesValidationFailed)
	assert.Equal(t, []string{
		CodeDuplicateCreateFileIndex,
		CodeMultipleThumbnails,
		CodeFileIndexOutOfBounds,
		CodeDuplicateDeleteImageID,
	}, subCodes(appErr))
}

func TestReferencedIndices(t *testing.T) {
	ops := &domain.ImageOps{
		Create: []domain.ImageCreate{{FileIndex: 3}, {FileIndex: 0}},
		Update: []domain.ImageUpdate{{ID: "a", FileIndex: ptr(1)}, {ID: "b"}},
	}
	assert.Equal(t, []int{0, 1, 3}, ReferencedIndices(ops))
	assert.Equal(t, []int{}, ReferencedIndices(nil))
}
