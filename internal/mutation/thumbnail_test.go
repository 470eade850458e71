package mutation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}
}

func storedFiles(indices []int) map[int]StoredFile {
	files := make(map[int]StoredFile, len(indices))
	for _, idx := range indices {
		files[idx] = StoredFile{
			Key: fmt.Sprintf("products/p1/upload-%d.jpg", idx),
			URL: fmt.Sprintf("http://blobs.local/products/p1/upload-%d.jpg", idx),
		}
	}
	return files
}

func thumbnails(images []domain.Image) []string {
	var ids []string
	for _, img := range images {
		if img.IsThumbnail {
			ids = append(ids, img.ID)
		}
	}
	return ids
}

func TestResolveThumbnail_Rules(t *testing.T) {
	tests := []struct {
		name        string
		current     []domain.Image
		ops         *domain.ImageOps
		wantRule    ThumbnailRule
		wantImageID string
		wantCreate  int
		wantAuto    bool
		wantThumb   string // id of the thumbnail after ApplyImages
	}{
		{
			name:    "explicit create wins over current thumbnail",
			current: currentImages("a", "b"),
			ops: &domain.ImageOps{Create: []domain.ImageCreate{
				{FileIndex: 0, IsThumbnail: ptr(false)},
				{FileIndex: 1, IsThumbnail: ptr(true)},
			}},
			wantRule:   RuleExplicitCreate,
			wantCreate: 1,
			wantThumb:  "new-2",
		},
		{
			name:    "explicit update wins over current thumbnail",
			current: currentImages("a", "b"),
			ops: &domain.ImageOps{Update: []domain.ImageUpdate{
				{ID: "b", IsThumbnail: ptr(true)},
			}},
			wantRule:    RuleExplicitUpdate,
			wantImageID: "b",
			wantCreate:  -1,
			wantThumb:   "b",
		},
		{
			name:        "surviving current thumbnail is kept",
			current:     currentImages("a", "b"),
			ops:         &domain.ImageOps{Create: []domain.ImageCreate{{FileIndex: 0}}, Delete: []string{"b"}},
			wantRule:    RuleKeepCurrent,
			wantImageID: "a",
			wantCreate:  -1,
			wantThumb:   "a",
		},
		{
			name:    "deleted thumbnail falls to first create not explicitly false",
			current: currentImages("a", "b"),
			ops: &domain.ImageOps{
				Delete: []string{"a"},
				Create: []domain.ImageCreate{{FileIndex: 0, IsThumbnail: ptr(false)}, {FileIndex: 1}},
			},
			wantRule:   RuleFirstCreate,
			wantCreate: 1,
			wantAuto:   true,
			wantThumb:  "new-2",
		},
		{
			name:    "unset thumbnail falls to first create",
			current: currentImages("a"),
			ops: &domain.ImageOps{
				Update: []domain.ImageUpdate{{ID: "a", IsThumbnail: ptr(false)}},
				Create: []domain.ImageCreate{{FileIndex: 0}},
			},
			wantRule:   RuleFirstCreate,
			wantCreate: 0,
			wantAuto:   true,
			wantThumb:  "new-1",
		},
		{
			name:    "update with replacement file when no create exists",
			current: currentImages("a", "b", "c"),
			ops: &domain.ImageOps{
				Delete: []string{"a"},
				Update: []domain.ImageUpdate{{ID: "c", FileIndex: ptr(0)}},
			},
			wantRule:    RuleReplacedUpdate,
			wantImageID: "c",
			wantCreate:  -1,
			wantAuto:    true,
			wantThumb:   "c",
		},
		{
			name:    "update without file takes precedence over first remaining image",
			current: currentImages("a", "b", "c"),
			ops: &domain.ImageOps{
				Delete: []string{"a"},
				Update: []domain.ImageUpdate{{ID: "c", AltText: ptr("side")}},
			},
			wantRule:    RuleUpdatedImage,
			wantImageID: "c",
			wantCreate:  -1,
			wantAuto:    true,
			wantThumb:   "c",
		},
		{
			name:    "explicitly false create is promoted when nothing else remains",
			current: currentImages("a"),
			ops: &domain.ImageOps{
				Delete: []string{"a"},
				Create: []domain.ImageCreate{{FileIndex: 0, IsThumbnail: ptr(false)}, {FileIndex: 1, IsThumbnail: ptr(false)}},
			},
			wantRule:   RulePromotedCreate,
			wantCreate: 0,
			wantAuto:   true,
			wantThumb:  "new-1",
		},
		{
			name:        "first remaining image after thumbnail deleted",
			current:     currentImages("a", "b"),
			ops:         &domain.ImageOps{Delete: []string{"a"}},
			wantRule:    RuleFirstRemaining,
			wantImageID: "b",
			wantCreate:  -1,
			wantAuto:    true,
			wantThumb:   "b",
		},
		{
			name:    "first remaining skips explicitly unset images",
			current: currentImages("a", "b"),
			ops: &domain.ImageOps{Update: []domain.ImageUpdate{
				{ID: "a", IsThumbnail: ptr(false)},
			}},
			wantRule:    RuleFirstRemaining,
			wantImageID: "b",
			wantCreate:  -1,
			wantAuto:    true,
			wantThumb:   "b",
		},
		{
			name:    "only image stays thumbnail even when unset",
			current: currentImages("a"),
			ops: &domain.ImageOps{Update: []domain.ImageUpdate{
				{ID: "a", IsThumbnail: ptr(false)},
			}},
			wantRule:    RuleFirstRemaining,
			wantImageID: "a",
			wantCreate:  -1,
			wantAuto:    true,
			wantThumb:   "a",
		},
		{
			name:       "new product without explicit flag",
			ops:        &domain.ImageOps{Create: []domain.ImageCreate{{FileIndex: 1}, {FileIndex: 0}}},
			wantRule:   RuleFirstCreate,
			wantCreate: 0,
			wantAuto:   true,
			wantThumb:  "new-1",
		},
		{
			name:       "no images at all",
			wantRule:   RuleNone,
			wantCreate: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveThumbnail(tt.ops, tt.current)

			assert.Equal(t, tt.wantRule, res.Rule, "rule %s", res.Rule)
			assert.Equal(t, tt.wantImageID, res.ImageID)
			assert.Equal(t, tt.wantCreate, res.CreateIndex)
			assert.Equal(t, tt.wantAuto, res.AutoAssigned)

			for i, c := range res.Ops.Create {
				require.NotNil(t, c.IsThumbnail, "create[%d]", i)
				assert.Equal(t, i == res.CreateIndex, *c.IsThumbnail, "create[%d]", i)
			}
			for i, u := range res.Ops.Update {
				require.NotNil(t, u.IsThumbnail, "update[%d]", i)
				assert.Equal(t, u.ID == res.ImageID, *u.IsThumbnail, "update[%d]", i)
			}

			plan := ApplyImages("p1", tt.current, res, storedFiles(res.ReferencedIndices), sequentialIDs())
			if tt.wantThumb == "" {
				assert.Empty(t, plan.Images)
				return
			}
			assert.Equal(t, []string{tt.wantThumb}, thumbnails(plan.Images))
		})
	}
}

func TestResolveThumbnail_DeletingThumbnailAutoAssignsRemaining(t *testing.T) {
	current := []domain.Image{
		{ID: "a", IsThumbnail: true},
		{ID: "b", IsThumbnail: false},
	}
	res := ResolveThumbnail(&domain.ImageOps{Delete: []string{"a"}}, current)

	assert.True(t, res.AutoAssigned)
	assert.Equal(t, "b", res.ImageID)
}

func TestResolveThumbnail_DoesNotMutateInput(t *testing.T) {
	ops := &domain.ImageOps{
		Create: []domain.ImageCreate{{FileIndex: 0}},
		Update: []domain.ImageUpdate{{ID: "a"}},
	}
	res := ResolveThumbnail(ops, currentImages("a"))

	assert.Nil(t, ops.Create[0].IsThumbnail)
	assert.Nil(t, ops.Update[0].IsThumbnail)
	assert.NotNil(t, res.Ops.Create[0].IsThumbnail)
}

func TestResolveThumbnail_ReferencedIndices(t *testing.T) {
	ops := &domain.ImageOps{
		Create: []domain.ImageCreate{{FileIndex: 2}, {FileIndex: 0}},
		Update: []domain.ImageUpdate{{ID: "a", FileIndex: ptr(1)}},
	}
	res := ResolveThumbnail(ops, currentImages("a", "b"))

	// Upload 3 is never referenced and must not be uploaded.
	assert.Equal(t, []int{0, 1, 2}, res.ReferencedIndices)
}

func TestApplyImages_BuildsFinalSet(t *testing.T) {
	current := []domain.Image{
		{ID: "a", ProductID: "p1", Key: "k-a", URL: "u-a", IsThumbnail: true, SortOrder: 0},
		{ID: "b", ProductID: "p1", Key: "k-b", URL: "u-b", SortOrder: 1},
		{ID: "c", ProductID: "p1", Key: "k-c", URL: "u-c", SortOrder: 2},
	}
	ops := &domain.ImageOps{
		Delete: []string{"a"},
		Update: []domain.ImageUpdate{{ID: "c", FileIndex: ptr(1), AltText: ptr("back")}},
		Create: []domain.ImageCreate{{FileIndex: 0, AltText: ptr("front"), IsThumbnail: ptr(true)}},
	}
	res := ResolveThumbnail(ops, current)
	files := storedFiles(res.ReferencedIndices)

	plan := ApplyImages("p1", current, res, files, sequentialIDs())

	require.Len(t, plan.Images, 3)
	assert.Equal(t, []string{"b", "c", "new-1"}, []string{plan.Images[0].ID, plan.Images[1].ID, plan.Images[2].ID})
	for i, img := range plan.Images {
		assert.Equal(t, i, img.SortOrder)
		assert.Equal(t, "p1", img.ProductID)
	}

	assert.Equal(t, files[1].Key, plan.Images[1].Key)
	assert.Equal(t, "back", *plan.Images[1].AltText)
	assert.Equal(t, files[0].URL, plan.Images[2].URL)
	assert.Equal(t, "front", *plan.Images[2].AltText)
	assert.Equal(t, []string{"new-1"}, thumbnails(plan.Images))

	require.Len(t, plan.Deleted, 1)
	assert.Equal(t, "k-a", plan.Deleted[0].Key)
	require.Len(t, plan.Replaced, 1)
	assert.Equal(t, "k-c", plan.Replaced[0].Key)

	// current is untouched
	assert.Equal(t, "k-c", current[2].Key)
	assert.True(t, current[0].IsThumbnail)
}
