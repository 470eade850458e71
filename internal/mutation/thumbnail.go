package mutation

import (
	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
)

// ThumbnailRule names the resolution step that picked the thumbnail.
type ThumbnailRule int

// Resolution steps in priority order. Rules from RuleFirstCreate on are
// automatic assignments.
const (
	RuleNone ThumbnailRule = iota
	RuleExplicitCreate
	RuleExplicitUpdate
	RuleKeepCurrent
	RuleFirstCreate
	RuleReplacedUpdate
	RuleUpdatedImage
	RulePromotedCreate
	RuleFirstRemaining
)

func (r ThumbnailRule) String() string {
	switch r {
	case RuleExplicitCreate:
		return "explicit_create"
	case RuleExplicitUpdate:
		return "explicit_update"
	case RuleKeepCurrent:
		return "keep_current"
	case RuleFirstCreate:
		return "first_create"
	case RuleReplacedUpdate:
		return "replaced_update"
	case RuleUpdatedImage:
		return "updated_image"
	case RulePromotedCreate:
		return "promoted_create"
	case RuleFirstRemaining:
		return "first_remaining"
	default:
		return "none"
	}
}

// ThumbnailResolution is the outcome of ResolveThumbnail. Exactly one of
// ImageID and CreateIndex identifies the thumbnail unless Rule is RuleNone.
type ThumbnailResolution struct {
	// Ops is a copy of the input batch in which every create and update
	// entry carries an explicit IsThumbnail.
	Ops domain.ImageOps
	// ImageID is set when an existing image is the thumbnail.
	ImageID string
	// CreateIndex is the create entry holding the thumbnail, or -1.
	CreateIndex int
	Rule        ThumbnailRule
	// AutoAssigned is true when no explicit input decided the thumbnail.
	AutoAssigned bool
	// ReferencedIndices are the sorted, distinct upload positions consumed by
	// the batch. Only these files are uploaded.
	ReferencedIndices []int
}

// ResolveThumbnail decides which image of the resulting set is the thumbnail.
// It expects a batch that passed ValidateImages and never modifies its inputs.
func ResolveThumbnail(ops *domain.ImageOps, current []domain.Image) ThumbnailResolution {
	var resolved domain.ImageOps
	if ops != nil {
		resolved = ops.Clone()
	}

	res := ThumbnailResolution{
		Ops:               resolved,
		CreateIndex:       -1,
		ReferencedIndices: ReferencedIndices(ops),
	}
	res.Rule, res.ImageID, res.CreateIndex = chooseThumbnail(resolved, current)
	res.AutoAssigned = res.Rule >= RuleFirstCreate

	for i := range res.Ops.Create {
		flag := i == res.CreateIndex
		res.Ops.Create[i].IsThumbnail = &flag
	}
	for i := range res.Ops.Update {
		flag := res.ImageID != "" && res.Ops.Update[i].ID == res.ImageID
		res.Ops.Update[i].IsThumbnail = &flag
	}
	return res
}

func chooseThumbnail(ops domain.ImageOps, current []domain.Image) (ThumbnailRule, string, int) {
	deleted := make(map[string]bool, len(ops.Delete))
	for _, id := range ops.Delete {
		deleted[id] = true
	}
	existing := make(map[string]bool, len(current))
	for _, img := range current {
		existing[img.ID] = true
	}
	survives := func(id string) bool { return existing[id] && !deleted[id] }

	unset := make(map[string]bool)
	for _, u := range ops.Update {
		if isFalse(u.IsThumbnail) {
			unset[u.ID] = true
		}
	}

	for i, c := range ops.Create {
		if isTrue(c.IsThumbnail) {
			return RuleExplicitCreate, "", i
		}
	}
	for _, u := range ops.Update {
		if isTrue(u.IsThumbnail) && survives(u.ID) {
			return RuleExplicitUpdate, u.ID, -1
		}
	}
	for _, img := range current {
		if img.IsThumbnail && survives(img.ID) && !unset[img.ID] {
			return RuleKeepCurrent, img.ID, -1
		}
	}

	for i, c := range ops.Create {
		if !isFalse(c.IsThumbnail) {
			return RuleFirstCreate, "", i
		}
	}
	if len(ops.Create) == 0 {
		for _, u := range ops.Update {
			if u.FileIndex != nil && survives(u.ID) && !isFalse(u.IsThumbnail) {
				return RuleReplacedUpdate, u.ID, -1
			}
		}
	}
	for _, u := range ops.Update {
		if u.FileIndex == nil && survives(u.ID) && !isFalse(u.IsThumbnail) {
			return RuleUpdatedImage, u.ID, -1
		}
	}
	if len(ops.Create) > 0 {
		return RulePromotedCreate, "", 0
	}

	// The first remaining image wins; if every remaining image was explicitly
	// unset the first one is promoted anyway so the set keeps a thumbnail.
	for _, img := range current {
		if survives(img.ID) && !unset[img.ID] {
			return RuleFirstRemaining, img.ID, -1
		}
	}
	for _, img := range current {
		if survives(img.ID) {
			return RuleFirstRemaining, img.ID, -1
		}
	}
	return RuleNone, "", -1
}

// StoredFile locates an uploaded blob.
type StoredFile struct {
	Key string
	URL string
}

// ImagePlan is the image set that results from applying a resolved batch.
type ImagePlan struct {
	// Images is the final set in display order.
	Images []domain.Image
	// Deleted holds the current images removed by delete entries.
	Deleted []domain.Image
	// Replaced holds the previous state of images whose file was replaced.
	Replaced []domain.Image
}

// ApplyImages folds a resolution into the current images. files maps upload
// positions to stored blobs and newID mints ids for created images. Exactly
// one image of a non-empty result is the thumbnail.
func ApplyImages(productID string, current []domain.Image, res ThumbnailResolution, files map[int]StoredFile, newID func() string) ImagePlan {
	deleted := make(map[string]bool, len(res.Ops.Delete))
	for _, id := range res.Ops.Delete {
		deleted[id] = true
	}
	updates := make(map[string]domain.ImageUpdate, len(res.Ops.Update))
	for _, u := range res.Ops.Update {
		if _, dup := updates[u.ID]; !dup {
			updates[u.ID] = u
		}
	}

	plan := ImagePlan{Images: make([]domain.Image, 0, len(current)+len(res.Ops.Create))}

	for _, cur := range current {
		if deleted[cur.ID] {
			plan.Deleted = append(plan.Deleted, cur.Clone())
			continue
		}
		img := cur.Clone()
		if u, ok := updates[cur.ID]; ok {
			if u.AltText != nil {
				alt := *u.AltText
				img.AltText = &alt
			}
			if u.FileIndex != nil {
				plan.Replaced = append(plan.Replaced, cur.Clone())
				f := files[*u.FileIndex]
				img.Key, img.URL = f.Key, f.URL
			}
		}
		img.IsThumbnail = res.ImageID != "" && img.ID == res.ImageID
		img.SortOrder = len(plan.Images)
		plan.Images = append(plan.Images, img)
	}

	for i, c := range res.Ops.Create {
		f := files[c.FileIndex]
		img := domain.Image{
			ID:          newID(),
			ProductID:   productID,
			Key:         f.Key,
			URL:         f.URL,
			IsThumbnail: i == res.CreateIndex,
			SortOrder:   len(plan.Images),
		}
		if c.AltText != nil {
			alt := *c.AltText
			img.AltText = &alt
		}
		plan.Images = append(plan.Images, img)
	}

	return plan
}
