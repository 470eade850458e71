package domain

import (
	"fmt"
	"io"
)

// VariantInput describes a variant to create.
type VariantInput struct {
	Price             int64    `json:"price" validate:"gte=0"`
	SKU               *string  `json:"sku,omitempty" validate:"omitempty,max=100"`
	Stock             int      `json:"stock" validate:"gte=0"`
	AttributeValueIDs []string `json:"attributeValueIds"`
}

// VariantUpdate describes a partial change to an existing variant. A nil
// AttributeValueIDs leaves the set unchanged; an empty non-nil slice clears it.
type VariantUpdate struct {
	ID                string   `json:"id" validate:"required"`
	Price             *int64   `json:"price,omitempty" validate:"omitempty,gte=0"`
	SKU               *string  `json:"sku,omitempty" validate:"omitempty,max=100"`
	Stock             *int     `json:"stock,omitempty" validate:"omitempty,gte=0"`
	AttributeValueIDs []string `json:"attributeValueIds,omitempty"`
}

// VariantOps is the batch of variant operations carried by one request.
type VariantOps struct {
	Create []VariantInput  `json:"create,omitempty" validate:"dive"`
	Update []VariantUpdate `json:"update,omitempty" validate:"dive"`
	Delete []string        `json:"delete,omitempty"`
}

// IsEmpty reports whether the batch carries no operation at all.
func (o *VariantOps) IsEmpty() bool {
	return o == nil || len(o.Create)+len(o.Update)+len(o.Delete) == 0
}

// ImageCreate adds a new image backed by the upload at FileIndex.
type ImageCreate struct {
	FileIndex   int     `json:"fileIndex" validate:"gte=0"`
	AltText     *string `json:"altText,omitempty" validate:"omitempty,max=500"`
	IsThumbnail *bool   `json:"isThumbnail,omitempty"`
}

// ImageUpdate changes an existing image. A non-nil FileIndex replaces the
// stored file with the upload at that position.
type ImageUpdate struct {
	ID          string  `json:"id" validate:"required"`
	FileIndex   *int    `json:"fileIndex,omitempty" validate:"omitempty,gte=0"`
	AltText     *string `json:"altText,omitempty" validate:"omitempty,max=500"`
	IsThumbnail *bool   `json:"isThumbnail,omitempty"`
}

// ImageOps is the batch of image operations carried by one request.
type ImageOps struct {
	Create []ImageCreate `json:"create,omitempty" validate:"dive"`
	Update []ImageUpdate `json:"update,omitempty" validate:"dive"`
	Delete []string      `json:"delete,omitempty"`
}

// IsEmpty reports whether the batch carries no operation at all.
func (o *ImageOps) IsEmpty() bool {
	return o == nil || len(o.Create)+len(o.Update)+len(o.Delete) == 0
}

// Clone returns a deep copy of the batch.
func (o ImageOps) Clone() ImageOps {
	cp := ImageOps{
		Create: make([]ImageCreate, len(o.Create)),
		Update: make([]ImageUpdate, len(o.Update)),
		Delete: append([]string(nil), o.Delete...),
	}
	for i, c := range o.Create {
		cp.Create[i] = c
		cp.Create[i].AltText = clonePtr(c.AltText)
		cp.Create[i].IsThumbnail = clonePtr(c.IsThumbnail)
	}
	for i, u := range o.Update {
		cp.Update[i] = u
		cp.Update[i].FileIndex = clonePtr(u.FileIndex)
		cp.Update[i].AltText = clonePtr(u.AltText)
		cp.Update[i].IsThumbnail = clonePtr(u.IsThumbnail)
	}
	return cp
}

// Upload is one file of the per-request upload batch. Operations refer to it
// by its position in the batch.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// OpKind discriminates the commands an operation batch is flattened into.
type OpKind int

// Operation kinds.
const (
	OpCreate OpKind = iota + 1
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// OpPath renders the location of an operation inside its batch, e.g. "create[2]".
func OpPath(kind OpKind, index int) string {
	return fmt.Sprintf("%s[%d]", kind, index)
}

// VariantCommand is one variant operation. Exactly one of Create, Update or
// TargetID is meaningful, as selected by Kind.
type VariantCommand struct {
	Kind     OpKind
	Index    int
	TargetID string
	Create   VariantInput
	Update   VariantUpdate
}

// Path returns the batch location of the command.
func (c VariantCommand) Path() string {
	return OpPath(c.Kind, c.Index)
}

// Commands flattens the batch into commands ordered delete, update, create so
// that folding them over current state yields the resulting variant set.
func (o *VariantOps) Commands() []VariantCommand {
	if o == nil {
		return nil
	}
	cmds := make([]VariantCommand, 0, len(o.Create)+len(o.Update)+len(o.Delete))
	for i, id := range o.Delete {
		cmds = append(cmds, VariantCommand{Kind: OpDelete, Index: i, TargetID: id})
	}
	for i, u := range o.Update {
		cmds = append(cmds, VariantCommand{Kind: OpUpdate, Index: i, TargetID: u.ID, Update: u})
	}
	for i, c := range o.Create {
		cmds = append(cmds, VariantCommand{Kind: OpCreate, Index: i, Create: c})
	}
	return cmds
}

// ImageCommand is one image operation, discriminated by Kind.
type ImageCommand struct {
	Kind     OpKind
	Index    int
	TargetID string
	Create   ImageCreate
	Update   ImageUpdate
}

// Path returns the batch location of the command.
func (c ImageCommand) Path() string {
	return OpPath(c.Kind, c.Index)
}

// FileIndex returns the upload position the command consumes, if any.
func (c ImageCommand) FileIndex() (int, bool) {
	switch c.Kind {
	case OpCreate:
		return c.Create.FileIndex, true
	case OpUpdate:
		if c.Update.FileIndex != nil {
			return *c.Update.FileIndex, true
		}
	}
	return 0, false
}

// Commands flattens the batch into commands ordered delete, update, create.
func (o *ImageOps) Commands() []ImageCommand {
	if o == nil {
		return nil
	}
	cmds := make([]ImageCommand, 0, len(o.Create)+len(o.Update)+len(o.Delete))
	for i, id := range o.Delete {
		cmds = append(cmds, ImageCommand{Kind: OpDelete, Index: i, TargetID: id})
	}
	for i, u := range o.Update {
		cmds = append(cmds, ImageCommand{Kind: OpUpdate, Index: i, TargetID: u.ID, Update: u})
	}
	for i, c := range o.Create {
		cmds = append(cmds, ImageCommand{Kind: OpCreate, Index: i, Create: c})
	}
	return cmds
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ProductPatch holds the scalar product fields a patch request may change.
// Nil fields are left unchanged.
type ProductPatch struct {
	Name        *string        `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string        `json:"description,omitempty" validate:"omitempty,max=5000"`
	Status      *ProductStatus `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	CategoryID  *string        `json:"categoryId,omitempty" validate:"omitempty,uuid"`
}
