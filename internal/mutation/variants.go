package mutation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/utafrali/EcommerceGo/catalog/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/catalog/pkg/errors"
)

// ResultingVariant is one member of the variant set obtained by applying an
// operation batch to the current variants. Origin locates the entry that
// produced it: "create[i]", "update[i]" or "variant[<id>]" for untouched
// current variants.
type ResultingVariant struct {
	domain.Variant
	Kind   domain.OpKind
	Origin string
}

// ResultingVariants folds the batch over current and returns the resulting
// set: current minus deleted, with updates merged in place and creates
// appended in input order. Created variants carry no ID. Updates that target
// an unknown or deleted variant are ignored.
func ResultingVariants(current []domain.Variant, ops *domain.VariantOps) []ResultingVariant {
	out := make([]ResultingVariant, 0, len(current))
	pos := make(map[string]int, len(current))
	for _, v := range current {
		pos[v.ID] = len(out)
		out = append(out, ResultingVariant{Variant: v.Clone(), Origin: currentPath(v.ID)})
	}

	removed := make(map[string]bool)
	for _, cmd := range ops.Commands() {
		switch cmd.Kind {
		case domain.OpDelete:
			removed[cmd.TargetID] = true
		case domain.OpUpdate:
			i, ok := pos[cmd.TargetID]
			if !ok || removed[cmd.TargetID] {
				continue
			}
			out[i].Variant = MergeVariant(out[i].Variant, cmd.Update)
			out[i].Kind = domain.OpUpdate
			out[i].Origin = cmd.Path()
		case domain.OpCreate:
			out = append(out, ResultingVariant{
				Variant: NewVariant(cmd.Create),
				Kind:    domain.OpCreate,
				Origin:  cmd.Path(),
			})
		}
	}

	return slices.DeleteFunc(out, func(rv ResultingVariant) bool {
		return rv.ID != "" && removed[rv.ID]
	})
}

// NewVariant builds an unsaved variant from a create entry.
func NewVariant(in domain.VariantInput) domain.Variant {
	v := domain.Variant{
		Price:             in.Price,
		Stock:             in.Stock,
		AttributeValueIDs: slices.Clone(in.AttributeValueIDs),
	}
	if v.AttributeValueIDs == nil {
		v.AttributeValueIDs = []string{}
	}
	if in.SKU != nil {
		sku := *in.SKU
		v.SKU = &sku
	}
	return v
}

// MergeVariant applies the non-nil fields of u to a copy of v.
func MergeVariant(v domain.Variant, u domain.VariantUpdate) domain.Variant {
	merged := v.Clone()
	if u.Price != nil {
		merged.Price = *u.Price
	}
	if u.SKU != nil {
		sku := *u.SKU
		merged.SKU = &sku
	}
	if u.Stock != nil {
		merged.Stock = *u.Stock
	}
	if u.AttributeValueIDs != nil {
		merged.AttributeValueIDs = slices.Clone(u.AttributeValueIDs)
	}
	return merged
}

// ValidateVariants checks a variant batch against the category schema and the
// current variants, collecting every violation. Attribute checks run per create
// and update entry; capacity and duplicate combination checks run over the
// resulting set. It returns nil or an *apperrors.AppError with code
// VARIANTS_VALIDATION_FAILED.
func ValidateVariants(category *domain.Category, ops *domain.VariantOps, current []domain.Variant) error {
	schema := newAttributeSchema(category)
	var subs []apperrors.SubError

	if ops != nil {
		for i, c := range ops.Create {
			subs = append(subs, schema.check(c.AttributeValueIDs, domain.OpPath(domain.OpCreate, i))...)
		}
		byID := make(map[string]domain.Variant, len(current))
		for _, v := range current {
			byID[v.ID] = v
		}
		for i, u := range ops.Update {
			ids := u.AttributeValueIDs
			if ids == nil {
				ids = byID[u.ID].AttributeValueIDs
			}
			subs = append(subs, schema.check(ids, domain.OpPath(domain.OpUpdate, i))...)
		}
	}

	resulting := ResultingVariants(current, ops)

	if limit := category.MaxCombinations(); len(resulting) > limit {
		subs = append(subs, apperrors.SubError{
			Code:    CodeCapacityExceeded,
			Message: fmt.Sprintf("%d variants exceed the maximum of %d combinations allowed by the category", len(resulting), limit),
		})
	}

	seen := make(map[string]string, len(resulting))
	for _, rv := range resulting {
		key := combinationKey(rv.AttributeValueIDs)
		if first, dup := seen[key]; dup {
			subs = append(subs, apperrors.SubError{
				Code:    CodeDuplicateCombination,
				Message: fmt.Sprintf("attribute combination [%s] is already used by %s", strings.Join(rv.AttributeValueIDs, ", "), first),
				Path:    rv.Origin,
			})
			continue
		}
		seen[key] = rv.Origin
	}

	if len(subs) == 0 {
		return nil
	}
	return apperrors.ValidationFailed(
		CodeVariantsValidationFailed,
		fmt.Sprintf("variant operations are invalid: %d violation(s)", len(subs)),
		subs,
	)
}

type attributeSchema struct {
	owner map[string]string // value id -> attribute id
	names map[string]string // attribute id -> name
}

func newAttributeSchema(category *domain.Category) attributeSchema {
	s := attributeSchema{owner: category.ValueIndex(), names: make(map[string]string)}
	if category != nil {
		for _, attr := range category.Attributes {
			s.names[attr.ID] = attr.Name
		}
	}
	return s
}

// check validates one attribute value set, reporting VVA1 once per unknown id
// and VVA2 for every repeated id or second value of an attribute.
func (s attributeSchema) check(ids []string, path string) []apperrors.SubError {
	var subs []apperrors.SubError
	seen := make(map[string]bool, len(ids))
	byAttr := make(map[string]string, len(ids))

	for _, id := range ids {
		if seen[id] {
			subs = append(subs, apperrors.SubError{
				Code:    CodeAttributeCollision,
				Message: fmt.Sprintf("attribute value %q is listed more than once", id),
				Path:    path,
			})
			continue
		}
		seen[id] = true

		attrID, ok := s.owner[id]
		if !ok {
			subs = append(subs, apperrors.SubError{
				Code:    CodeInvalidAttributeValue,
				Message: fmt.Sprintf("attribute value %q does not belong to the category", id),
				Path:    path,
			})
			continue
		}
		if other, taken := byAttr[attrID]; taken {
			subs = append(subs, apperrors.SubError{
				Code:    CodeAttributeCollision,
				Message: fmt.Sprintf("attribute values %q and %q both belong to attribute %q", other, id, s.names[attrID]),
				Path:    path,
			})
			continue
		}
		byAttr[attrID] = id
	}
	return subs
}

// combinationKey is an order-independent identity for an attribute value set.
func combinationKey(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return strings.Join(slices.Compact(sorted), "\x1f")
}

func currentPath(id string) string {
	return "variant[" + id + "]"
}
