package domain

import "math"

// Category groups products and defines the attribute schema their variants
// are built from.
type Category struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Slug       string      `json:"slug"`
	Attributes []Attribute `json:"attributes"`
}

// Attribute is a named dimension of variation (e.g. size) with its allowed values.
type Attribute struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Values []AttributeValue `json:"values"`
}

// AttributeValue is one allowed value of an attribute.
type AttributeValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// HasAttributes reports whether the category defines any attribute.
func (c *Category) HasAttributes() bool {
	return c != nil && len(c.Attributes) > 0
}

// ValueIndex maps every attribute value id of the category to the id of the
// attribute that owns it.
func (c *Category) ValueIndex() map[string]string {
	idx := make(map[string]string)
	if c == nil {
		return idx
	}
	for _, attr := range c.Attributes {
		for _, v := range attr.Values {
			idx[v.ID] = attr.ID
		}
	}
	return idx
}

// MaxCombinations returns the number of distinct variants the category can
// hold: the product of value counts across attributes. A category without
// attributes holds exactly one variant. Attributes with no values do not
// restrict the count, and the result saturates at math.MaxInt.
func (c *Category) MaxCombinations() int {
	total := 1
	if c == nil {
		return total
	}
	for _, attr := range c.Attributes {
		n := len(attr.Values)
		if n == 0 {
			continue
		}
		if total > math.MaxInt/n {
			return math.MaxInt
		}
		total *= n
	}
	return total
}
