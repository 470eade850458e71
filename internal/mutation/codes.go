// Package mutation holds the pure validation and resolution rules applied to
// product create and patch requests. Nothing in this package performs I/O or
// keeps state, so every function is safe for concurrent use.
package mutation

// Top-level codes of aggregated validation failures.
const (
	CodeVariantsValidationFailed = "VARIANTS_VALIDATION_FAILED"
	CodeImagesValidationFailed   = "IMAGES_VALIDATION_FAILED"
)

// Variant violation codes.
const (
	CodeInvalidAttributeValue = "VVA1"
	CodeAttributeCollision    = "VVA2"
	CodeCapacityExceeded      = "VVA3"
	CodeDuplicateCombination  = "VVA4"
)

// Image operation violation codes.
const (
	CodeDuplicateCreateFileIndex = "VIO1"
	CodeDuplicateUpdateFileIndex = "VIO2"
	CodeSharedFileIndex          = "VIO3"
	CodeMultipleThumbnails       = "VIO4"
	CodeFileIndexOutOfBounds     = "VIO5"
	CodeAllImagesDeleted         = "VIO6"
	CodeDuplicateUpdateImageID   = "VIO7"
	CodeDuplicateDeleteImageID   = "VIO8"
)

// Publish eligibility codes.
const (
	CodeNoPricedVariant     = "PUB1"
	CodeNoAttributedVariant = "PUB2"
)
