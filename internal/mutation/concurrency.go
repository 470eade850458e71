package mutation

import (
	apperrors "github.com/utafrali/EcommerceGo/catalog/pkg/errors"
)

// VersionConflict is returned whenever a mutation was based on a stale
// product version. It does not describe the competing change.
func VersionConflict() *apperrors.AppError {
	return apperrors.Conflict("product was modified by another request; reload it and retry")
}

// CheckVersion compares the version a client declared with the stored one.
func CheckVersion(declared, stored int) error {
	if declared != stored {
		return VersionConflict()
	}
	return nil
}
