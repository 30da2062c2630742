package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// CheckStateCompatibility checks whether a state file written by fileVersion can be loaded by
// appVersion. Returns nil if compatible.
//
// Compatibility Rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major and minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 reads files written by 1.2.5)
//
// Examples:
//   - App 1.2.0, File 1.2.0 -> OK
//   - App 1.2.1, File 1.2.0 -> OK
//   - App 1.3.0, File 1.2.0 -> ERROR (minor differs)
//   - App 2.0.0, File 1.2.0 -> ERROR (major differs)
//   - App main, File 1.2.0 -> OK
func CheckStateCompatibility(appVersion, fileVersion string) error {
	appVersion = strings.TrimPrefix(appVersion, "v")
	fileVersion = strings.TrimPrefix(fileVersion, "v")

	if appVersion == "main" || fileVersion == "main" {
		return nil
	}

	appSemver, err := semver.NewVersion(appVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid app version '%s'", appVersion)
	}

	fileSemver, err := semver.NewVersion(fileVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid state file version '%s'", fileVersion)
	}

	if appSemver.Major() != fileSemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"major version mismatch: app is %d.x.x but state file was written by %d.x.x",
			appSemver.Major(), fileSemver.Major())
	}

	if appSemver.Minor() != fileSemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"minor version mismatch: app is %d.%d.x but state file was written by %d.%d.x",
			appSemver.Major(), appSemver.Minor(),
			fileSemver.Major(), fileSemver.Minor())
	}

	return nil
}
