package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-structure/pkg/errors"
)

// CheckSnapshotCompatibility checks whether a state snapshot written by
// snapshotVersion can be restored by a library running libraryVersion.
//
// Compatibility Rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - The snapshot minor version must not be newer than the library minor version
//   - Patch versions are ignored
//
// Examples:
//   - Library 0.4.0, Snapshot 0.4.2 -> OK (patch differs)
//   - Library 0.5.0, Snapshot 0.4.0 -> OK (older snapshot)
//   - Library 0.4.0, Snapshot 0.5.0 -> ERROR (snapshot from a newer library)
//   - Library 1.0.0, Snapshot 0.4.0 -> ERROR (major differs)
func CheckSnapshotCompatibility(libraryVersion, snapshotVersion string) error {
	libraryVersion = strings.TrimPrefix(libraryVersion, "v")
	snapshotVersion = strings.TrimPrefix(snapshotVersion, "v")

	if libraryVersion == "main" || snapshotVersion == "main" {
		return nil
	}

	librarySemver, err := semver.NewVersion(libraryVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid library version '%s'", libraryVersion)
	}

	snapshotSemver, err := semver.NewVersion(snapshotVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid snapshot version '%s'", snapshotVersion)
	}

	if librarySemver.Major() != snapshotSemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch, "major version mismatch: library is %d.x.x but snapshot was written by %d.x.x",
			librarySemver.Major(), snapshotSemver.Major())
	}

	if snapshotSemver.Minor() > librarySemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch, "snapshot version %d.%d.x is newer than library version %d.%d.x",
			snapshotSemver.Major(), snapshotSemver.Minor(),
			librarySemver.Major(), librarySemver.Minor())
	}

	return nil
}
