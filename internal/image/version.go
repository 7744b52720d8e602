package image

import "golang.org/x/mod/semver"

// FormatVersion is this toolchain's image format revision, independent
// of the wire-level u24 sentinel (which identifies the container
// layout itself and never changes within one revision). It follows
// semver so a future toolchain can decide "reader can open writer's
// image" without hand-rolled integer comparisons.
const FormatVersion = "v1.0.0"

// NegotiateVersion reports whether an image stamped with
// producedBy can be read by a toolchain supporting supportedVersion.
// A reader accepts any image whose major version matches its own and
// whose version is no newer (spec §9's forward-compat note: a future
// format revision should refuse to silently misread an older
// toolchain's images rather than corrupt-read them).
func NegotiateVersion(producedBy, supportedVersion string) bool {
	if !semver.IsValid(producedBy) || !semver.IsValid(supportedVersion) {
		return false
	}
	if semver.Major(producedBy) != semver.Major(supportedVersion) {
		return false
	}
	return semver.Compare(producedBy, supportedVersion) <= 0
}
