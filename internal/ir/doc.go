// Package ir provides the plain-data representation shared by every statecell package.
//
// This package contains value types only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Actions are plain data: a Type discriminator and an IRObject payload
//   - NO float types anywhere - use int64 for numbers so hashes stay stable
//   - Canonical JSON (RFC 8785) is the only encoding used for hashing
//   - Hashes use domain separation so action and state digests never collide
package ir
