package common

import "time"

// DefaultPageSize is used by list calls when the caller passes no limit.
const DefaultPageSize = 20

// MaxPageSize caps the page size accepted by list calls.
const MaxPageSize = 100

// DefaultSignedURLExpiry is the lifetime of presigned blob links.
const DefaultSignedURLExpiry = 15 * time.Minute

// BiometricEnabledKey is the secure-store key holding the biometric lock flag.
const BiometricEnabledKey = "biometric_enabled"

// OAuthStateSize is the number of random bytes in an OAuth state value.
const OAuthStateSize = 16

// ObjectNonceSize is the number of random bytes that keep two blobs
// uploaded in the same millisecond under distinct keys.
const ObjectNonceSize = 4
