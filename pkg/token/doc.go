// Package token provides cryptographic random value generation for
// access tokens and request identifiers.
//
// All values are derived from crypto/rand. Hex encoding is used for
// access tokens because the wire protocol expects 64-character hex
// strings; Base64 RawURL is available for shorter identifiers.
package token
