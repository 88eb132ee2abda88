// Package codehash provides one-way hashing for verification codes.
//
// Codes are never stored in plaintext. A Hasher produces a salted hash for a
// freshly issued code and later checks a submitted code against that hash.
// Two algorithms are available: bcrypt (the default) and Argon2id.
package codehash
