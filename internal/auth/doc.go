// Package auth provides the mock login service, scope checks, and JWT
// issuance for the virtual gateway.
//
// The user store is a fixed in-memory roster seeded at construction;
// there is no persistence and no user management. Passwords are still
// hashed with Argon2id and tokens are real signed JWTs so the API
// surface behaves like a production gateway.
package auth
