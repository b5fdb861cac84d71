// Package identity implements Shiftwatch's account directory.
//
// It holds the companies and their admin/employee accounts, verifies login
// credentials with Argon2id, and is consumed by the auth layer as a read-only
// collaborator: the session guard only resolves accounts by id, the HTTP
// layer additionally performs signup and credential verification.
package identity
