// Package auth provides the identity and authorization core: argon2id
// password hashing, paired access/refresh JWT issuance with
// rotation-on-use, role grants, and reconciliation of local and
// federated identities under a single user record.
//
// Token lifecycle:
//   - TokenService signs both tokens of a pair from one claim snapshot
//     with independent expiry windows. Role titles are frozen into the
//     claims at issuance; a later grant only appears after a refresh.
//   - Exactly one refresh token is valid per user. Login overwrites it,
//     logout clears it, and the refresh flow replaces it with a single
//     conditional write so a replayed or raced token always loses.
//
// Identity reconciliation:
//   - Registry.RegisterLocal creates password accounts; a duplicate
//     email is a hard conflict even when the existing account is
//     federated.
//   - Registry.ResolveFederated merges provider assertions by email
//     alone (last claim wins) and ends with the same token pair
//     contract as local login.
//
// The request boundary lives in middleware/jwtware (bearer extraction,
// verification, role enforcement) and social (OAuth redirect flow).
package auth
