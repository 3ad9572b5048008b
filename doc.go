// Package auth implements the authentication and authorization core of a
// multi-tenant user-management service: credential verification, dual-token
// (access + refresh) issuance and validation, live identity resolution, and
// role-gated request guards.
//
// Token lifecycle:
//   - Login and Register issue a TokenPair. The access token is short lived
//     and authorizes individual requests; the refresh token lives for seven
//     days and is used only to mint a fresh pair.
//   - Refresh tokens are never stored server side. Their validity derives
//     from the HMAC signature, the expiry claim, and the continued existence
//     of an active user record. There is no revocation list: a compromised
//     refresh token stays valid until natural expiry. Deployments that need
//     revocation should layer a denylist or a per-user token-version counter
//     in front of the resolver.
//
// Identity resolution:
//   - Guards never trust the role embedded in a token. Every protected
//     request re-fetches the user by the token subject, so a promotion,
//     demotion, or soft delete takes effect on the very next request rather
//     than at the next token refresh.
//
// Guards:
//   - middleware/jwtware validates the bearer token and attaches claims plus
//     the resolved identity to the request context.
//   - middleware/roleware runs after jwtware and rejects principals whose
//     role is outside a declared allowed set. An empty set admits any
//     authenticated principal.
//
// Passwords are bcrypt hashed with a per-hash random salt; plaintext never
// reaches storage or logs.
package auth
