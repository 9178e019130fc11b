// Package auth implements the authentication and authorization core of the
// Amoryn profile backend: credential verification, access/refresh token
// lifecycle with rotation, email confirmation, password recovery, and
// scope based access control with a signed admin elevation protocol.
//
// The package is consumed by route handlers through a small surface:
// SessionManager for login/refresh/logout, Authorizer for scope gates, and
// the command handlers for registration and recovery flows. Persistence goes
// through RepositoryManager; outbound email goes through Mailer. Both are
// narrow interfaces so hosts can swap implementations.
package auth
