// Package auth verifies the bearer tokens presented to the operator API.
//
// Operators are not stored by the gateway. Tokens are HS256 JWTs issued by
// whatever identity service fronts the deployment, signed with the shared
// secret from security.jwt.secret. Each token carries a role:
//
//   - viewer: read stations, connections and the message log
//   - operator: everything a viewer can do, plus send commands to stations
//
// Role permissions are a static table; there is no database lookup.
package auth
