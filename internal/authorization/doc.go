// Package authorization decides whether an idTag may charge.
//
// Tokens are owned by the administrative surface; the gateway only reads
// them through Repository.GetToken. Gate.Authorize applies the rules:
//
//   - unknown tag: Invalid
//   - stored status other than Accepted: that status
//   - Accepted but past its expiry date: Expired
//   - otherwise: Accepted, with expiry and parent tag echoed
//
// A store failure is logged and answered with Invalid.
package authorization
