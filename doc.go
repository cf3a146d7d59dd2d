// Package portal implements the client half of a clinic portal: credential
// storage, session bootstrap with ordered endpoint fallbacks, recovery of a
// degraded user from bearer token claims, and the profile/patient submission
// workflow against the remote REST API.
package portal
