// Package verifier provides commitment schemes for the instantauth engine.
//
// A verifier produces the segment that travels beside the data segment and
// commits to a (private key, public key, secret) triple. The public key must
// be readable from the segment without the private key, since the engine needs
// it to find the session in the first place; only Verify is a trust decision.
//
// # Strategies
//
//   - [BypassVerifier] carries no segment and confirms everything. Every blob
//     maps to one fixed anonymous public key.
//   - [DataKeyVerifier] reads the public key out of a field of the payload
//     itself. It commits to nothing and needs a pass-through data cryptor.
//   - [TimeHashVerifier] carries publicKey$unixSeconds$hexHMAC and confirms
//     the MAC and the timestamp window.
//   - [JWTVerifier] carries an HS256 JWS whose subject is the public key.
//
// TimeHashVerifier and JWTVerifier satisfy divide(merge(v, r)) == (v, r).
// BypassVerifier and DataKeyVerifier have no separate segment; for them only
// the public key survives the round trip.
package verifier
