// Package go_seos implements the security stack of a component-based trusted
// operating system: a handle-based Crypto API (keys, digests, MACs, ciphers,
// signatures, key agreement, a CTR-DRBG), a TLS session layer driven over
// caller-supplied transport callbacks, an X.509 certificate chain verifier,
// and a sealed keystore.
//
// The Crypto API can run in four modes. In Library mode all operations run in
// the caller's address space. In RPC Client mode every call is marshalled over
// a fixed-size dataport to a remote instance running in RPC Server mode. In
// Router mode keys are placed either locally or remotely based on their
// KeepLocal attribute, and all other objects follow the key they were created
// with.
//
// Instances are not safe for concurrent use; callers serialize access to an
// instance and the objects created from it. The RPC client additionally
// serializes its dataport internally.
package go_seos
