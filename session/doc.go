// Package session keeps the application keys of paired Hue bridges.
//
// A Manager tracks one state per bridge id:
//
//	Unpaired -> Pairing -> Paired -> Invalidated -> Pairing -> ...
//
// Only Paired yields a credential. Pair polls the bridge until its link
// button is pressed; Invalidate is compare-and-swap on the key, so a stale
// rejection cannot drop a credential obtained later. Keys live in memory
// only. Callers that want to keep them across runs store the credential
// returned by Pair and hand it back through Restore.
package session
