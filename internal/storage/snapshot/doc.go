// Package snapshot serializes dataset frames into self-describing,
// integrity-checked byte envelopes.
//
// Envelope layout:
//
//	magic "TABSNAP1" | u32 header len | header JSON |
//	u32 body len | body | sha256 of everything before the trailer
//
// The body is the frame payload as canonical JSON, optionally
// zstd-compressed above a size threshold and optionally sealed with an
// AEAD cipher. Compression and encryption are recorded in the header
// so a decoder needs no out-of-band knowledge.
//
// Encoding is deterministic for a given frame when encryption is
// disabled: column order is preserved, values are rendered through
// their canonical string forms, and the zstd encoder runs
// single-threaded.
package snapshot
