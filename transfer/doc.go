// Package transfer holds the negotiated encoding state of an instrument link and the
// codecs that turn instrument replies into typed values.
//
// A Config is created with safe defaults (little-endian float32 elements, IEEE
// definite-length block header, LF terminators, comma separator, zero timeout)
// and is only mutated through validating setters. Every setter accepts a set of
// aliases and normalizes it to one canonical value; unknown aliases fail with
// ErrInvalidArgument.
//
// Binary blocks:
//
//   - HeaderIEEE: "#<n><length><payload>", where <n> is the number of length digits.
//     "#0<payload>" is the indefinite form, its end is only known from a caller supplied count.
//   - HeaderHP: "#A<length:2 bytes><payload>", the length uses the element byte order.
//   - HeaderEmpty: the payload only, the element count must be supplied by the caller.
//
// Text replies are split on the configured separator and converted with the
// configured converter (binary, octal, hexadecimal, decimal, fixed, exponential or string).
//
// Usage Example:
//
//	cfg := transfer.NewConfig()
//	_ = cfg.SetAvailableFormats("text", "bin32")
//	_ = cfg.SetActivatedFormat("binary")
//	_ = cfg.SetBinaryElementType("double")
//
//	raw, _ := transfer.EncodeBlock(transfer.Floats(1.5, -2), cfg.BinaryFormat(0))
//	data, _ := transfer.DecodeBlock(raw, cfg.BinaryFormat(0))
package transfer
