// Package lzarc reads and writes lzarc containers: a big-endian archive that
// bundles named files, each compressed individually.
//
// An archive consists of:
//   - Header: total size, aligned memory-image size, entry count (u32 each)
//   - Entry table: one 148-byte record per file (NUL-padded 128-byte name,
//     payload offset, compressed size, memory-image offset, two size words)
//   - Payload region: starting on a 64-byte boundary, one framed compressed
//     payload per entry, each followed by zero padding to the next 64 bytes
//
// A payload frame is a 0x13 tag byte, the low three bytes of the
// uncompressed length in little-endian order, and the codec output. The
// default codec is LZ11 (see package lz11).
//
// The memory-image fields describe where each file would land if every file
// was loaded on an 8 KiB boundary after 8 KiB of leading space. Decode
// records them but does not need them.
//
// Use [Decode] or [Open] to read an archive, [Encode] or [Archive.Save] to
// write one, [Inspect] to look at the raw table, and [FromDir] / [Extract] to
// move between archives and directory trees.
package lzarc
