// Package units provides binary size multipliers (1024-based) and the block
// size used by stat(2) block counts.
package units

// Binary size multipliers.
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// StatBlockSize is the unit of st_blocks, independent of the filesystem block
// size.
const StatBlockSize = 512
