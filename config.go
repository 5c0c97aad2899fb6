package structio

import "github.com/xyproto/env/v2"

// Debug gates the writer's match-buffer check and the reader's default
// alignment check, the way flapc gates its instruction trace behind
// VerboseMode. It can be overridden without rebuilding via STRUCTIO_DEBUG.
var Debug = env.Bool("STRUCTIO_DEBUG")

// DefaultBigEndian is the byte order newly constructed Readers and Writers
// start in. Most of the "magic + header + offset table" formats this
// module targets are big-endian, so that's the built-in default; set
// STRUCTIO_LITTLE_ENDIAN=1 to flip it process-wide (handy when pointing
// the same demo tool at a little-endian variant of a format).
var DefaultBigEndian = !env.Bool("STRUCTIO_LITTLE_ENDIAN")

func init() {
	if env.Has("STRUCTIO_BIG_ENDIAN") {
		DefaultBigEndian = env.Bool("STRUCTIO_BIG_ENDIAN")
	}
}
