package types

// Version is the canonical project version, reported by `autotiny version`
// and sent as part of the compressor User-Agent.
const Version = "0.3.0"
