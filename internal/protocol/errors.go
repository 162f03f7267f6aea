package protocol

const (
	// Protocol/transport validation: unparseable JSON, wrong message
	// type, unsupported encoding, blit on a grid off the 2x3 lattice.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Render input validation: conflicting or unknown world entries,
	// out-of-range grid, non-finite viewer.
	ErrInvalidWorld = "E_INVALID_WORLD"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrInvalidWorld:    {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
