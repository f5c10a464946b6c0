package domain

// Record is one entry of the backend's country catalog.
type Record struct {
	ID          int64
	DisplayName string
	// CallingCodePrefixes are dialing prefixes ("+91") supplied by the catalog itself. Usually empty;
	// the built-in calling-code table fills the gap.
	CallingCodePrefixes []string
}
