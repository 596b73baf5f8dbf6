package domain

// LoadState represents where a cached collection load currently stands.
type LoadState string

const (
	LoadStateLoading       LoadState = "loading"
	LoadStateFresh         LoadState = "fresh"
	LoadStateStaleFallback LoadState = "stale_fallback"
	LoadStateEmpty         LoadState = "empty"
)

// Offline reports whether a cached snapshot is being shown in place of
// fresh network data.
func (s LoadState) Offline() bool {
	return s == LoadStateStaleFallback
}
