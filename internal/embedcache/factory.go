package embedcache

// New constructs the default Cache backend: a RemoteCache when backendURL is
// set, otherwise a bounded in-memory LRU of maxEntries (falling back to the
// no-op cache if maxEntries is non-positive).
func New(backendURL string, maxEntries int) (Cache, error) {
	if backendURL != "" {
		return NewRemote(backendURL)
	}
	if maxEntries <= 0 {
		return NewNoop(), nil
	}
	return NewLRU(maxEntries)
}
