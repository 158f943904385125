package pool

// Registry resolves pair keys to pools. The engine host implements it; the
// pool package itself never holds a global pool set.
type Registry interface {
	Lookup(pair string) (*Pool, bool)
}
