package ttable

// Keyed binds a position's own hash key to a shared table. Games embed it
// to provide the cache half of the search engine's game state contract,
// and keep Key up to date as moves are made and unmade.
type Keyed struct {
	Table *TranspositionTable
	Key   uint64
	// Mate classifies mate scores; usually the embedding game itself.
	Mate MateScorer
}

func (k *Keyed) Get(depth, ply int) (Pair, Flag) {
	if k.Table == nil {
		return Pair{Move: NoMove}, Invalid
	}
	return k.Table.Get(k.Key, depth, ply, k.Mate)
}

func (k *Keyed) Put(depth, ply int, alpha, beta Value, p Pair) {
	if k.Table == nil {
		return
	}
	k.Table.Put(k.Key, depth, ply, alpha, beta, p, k.Mate)
}
