// Package nesthash implements hash tables that resolve collisions by
// adding structure rather than by growing probe chains.
//
// Two containers are provided:
//
//   - TwoLevelTable maps (first, second) key pairs to values. A top-level
//     open-addressing array is keyed by the first key; each occupied slot
//     owns a second-level table keyed by the second key.
//   - TrieTable maps keys to values through fixed-size subtables indexed by
//     the symbol at each nesting level. A collision grows one more level.
//
// # Basic Usage
//
// A two-level table:
//
//	tbl, err := nesthash.NewTwoLevelTable[string, string, int]()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tbl.Set("Tim", "Jen", 1); err != nil {
//	    log.Fatal(err)
//	}
//	v, err := tbl.Get("Tim", "Jen")
//
// A trie table:
//
//	trie, err := nesthash.NewTrieTable[string, int]()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	trie.Set("lin", 1)
//	trie.Set("leg", 2)
//	trace, err := trie.Location("lin") // [4 1]
//
// Keys are byte strings; each byte is one symbol. Lookups of absent keys
// return errors.ErrNotFound, and inserts that cannot be placed return
// errors.ErrFull. Both can be tested with errors.Is.
//
// # Capacity ladders
//
// TwoLevelTable grows through a ladder of prime capacities (DefaultSizes,
// or WithSizes / WithInternalSizes). When a ladder runs out the table stops
// growing and keeps filling; ErrFull is returned only once no slot is left.
//
// # Package Structure
//
//   - Public API: two_level.go (TwoLevelTable), trie.go (TrieTable)
//   - Configuration: options.go (Option, With* functions), ladder.go
//   - Hash strategies: hash.go (PolynomialHash, XXH3Hash, XXHash64, Murmur3Hash)
//   - Open-addressing building block: internal/probe
//   - Errors: errors/ (sentinels shared with internal packages)
//   - Tooling: cmd/tablebench (workload runner)
package nesthash
