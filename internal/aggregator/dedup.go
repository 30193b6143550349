package aggregator

import "bridge-wrapped/internal/bridge"

// Deduplicate collapses records describing the same transfer (same lowercase
// hash and chain pair). The first record for a key keeps its position; a
// later one replaces it only when it carries a positive USD value and the
// kept record has none.
func Deduplicate(txs []bridge.Transaction) []bridge.Transaction {
	index := make(map[string]int, len(txs))
	out := make([]bridge.Transaction, 0, len(txs))
	for _, tx := range txs {
		key := tx.DedupKey()
		if i, seen := index[key]; seen {
			if tx.AmountUSD.IsPositive() && out[i].AmountUSD.IsZero() {
				out[i] = tx
			}
			continue
		}
		index[key] = len(out)
		out = append(out, tx)
	}
	return out
}
