package declopt

import "sort"

// nameIndex is the O(1) lookup table built once per parser from a
// validated schema (spec.md §4.3). It never mutates after construction.
type nameIndex struct {
	byName    map[string]string // surface name -> option key
	byLetter  map[byte]string   // cluster letter -> option key
	negations map[string]string // negation name -> option key
	marker    map[string]string // positional marker -> option key
	positional string           // key of the positional=true option, if any
	order     []string          // option keys in schema-declaration order
}

func buildNameIndex(s Schema) *nameIndex {
	order := s.Keys()
	idx := &nameIndex{
		byName:    make(map[string]string),
		byLetter:  make(map[byte]string),
		negations: make(map[string]string),
		marker:    make(map[string]string),
		order:     order,
	}
	for _, key := range order {
		opt := s.MustGet(key)
		for _, n := range opt.Names {
			if n != "" {
				idx.byName[n] = key
			}
		}
		for _, n := range opt.Negation {
			idx.negations[n] = key
			idx.byName[n] = key
		}
		for i := 0; i < len(opt.Cluster); i++ {
			idx.byLetter[opt.Cluster[i]] = key
		}
		switch p := opt.Positional.(type) {
		case bool:
			if p {
				idx.positional = key
			}
		case string:
			idx.marker[p] = key
		}
	}
	return idx
}

// isClusterToken reports whether tok, stripped of prefix, is composed
// entirely of registered cluster letters (spec.md §4.8). An empty suffix
// does not count as a cluster token.
func (idx *nameIndex) isClusterToken(tok, prefix string) bool {
	if prefix == "" || len(tok) <= len(prefix) || tok[:len(prefix)] != prefix {
		return false
	}
	suffix := tok[len(prefix):]
	if suffix == "" {
		return false
	}
	for i := 0; i < len(suffix); i++ {
		if _, ok := idx.byLetter[suffix[i]]; !ok {
			return false
		}
	}
	return true
}

// suggestions implements the bounded "did you mean" search of spec.md
// §4.3: exact prefix for tokens shorter than 4 bytes, Levenshtein <= 2
// otherwise, up to three results ordered by distance then schema order.
func (idx *nameIndex) suggestions(unknown string) []string {
	type cand struct {
		name string
		key  string
		dist int
	}
	var cands []cand

	names := make([]string, 0, len(idx.byName))
	for n := range idx.byName {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		var dist int
		if len(unknown) < 4 {
			if len(n) >= len(unknown) && n[:minInt(len(unknown), len(n))] == unknown {
				dist = 0
			} else {
				continue
			}
		} else {
			dist = levenshtein(unknown, n)
			if dist > 2 {
				continue
			}
		}
		cands = append(cands, cand{name: n, key: idx.byName[n], dist: dist})
	}

	keyRank := make(map[string]int, len(idx.order))
	for i, k := range idx.order {
		keyRank[k] = i
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return keyRank[cands[i].key] < keyRank[cands[j].key]
	})

	out := make([]string, 0, 3)
	for _, c := range cands {
		if len(out) >= 3 {
			break
		}
		out = append(out, c.name)
	}
	return out
}

func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func min3(a, b, c int) int {
	return minInt(minInt(a, b), c)
}
