package lineage

import (
	"bytes"
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/fuzzy"
)

// namespace seeds UUIDv5 lineage ids.
var namespace = uuid.MustParse("9b3f6f0e-4d2a-5c61-9e8b-2a7d1c5e0f43")

// stopWords never block candidate pairs on their own. They are the
// procedural vocabulary shared by most agenda titles.
var stopWords = map[string]bool{
	"with": true, "from": true, "into": true, "upon": true, "that": true, "this": true,
	"these": true, "those": true, "their": true, "there": true, "which": true, "within": true,
	"city": true, "town": true, "county": true, "village": true, "council": true,
	"board": true, "commission": true, "committee": true, "meeting": true, "item": true,
	"items": true, "approve": true, "approval": true, "approving": true, "consider": true,
	"consideration": true, "discussion": true, "discuss": true, "action": true,
	"possible": true, "regarding": true, "relating": true, "related": true,
	"authorize": true, "authorizing": true, "authorization": true, "adopt": true,
	"adopting": true, "resolution": true, "ordinance": true, "amend": true,
	"amending": true, "amendment": true, "agreement": true, "contract": true,
	"request": true, "report": true, "update": true, "public": true, "hearing": true,
	"second": true, "reading": true, "first": true, "final": true, "other": true,
}

// significantTokens returns the distinct blocking tokens of a title.
func significantTokens(title string, minChars int) []string {
	var out []string
	for _, t := range fuzzy.Tokens(title) {
		if len(t) < minChars || stopWords[t] || isNumber(t) {
			continue
		}
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func isNumber(s string) bool {
	return strings.Trim(s, "0123456789") == ""
}

type edge struct {
	a, b   int
	weight float64
}

// Compute groups nodes into lineages. The result depends only on the node
// set: input order does not matter and prior ids are reused
// deterministically.
func Compute(placeID uuid.UUID, nodes []Node, cfg *Config) []Group {
	if len(nodes) < 2 {
		return []Group{}
	}

	nodes = slices.Clone(nodes)
	slices.SortFunc(nodes, func(a, b Node) int {
		return bytes.Compare(a.ItemID[:], b.ItemID[:])
	})

	edges := candidateEdges(nodes, cfg)
	slices.SortFunc(edges, func(x, y edge) int {
		if c := cmp.Compare(y.weight, x.weight); c != 0 {
			return c
		}
		if c := cmp.Compare(x.a, y.a); c != 0 {
			return c
		}
		return cmp.Compare(x.b, y.b)
	})

	uf := newUnionFind(len(nodes))
	best := make([]float64, len(nodes))
	var spanning []edge

	for _, e := range edges {
		best[e.a] = max(best[e.a], e.weight)
		best[e.b] = max(best[e.b], e.weight)
		if uf.union(e.a, e.b) {
			spanning = append(spanning, e)
		}
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, e := range spanning {
		root := uf.find(e.a)
		sums[root] += e.weight
		counts[root]++
	}

	var (
		order []int
		comps = make(map[int][]int)
	)
	for i := range nodes {
		root := uf.find(i)
		if _, ok := comps[root]; !ok {
			order = append(order, root)
		}
		comps[root] = append(comps[root], i)
	}

	groups := make([]Group, 0)
	var members [][]int
	for _, root := range order {
		idx := comps[root]
		docs := make(map[uuid.UUID]bool)
		for _, i := range idx {
			docs[nodes[i].DocumentID] = true
		}
		if len(docs) < 2 {
			continue
		}

		g := Group{
			PlaceID:       placeID,
			DocumentCount: len(docs),
			Confidence:    round(sums[root] / float64(counts[root])),
		}
		g.LowConfidence = g.Confidence < cfg.MinConfidence
		for _, i := range idx {
			g.Members = append(g.Members, Member{
				ItemID:     nodes[i].ItemID,
				DocumentID: nodes[i].DocumentID,
				Confidence: round(best[i]),
			})
		}
		groups = append(groups, g)
		members = append(members, idx)
	}

	assignIDs(groups, members, nodes)
	return groups
}

func candidateEdges(nodes []Node, cfg *Config) []edge {
	blocks := make(map[string][]int)
	for i, n := range nodes {
		for _, t := range significantTokens(n.Title, cfg.MinTokenChars) {
			blocks[t] = append(blocks[t], i)
		}
	}

	type pair struct{ a, b int }
	seen := make(map[pair]bool)
	var edges []edge

	for _, idx := range blocks {
		for x := 0; x < len(idx); x++ {
			for y := x + 1; y < len(idx); y++ {
				p := pair{idx[x], idx[y]}
				if seen[p] {
					continue
				}
				seen[p] = true

				a, b := nodes[p.a], nodes[p.b]
				if !linkable(a, b, cfg.DateWindowDays) {
					continue
				}
				if w := fuzzy.TokenSetRatio(a.Title, b.Title); w >= cfg.EdgeThreshold {
					edges = append(edges, edge{a: p.a, b: p.b, weight: w})
				}
			}
		}
	}
	return edges
}

// linkable reports whether two items may share a lineage: they come from
// different documents of different meetings, within the date window when
// one is set.
func linkable(a, b Node, windowDays int) bool {
	if a.DocumentID == b.DocumentID {
		return false
	}
	if a.MeetingID != uuid.Nil && a.MeetingID == b.MeetingID {
		return false
	}
	if windowDays > 0 && !a.RecordDate.IsZero() && !b.RecordDate.IsZero() {
		days := math.Abs(a.RecordDate.Sub(b.RecordDate).Hours() / 24)
		if days > float64(windowDays) {
			return false
		}
	}
	return true
}

// assignIDs gives each group the smallest prior id among its members that
// no earlier group claimed. Groups arrive ordered by smallest member id, so
// a contested prior id stays with the group holding the smallest member.
// Groups left without a prior id get a UUIDv5 of their smallest member.
func assignIDs(groups []Group, members [][]int, nodes []Node) {
	claimed := make(map[uuid.UUID]bool)

	for gi := range groups {
		var priors []uuid.UUID
		for _, i := range members[gi] {
			if p := nodes[i].PriorID; p != nil && !slices.Contains(priors, *p) {
				priors = append(priors, *p)
			}
		}
		slices.SortFunc(priors, func(a, b uuid.UUID) int {
			return bytes.Compare(a[:], b[:])
		})

		id := uuid.Nil
		for _, p := range priors {
			if !claimed[p] {
				id = p
				break
			}
		}
		if id == uuid.Nil {
			id = derive(groups[gi].Members[0].ItemID, claimed)
		}

		claimed[id] = true
		groups[gi].LineageID = id
	}
}

func derive(seed uuid.UUID, claimed map[uuid.UUID]bool) uuid.UUID {
	id := uuid.NewSHA1(namespace, seed[:])
	for n := byte(1); claimed[id]; n++ {
		id = uuid.NewSHA1(namespace, append(seed[:], n))
	}
	return id
}

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// union joins the sets of a and b and reports whether they were separate.
func (u *unionFind) union(a, b int) bool {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return false
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
	return true
}
