package discover

import (
	"sort"

	"github.com/biogo/store/llrb"

	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/status"
)

// Merge folds local into acc. An allele present in both keeps IsRef if
// either side had it and sums the observation counts. Merge is commutative
// and associative, so datasets may be merged in any order.
func Merge(local, acc genome.DiscoveredAlleles) {
	for al, info := range local {
		cur, ok := acc[al]
		if !ok {
			acc[al] = info
			continue
		}
		cur.IsRef = cur.IsRef || info.IsRef
		cur.ObservationCount += info.ObservationCount
		acc[al] = cur
	}
}

// refGroup collects the reference sequences seen at one range.
type refGroup struct {
	rng  genome.Range
	refs []string
}

// Compare orders groups by range for use in llrb.
func (g *refGroup) Compare(c llrb.Comparable) int {
	return g.rng.Compare(c.(*refGroup).rng)
}

// CheckReferences verifies that every range in als has exactly one
// reference allele. It must run after the last dataset has been merged:
// two datasets may each be self-consistent and still disagree.
//
// Ranges are checked in order and the first violation is returned.
func (e *Engine) CheckReferences(als genome.DiscoveredAlleles) error {
	var tree llrb.Tree
	for al, info := range als {
		g, _ := tree.Get(&refGroup{rng: al.Pos}).(*refGroup)
		if g == nil {
			g = &refGroup{rng: al.Pos}
			tree.Insert(g)
		}
		if info.IsRef {
			g.refs = append(g.refs, al.DNA)
		}
	}

	var err error
	tree.Do(func(c llrb.Comparable) (done bool) {
		g := c.(*refGroup)
		switch {
		case len(g.refs) > 1:
			sort.Strings(g.refs)
			err = &status.Error{
				Kind:    status.Invalid,
				Message: "data sets contain inconsistent reference alleles",
				Range:   e.contigs.Format(g.rng),
				Alleles: g.refs,
			}
		case len(g.refs) == 0:
			err = &status.Error{
				Kind:    status.Invalid,
				Message: "data sets contain no reference allele",
				Range:   e.contigs.Format(g.rng),
			}
		}
		return err != nil
	})
	return err
}
