package genotype

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/inodb/vibe-joint/internal/status"
	"github.com/inodb/vibe-joint/internal/vcf"
)

// Func genotypes the given samples at one site using their datasets. It is
// treated as a black box: once started it runs to completion.
type Func func(ctx context.Context, site Site, samples, datasets []string) (*vcf.Record, error)

// errAborted is returned by tasks that did not start because an earlier
// site already failed. It never escapes Run.
var errAborted = errors.New("genotyping aborted")

// slot holds one site's result. It is written by exactly one task and read
// by the drain loop only after done is closed.
type slot struct {
	rec  *vcf.Record
	err  error
	done chan struct{}
}

// Run genotypes every site on pool and passes the records to emit in site
// order, whatever order the tasks finish in.
//
// The first error in site order is returned, whether it came from fn or
// from emit. Once it is seen, tasks that have not started yet return
// without calling fn and no further records are emitted. Running calls
// are not interrupted. Run returns only after every task has finished.
//
// Cancelling ctx has the same effect as an error: pending tasks skip fn and
// the context error is returned unless an earlier site failed first.
func Run(ctx context.Context, pool *Pool, sites []Site, samples, datasets []string, fn Func, emit func(*vcf.Record) error) error {
	slots := make([]slot, len(sites))
	for i := range slots {
		slots[i].done = make(chan struct{})
	}

	var abort atomic.Bool
	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		for i := range sites {
			s := &slots[i]
			site := sites[i]
			err := pool.Submit(func() {
				defer close(s.done)
				s.rec, s.err = runSite(ctx, &abort, site, samples, datasets, fn)
			})
			if err != nil {
				s.err = err
				close(s.done)
			}
		}
	}()

	var first error
	for i := range slots {
		s := &slots[i]
		<-s.done
		rec, err := s.rec, s.err
		s.rec = nil
		if first != nil {
			continue
		}
		if err == nil {
			err = emit(rec)
		}
		if err != nil {
			first = err
			abort.Store(true)
		}
	}
	<-submitted
	return first
}

// runSite is the body of one task.
func runSite(ctx context.Context, abort *atomic.Bool, site Site, samples, datasets []string, fn Func) (rec *vcf.Record, err error) {
	if abort.Load() {
		return nil, errAborted
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			rec = nil
			err = &status.Error{
				Kind:    status.Failure,
				Message: "genotyper panicked",
				Detail:  fmt.Sprint(p),
			}
		}
	}()

	rec, err = fn(ctx, site, samples, datasets)
	if err == nil && rec == nil {
		err = status.New(status.Failure, "genotyper returned no record")
	}
	return rec, err
}
