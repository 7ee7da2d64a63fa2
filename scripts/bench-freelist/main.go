// bench-freelist measures heap allocations and in-use memory of a churning
// red-black tree with and without the free-list node cache.
//
// Usage:
//
//	go run ./scripts/bench-freelist --window 100000 --rounds 20 --cache 100000 \
//	  --profile-dir docs/profiles/freelist
package main

import (
	"cmp"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbset/pkg/workload"
)

type heapSnapshot struct {
	label     string
	heapInUse uint64
	mallocs   uint64
	numGC     uint32
}

type modeResult struct {
	name      string
	elapsed   time.Duration
	mallocs   uint64
	stats     rbtree.Stats
	snapshots []heapSnapshot
}

func main() {
	window := flag.Int("window", 100_000, "Live keys kept in the tree")
	rounds := flag.Int("rounds", 20, "Churn rounds; each erases and reinserts half the window")
	capacity := flag.Int("cache", 0, "Node cache capacity for the cached run (0 = window)")
	seed := flag.Int64("seed", 1, "Random seed")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles (optional)")

	flag.Parse()

	if *window <= 0 || *rounds <= 0 {
		log.Fatal("--window and --rounds must be positive")
	}

	if *capacity <= 0 {
		*capacity = *window
	}

	if *profileDir != "" {
		if err := os.MkdirAll(*profileDir, 0o755); err != nil {
			log.Fatalf("mkdir profile-dir: %v", err)
		}
	}

	keys := workload.Keys(workload.PatternRandom, *window, *seed)

	results := []modeResult{
		churn("no_cache", keys, *rounds, nil, *profileDir),
		churn("cache", keys, *rounds, []rbtree.Option[uint32]{rbtree.WithNodeCache[uint32](*capacity)}, *profileDir),
	}

	fmt.Println()
	fmt.Println("=== Heap Memory Timeline ===")
	fmt.Printf("%-30s %10s %12s %6s\n", "Phase", "InUse(MB)", "Mallocs", "GCs")
	fmt.Println("------------------------------+----------+------------+------")

	for _, res := range results {
		for _, s := range res.snapshots {
			fmt.Printf("%-30s %10.1f %12d %6d\n", res.name+"/"+s.label, float64(s.heapInUse)/1e6, s.mallocs, s.numGC)
		}
	}

	fmt.Println()
	fmt.Println("=== Churn Summary ===")

	for _, res := range results {
		fmt.Printf("  %-9s elapsed=%-12s mallocs=%-10d allocations=%-10d reuses=%-10d reuse=%.1f%%\n",
			res.name, res.elapsed.Round(time.Millisecond), res.mallocs,
			res.stats.Allocations, res.stats.Reuses, res.stats.ReuseRate()*100)
	}

	base, cached := results[0], results[1]
	if base.mallocs > 0 {
		saved := float64(base.mallocs) - float64(cached.mallocs)
		fmt.Printf("  cache saves %.0f mallocs (%.1f%%)\n", saved, saved/float64(base.mallocs)*100)
	}
}

func churn(name string, keys []uint32, rounds int, opts []rbtree.Option[uint32], profileDir string) modeResult {
	res := modeResult{name: name}

	takeSnapshot := func(label string) {
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		res.snapshots = append(res.snapshots, heapSnapshot{
			label:     label,
			heapInUse: m.HeapInuse,
			mallocs:   m.Mallocs,
			numGC:     m.NumGC,
		})
		log.Printf("  [heap] %-30s inuse=%6.1f MB mallocs=%d", name+"/"+label, float64(m.HeapInuse)/1e6, m.Mallocs)
	}

	tree := rbtree.New(cmp.Compare[uint32], nil, opts...)

	takeSnapshot("before_build")

	for _, key := range keys {
		if _, _, err := tree.Insert(key); err != nil {
			log.Fatalf("%s: insert %d: %v", name, key, err)
		}
	}

	takeSnapshot("after_build")

	half := len(keys) / 2
	start := time.Now()
	before := res.snapshots[len(res.snapshots)-1].mallocs

	for round := range rounds {
		for _, key := range keys[:half] {
			tree.Erase(tree.Find(key))
		}

		for _, key := range keys[:half] {
			if _, _, err := tree.Insert(key); err != nil {
				log.Fatalf("%s: round %d: insert %d: %v", name, round, key, err)
			}
		}
	}

	res.elapsed = time.Since(start)

	takeSnapshot("after_churn")
	writeHeapProfile(profileDir, fmt.Sprintf("heap_%s_after_churn.prof", name))

	res.mallocs = res.snapshots[len(res.snapshots)-1].mallocs - before
	res.stats = tree.Allocator().Stats()

	if err := tree.Verify(); err != nil {
		log.Fatalf("%s: verify: %v", name, err)
	}

	tree.Free()
	takeSnapshot("after_free")

	return res
}

func writeHeapProfile(dir, name string) {
	if dir == "" {
		return
	}

	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		log.Printf("warning: create heap profile %s: %v", path, err)

		return
	}
	defer f.Close()

	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Printf("warning: write heap profile %s: %v", path, err)
	}
}
