//go:build ignore

// compare_state reports whether two daemon data directories hold the same
// state, e.g. a source node and a node restored from its snapshot.
//
//	go run scripts/compare_state.go <data1> <data2>
package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"ReliefAuction/internal/snapshot"
	"ReliefAuction/internal/storage"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <data1> <data2>\n", os.Args[0])
		os.Exit(1)
	}

	left, err := load(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	right, err := load(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[2], err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d entries, checksum %x\n", os.Args[1], len(left.entries), left.checksum[:8])
	fmt.Printf("%s: %d entries, checksum %x\n", os.Args[2], len(right.entries), right.checksum[:8])

	if left.checksum == right.checksum {
		fmt.Println("states are identical")
		return
	}

	fmt.Println("states differ:")
	for _, fam := range diffFamilies(left.entries, right.entries) {
		fmt.Printf("  %-6s %d differing keys\n", fam.name, fam.count)
	}

	os.Exit(2)
}

type state struct {
	entries  map[string][]byte
	checksum [32]byte
}

// load opens the store under dir/db and reads every entry plus its snapshot checksum.
func load(dir string) (*state, error) {
	db, err := storage.New(dir + "/db")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	raw, err := snapshot.Create(db)
	if err != nil {
		return nil, err
	}

	info, err := snapshot.Verify(raw)
	if err != nil {
		return nil, err
	}

	s := &state{entries: make(map[string][]byte), checksum: info.Checksum}

	err = db.Iterate(func(key, value []byte) error {
		s.entries[string(key)] = bytes.Clone(value)
		return nil
	})

	return s, err
}

type family struct {
	name  string
	count int
}

// diffFamilies counts differing keys grouped by their prefix up to the first ':'.
func diffFamilies(a, b map[string][]byte) []family {
	counts := make(map[string]int)

	for k, v := range a {
		if w, ok := b[k]; !ok || !bytes.Equal(v, w) {
			counts[prefixOf(k)]++
		}
	}

	for k := range b {
		if _, ok := a[k]; !ok {
			counts[prefixOf(k)]++
		}
	}

	out := make([]family, 0, len(counts))
	for name, n := range counts {
		out = append(out, family{name: name, count: n})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })

	return out
}

func prefixOf(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i+1]
		}
	}
	return key
}
