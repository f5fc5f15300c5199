package store

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// vectorIndex wraps a coder/hnsw graph with string ids and atomic
// persistence. Deletion is lazy: removing an id only drops its mapping; the
// orphaned graph node stops appearing in results but is not excised (deleting
// the last node corrupts the graph in coder/hnsw).
type vectorIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	dims    int
	m       int
	efParam int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// vectorIndexMeta stores the id mappings alongside the exported graph.
type vectorIndexMeta struct {
	IDMap   map[string]uint64
	NextKey uint64
	Dims    int
}

func newVectorIndex(dims, m, efSearch int) *vectorIndex {
	if m == 0 {
		m = 16
	}
	if efSearch == 0 {
		efSearch = 64
	}
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = m
	graph.EfSearch = efSearch
	graph.Ml = 0.25

	return &vectorIndex{
		graph:   graph,
		dims:    dims,
		m:       m,
		efParam: efSearch,
		idMap:   make(map[string]uint64),
		keyMap:  make(map[uint64]string),
	}
}

// add inserts vectors with their ids, replacing existing ids lazily.
func (x *vectorIndex) add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for i, id := range ids {
		if len(vectors[i]) != x.dims {
			return fmt.Errorf("vector for %s has dimension %d, index expects %d", id, len(vectors[i]), x.dims)
		}
		if oldKey, exists := x.idMap[id]; exists {
			delete(x.keyMap, oldKey)
			delete(x.idMap, id)
		}

		key := x.nextKey
		x.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeInPlace(vec)

		x.graph.Add(hnsw.MakeNode(key, vec))
		x.idMap[id] = key
		x.keyMap[key] = id
	}
	return nil
}

type vectorHit struct {
	id       string
	distance float32
}

// search returns up to k live neighbors ordered by ascending distance.
// Orphaned nodes are filtered out, so fewer than k results may come back
// even when the graph holds more nodes.
func (x *vectorIndex) search(query []float32, k int) ([]vectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(query) != x.dims {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), x.dims)
	}
	if x.graph.Len() == 0 || k <= 0 {
		return nil, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	nodes := x.graph.Search(normalized, k)
	hits := make([]vectorHit, 0, len(nodes))
	for _, node := range nodes {
		id, live := x.keyMap[node.Key]
		if !live {
			continue
		}
		hits = append(hits, vectorHit{
			id:       id,
			distance: x.graph.Distance(normalized, node.Value),
		})
	}
	return hits, nil
}

// remove drops ids from the index (lazy deletion).
func (x *vectorIndex) remove(ids []string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		if key, exists := x.idMap[id]; exists {
			delete(x.keyMap, key)
			delete(x.idMap, id)
		}
	}
}

func (x *vectorIndex) count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.idMap)
}

// save writes the graph and id mappings atomically (temp file + rename).
func (x *vectorIndex) save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := x.graph.Export(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename index file: %w", err)
	}

	metaTmp := path + ".meta.tmp"
	mf, err := os.Create(metaTmp)
	if err != nil {
		return fmt.Errorf("create index metadata: %w", err)
	}
	meta := vectorIndexMeta{IDMap: x.idMap, NextKey: x.nextKey, Dims: x.dims}
	if err := gob.NewEncoder(mf).Encode(meta); err != nil {
		_ = mf.Close()
		_ = os.Remove(metaTmp)
		return fmt.Errorf("encode index metadata: %w", err)
	}
	if err := mf.Close(); err != nil {
		_ = os.Remove(metaTmp)
		return fmt.Errorf("close index metadata: %w", err)
	}
	return os.Rename(metaTmp, path+".meta")
}

// load reads a previously saved index. Returns os.ErrNotExist when no index
// exists at path.
func (x *vectorIndex) load(path string) error {
	mf, err := os.Open(path + ".meta")
	if err != nil {
		return err
	}
	var meta vectorIndexMeta
	decodeErr := gob.NewDecoder(mf).Decode(&meta)
	_ = mf.Close()
	if decodeErr != nil {
		return fmt.Errorf("decode index metadata: %w", decodeErr)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	x.mu.Lock()
	defer x.mu.Unlock()

	// Import needs an io.ByteReader.
	if err := x.graph.Import(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	x.idMap = meta.IDMap
	x.nextKey = meta.NextKey
	x.dims = meta.Dims
	x.keyMap = make(map[uint64]string, len(meta.IDMap))
	for id, key := range meta.IDMap {
		x.keyMap[key] = id
	}
	return nil
}

// normalizeInPlace scales v to unit length so cosine distance behaves.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
