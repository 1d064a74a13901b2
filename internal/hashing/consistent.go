// Package hashing places keys on a consistent-hash ring of hub endpoints so
// a member keeps reaching the same hub instance while the set is stable.
package hashing

import (
	"slices"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const DefaultReplicas = 64

type Ring struct {
	nodes    []uint64
	registry map[uint64]string
	replicas int
	mu       sync.RWMutex
}

func NewRing(replicas int, nodes ...string) *Ring {
	if replicas <= 0 {
		replicas = DefaultReplicas
	}
	r := &Ring{
		registry: make(map[uint64]string),
		replicas: replicas,
	}
	for _, n := range nodes {
		r.Add(n)
	}
	return r
}

func hash(key string) uint64 {
	return xxhash.Sum64String(key)
}

func (r *Ring) Add(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < r.replicas; i++ {
		h := hash(node + "#" + strconv.Itoa(i))
		if _, ok := r.registry[h]; !ok {
			r.registry[h] = node
			r.nodes = append(r.nodes, h)
		}
	}
	slices.Sort(r.nodes)
}

func (r *Ring) Remove(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.nodes[:0]
	for _, h := range r.nodes {
		if r.registry[h] == node {
			delete(r.registry, h)
			continue
		}
		kept = append(kept, h)
	}
	r.nodes = kept
}

// Get returns the node owning key, or "" for an empty ring.
func (r *Ring) Get(key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.nodes) == 0 {
		return ""
	}

	h := hash(key)
	idx := sort.Search(len(r.nodes), func(i int) bool {
		return r.nodes[i] >= h
	})
	if idx == len(r.nodes) {
		idx = 0
	}

	return r.registry[r.nodes[idx]]
}
