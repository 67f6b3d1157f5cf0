package identify

import (
	"context"
	"sync"

	"github.com/saturnino-fabrica-de-software/vigia/internal/repository"
)

// MatchThreshold is the maximum cosine distance for a face to count as a
// known person.
const MatchThreshold = 0.55

// Match is a successful index lookup
type Match struct {
	PersonID int64
	Distance float64
}

// entry tracks one person's centroid. The running sum lets new embeddings
// fold in without re-reading the database.
type entry struct {
	personID int64
	sum      []float64
	count    int
	centroid []float32
}

func (e *entry) add(embedding []float32) {
	if e.sum == nil {
		e.sum = make([]float64, len(embedding))
	}
	if len(e.sum) != len(embedding) {
		return
	}
	for i, v := range embedding {
		e.sum[i] += float64(v)
	}
	e.count++
	e.recompute()
}

func (e *entry) recompute() {
	mean := make([]float32, len(e.sum))
	for i, v := range e.sum {
		mean[i] = float32(v / float64(e.count))
	}
	e.centroid = Normalize(mean)
}

// Index holds per-tenant centroids for fast matching. Tenants hydrate
// lazily from the person repository on first lookup.
type Index struct {
	mu      sync.Mutex
	tenants map[int64]map[int64]*entry
	repo    repository.PersonRepositoryInterface
}

// NewIndex creates an empty index backed by the person repository
func NewIndex(repo repository.PersonRepositoryInterface) *Index {
	return &Index{
		tenants: make(map[int64]map[int64]*entry),
		repo:    repo,
	}
}

// Match returns the closest enrolled person within the threshold, or nil
// when the face matches nobody.
func (x *Index) Match(ctx context.Context, userID int64, embedding []float32) (*Match, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	persons, err := x.hydrateLocked(ctx, userID)
	if err != nil {
		return nil, err
	}

	best := (*Match)(nil)
	for _, e := range persons {
		d := CosineDistance(embedding, e.centroid)
		if d > MatchThreshold {
			continue
		}
		if best == nil || d < best.Distance {
			best = &Match{PersonID: e.personID, Distance: d}
		}
	}
	return best, nil
}

// Update folds a new embedding into a person's centroid. Unknown persons
// are added fresh, which covers newly enrolled identities.
func (x *Index) Update(userID, personID int64, embedding []float32) {
	x.mu.Lock()
	defer x.mu.Unlock()

	persons, ok := x.tenants[userID]
	if !ok {
		// Tenant not hydrated; the next Match will read from the database.
		return
	}
	e, ok := persons[personID]
	if !ok {
		e = &entry{personID: personID}
		persons[personID] = e
	}
	e.add(embedding)
}

// Invalidate drops a tenant's cached centroids so the next lookup rebuilds
// them. Manual enrollment calls this to make new photos match immediately.
func (x *Index) Invalidate(userID int64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.tenants, userID)
}

func (x *Index) hydrateLocked(ctx context.Context, userID int64) (map[int64]*entry, error) {
	if persons, ok := x.tenants[userID]; ok {
		return persons, nil
	}

	list, err := x.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	persons := make(map[int64]*entry, len(list))
	for _, p := range list {
		e := &entry{personID: p.ID}
		for _, emb := range p.Embeddings() {
			if len(emb.Embedding) == 0 {
				continue
			}
			e.add(Normalize(emb.Embedding))
		}
		if e.count == 0 {
			continue
		}
		persons[p.ID] = e
	}

	x.tenants[userID] = persons
	return persons, nil
}
