package world

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/geom"
	"github.com/marcaocj/R1/internal/game/loot"
	"github.com/marcaocj/R1/internal/game/schedule"
)

// WorldItem is a dropped item lying on the arena floor.
type WorldItem struct {
	Handle    loot.Handle
	Item      string
	Quantity  int
	Position  geom.Vec3
	DroppedAt time.Time
}

// Items holds every dropped item. It implements loot.Spawner.
//
// Not safe for concurrent use.
type Items struct {
	clock  schedule.Clock
	logger *zap.Logger
	items  map[loot.Handle]WorldItem
}

// NewItems creates an empty item store.
func NewItems(clock schedule.Clock, logger *zap.Logger) *Items {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Items{clock: clock, logger: logger, items: make(map[loot.Handle]WorldItem)}
}

// SpawnWorldItem places quantity of item at pos and returns its handle.
func (it *Items) SpawnWorldItem(item string, quantity int, pos geom.Vec3) loot.Handle {
	h := loot.Handle(uuid.NewString())
	it.items[h] = WorldItem{
		Handle:    h,
		Item:      item,
		Quantity:  quantity,
		Position:  pos,
		DroppedAt: it.clock.Now(),
	}
	it.logger.Debug("item dropped",
		zap.String("handle", string(h)),
		zap.String("item", item),
		zap.Int("quantity", quantity),
	)
	return h
}

// Len returns the number of items on the floor.
func (it *Items) Len() int { return len(it.items) }

// Get returns the item with handle h.
func (it *Items) Get(h loot.Handle) (WorldItem, bool) {
	w, ok := it.items[h]
	return w, ok
}

// All returns every item, oldest first.
func (it *Items) All() []WorldItem {
	out := make([]WorldItem, 0, len(it.items))
	for _, w := range it.items {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DroppedAt.Equal(out[j].DroppedAt) {
			return out[i].DroppedAt.Before(out[j].DroppedAt)
		}
		return out[i].Handle < out[j].Handle
	})
	return out
}

// PickupNear removes and returns every item within radius of pos.
func (it *Items) PickupNear(pos geom.Vec3, radius float64) []WorldItem {
	var out []WorldItem
	for _, w := range it.All() {
		if pos.FlatDist(w.Position) <= radius {
			delete(it.items, w.Handle)
			out = append(out, w)
		}
	}
	return out
}
