package ratelimits

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	// How many keys a bucket holds when it is created
	BucketInitialFill = 8

	// The maximum amount of keys a user may possess
	BucketUpperBound = 16

	// How often new keys drip into the buckets
	DropInterval = 10 * time.Second

	// How many keys drop at a time
	DropSize = 1
)

var ErrNoKeysLeft = errors.New("no keys left")

// Commands limits how many guardian commands a user may run
var Commands = NewBucketContainer(BucketInitialFill, BucketUpperBound)

// BucketContainer maps user ids to key counts. Every command drains keys, keys refill over time.
type BucketContainer struct {
	sync.Mutex

	initialFill int8
	upperBound  int8
	buckets     map[string]int8
}

func NewBucketContainer(initialFill, upperBound int8) *BucketContainer {
	return &BucketContainer{
		initialFill: initialFill,
		upperBound:  upperBound,
		buckets:     make(map[string]int8),
	}
}

// Run refills the buckets every interval until ctx is done
func (b *BucketContainer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Refill()
		}
	}
}

// Refill drops new keys into all buckets. Buckets that were drained completely
// sit out one round before they are filled up again.
func (b *BucketContainer) Refill() {
	b.Lock()
	defer b.Unlock()

	for user, keys := range b.buckets {
		switch {
		case keys == -1:
			b.buckets[user]++
		case keys == 0:
			b.buckets[user] = b.initialFill
		case keys < b.upperBound:
			b.buckets[user] += DropSize
		}
	}
}

// Drain removes amount keys from the bucket of user. A user that runs out of keys
// is put into the chill zone.
func (b *BucketContainer) Drain(amount int8, user string) error {
	b.Lock()
	defer b.Unlock()

	keys, ok := b.buckets[user]
	if !ok {
		keys = b.initialFill
	}

	if amount > keys {
		if keys == 0 {
			b.buckets[user] = -1
		}
		return ErrNoKeysLeft
	}

	b.buckets[user] = keys - amount
	return nil
}

func (b *BucketContainer) Get(user string) int8 {
	b.Lock()
	defer b.Unlock()

	keys, ok := b.buckets[user]
	if !ok {
		return b.initialFill
	}
	return keys
}
