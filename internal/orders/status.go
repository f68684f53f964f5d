package orders

import (
	"fmt"
	"strings"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:  {StatusInProgress: true, StatusCancelled: true},
	StatusInProgress: {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := validNext[st]
	return st, ok
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Policy decides how SetStatus treats moves outside the transition table.
type Policy string

const (
	// PolicyStrict rejects moves that validNext does not allow.
	PolicyStrict Policy = "strict"
	// PolicyPermissive lets staff overwrite any status with any other.
	PolicyPermissive Policy = "permissive"
)

func ParsePolicy(s string) Policy {
	if Policy(strings.ToLower(strings.TrimSpace(s))) == PolicyPermissive {
		return PolicyPermissive
	}
	return PolicyStrict
}

// Check returns Conflict for a forbidden move. Re-applying the current
// status is always accepted.
func (p Policy) Check(from, to Status) error {
	if from == to || p == PolicyPermissive || CanTransition(from, to) {
		return nil
	}
	return apperr.Conflict(fmt.Sprintf("cannot move order from %s to %s", from, to))
}

// ItemStatus is tracked per line by the kitchen and is independent of the
// parent order status.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
)

func ParseItemStatus(s string) (ItemStatus, bool) {
	st := ItemStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case ItemPending, ItemPreparing, ItemReady:
		return st, true
	}
	return "", false
}

// Bucket groups statuses for the live, kitchen and history views.
type Bucket string

const (
	BucketAll     Bucket = "all"
	BucketLive    Bucket = "live"
	BucketKitchen Bucket = "kitchen"
	BucketHistory Bucket = "history"
)

var bucketStatuses = map[Bucket][]Status{
	BucketAll:     nil,
	BucketLive:    {StatusPending, StatusConfirmed, StatusInProgress},
	BucketKitchen: {StatusConfirmed, StatusInProgress},
	BucketHistory: {StatusCompleted, StatusCancelled},
}

func ParseBucket(s string) (Bucket, bool) {
	b := Bucket(strings.ToLower(strings.TrimSpace(s)))
	if b == "" {
		return BucketAll, true
	}
	_, ok := bucketStatuses[b]
	return b, ok
}

// Statuses lists the statuses in the bucket; nil means no restriction.
func (b Bucket) Statuses() []Status { return bucketStatuses[b] }

// Oldest-first for boards staff work through, newest-first otherwise.
func (b Bucket) oldestFirst() bool { return b == BucketLive || b == BucketKitchen }
