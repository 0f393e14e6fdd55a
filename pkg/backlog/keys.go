package backlog

import "strconv"

// Keys holds the store keys derived from a namespace, queue and item name.
// The layout is shared by every deployment that points at the same store,
// so it must not change.
type Keys struct {
	Namespace string
	Queue     string
	Item      string
}

func (k Keys) queueKey(suffix string) string {
	return k.Namespace + ":" + k.Queue + ":" + suffix
}

// Counter is the id counter key: {namespace}:{queue}:id
func (k Keys) Counter() string { return k.queueKey("id") }

// Todo is the pending list key: {namespace}:{queue}:todo
func (k Keys) Todo() string { return k.queueKey("todo") }

// Doing is the claimed list key: {namespace}:{queue}:doing
func (k Keys) Doing() string { return k.queueKey("doing") }

// Completed is the completed bitset key: {namespace}:{queue}:completed
func (k Keys) Completed() string { return k.queueKey("completed") }

// Unworkable is the unworkable bitset key: {namespace}:{queue}:unworkable
func (k Keys) Unworkable() string { return k.queueKey("unworkable") }

// Task is the payload hash key: {namespace}:{item}:{id}
func (k Keys) Task(id int64) string {
	return k.Namespace + ":" + k.Item + ":" + strconv.FormatInt(id, 10)
}

// Lease is the claim flag key: {namespace}:{item}:{id}:claimed
func (k Keys) Lease(id int64) string {
	return k.Task(id) + ":claimed"
}
