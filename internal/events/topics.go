package events

import "strconv"

const (
	TopicOrderCreated        = "orders.created"
	TopicOrderStatusChanged  = "orders.status_changed"
	TopicInventoryAllocated  = "inventory.allocated"
	TopicInventoryReleased   = "inventory.released"
	TopicReorderRequested    = "inventory.reorder.requested"
	TopicRejectionsLifecycle = "quality.rejections"
)

// Partition key = order id, so every event of one order keeps its ordering.
func PartitionKey(id int64) []byte { return []byte(strconv.FormatInt(id, 10)) }
