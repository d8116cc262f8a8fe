package enums

// OutboxEventType names the domain events written to the outbox table.
type OutboxEventType string

const (
	EventOrderCreated     OutboxEventType = "order.created"
	EventOrderPaid        OutboxEventType = "order.paid"
	EventOrderCancelled   OutboxEventType = "order.cancelled"
	EventOrderRefunded    OutboxEventType = "order.refunded"
	EventPayoutTransition OutboxEventType = "payout.transitioned"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder  OutboxAggregateType = "order"
	AggregatePayout OutboxAggregateType = "payout"
)

// OutboxStatus tracks publication progress of an outbox row.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)
