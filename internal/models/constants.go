package models

type SessionStatus string

const (
	SessionStatusActive SessionStatus = "ACTIVE"
	SessionStatusPaused SessionStatus = "PAUSED"
	SessionStatusEnded  SessionStatus = "ENDED"
)

// IsOpen reports whether the session still holds the restaurant's single open slot.
func (s SessionStatus) IsOpen() bool {
	return s == SessionStatusActive || s == SessionStatusPaused
}

type EndReason string

const (
	EndReasonManual    EndReason = "MANUAL"
	EndReasonScheduled EndReason = "SCHEDULED"
	EndReasonCapacity  EndReason = "CAPACITY"
	EndReasonSystem    EndReason = "SYSTEM"
	EndReasonError     EndReason = "ERROR"
)

type Platform string

const (
	PlatformDoorDash Platform = "DOORDASH"
	PlatformUberEats Platform = "UBER_EATS"
	PlatformGrubhub  Platform = "GRUBHUB"
	PlatformDirect   Platform = "DIRECT"
)

type OrderStatus string

const (
	OrderStatusReceived  OrderStatus = "RECEIVED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusPickedUp  OrderStatus = "PICKED_UP"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsCompleted reports whether the order has left the kitchen.
func (s OrderStatus) IsCompleted() bool {
	return s == OrderStatusPickedUp || s == OrderStatusCompleted
}

type Position string

const (
	PositionDeliveryPack Position = "DELIVERY_PACK"
	PositionServer       Position = "SERVER"
	PositionLineCook     Position = "LINE_COOK"
	PositionHost         Position = "HOST"
)

type ShiftType string

const (
	ShiftTypeRegular      ShiftType = "REGULAR"
	ShiftTypeGhostKitchen ShiftType = "GHOST_KITCHEN"
)

type ShiftStatus string

const (
	ShiftStatusScheduled ShiftStatus = "SCHEDULED"
	ShiftStatusAssigned  ShiftStatus = "ASSIGNED"
	ShiftStatusCompleted ShiftStatus = "COMPLETED"
	ShiftStatusCancelled ShiftStatus = "CANCELLED"
)

type TimeOffStatus string

const (
	TimeOffStatusPending  TimeOffStatus = "PENDING"
	TimeOffStatusApproved TimeOffStatus = "APPROVED"
	TimeOffStatusDenied   TimeOffStatus = "DENIED"
)

type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

type AdjustmentType string

const (
	AdjustmentReduce AdjustmentType = "REDUCE"
	AdjustmentExtend AdjustmentType = "EXTEND"
)

// lifecycle and capacity event names published on a restaurant channel
const (
	EventSessionStarted = "session:started"
	EventSessionPaused  = "session:paused"
	EventSessionResumed = "session:resumed"
	EventSessionEnded   = "session:ended"
	EventCapacityUpdate = "capacity:update"
	EventStatsUpdate    = "stats:update"
)
