package mq

// Routing keys published and consumed by the scheduler.
const (
	RoutingKeyTaskCreated   = "task.created"
	RoutingKeyTaskCompleted = "task.completed"
	RoutingKeyReminderDue   = "reminder.due"
)
