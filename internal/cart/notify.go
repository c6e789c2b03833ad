package cart

// Level is the severity of a user-facing cart message.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
)

// Kind identifies which mutation produced a notification.
type Kind string

const (
	KindAdded        Kind = "added"
	KindAddedAnother Kind = "added_another"
	KindRemoved      Kind = "removed"
	KindCleared      Kind = "cleared"
)

// Notification is an advisory message produced by a cart mutation.
type Notification struct {
	Level   Level  `json:"level"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Notifier receives cart notifications. Delivery is fire-and-forget.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) {
	if f != nil {
		f(n)
	}
}

// Notifiers fans a notification out to every member.
type Notifiers []Notifier

// Notify implements Notifier.
func (ns Notifiers) Notify(n Notification) {
	for _, notifier := range ns {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}

// Collector records notifications in order.
type Collector struct {
	items []Notification
}

// Notify implements Notifier.
func (c *Collector) Notify(n Notification) {
	c.items = append(c.items, n)
}

// Notifications returns the recorded notifications.
func (c *Collector) Notifications() []Notification {
	return append([]Notification(nil), c.items...)
}
