package port

// Notifier delivers user-facing messages. Notify must never block the caller.
type Notifier interface {
	Notify(message string)
}
