package constants

import "time"

const (
	AppName            = "dietline"
	DefaultKeyringUser = "api-token"
	KeyringDBUser      = "db-connection"
	DefaultConfigPath  = "~/.config/dietline/dietline.db"
	Version            = "v0.1.0"

	// Meal categories
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnacks    = "snacks"

	// Order status values as reported by the order service
	RemoteStatusCancelled = "Cancelled"
	RemoteStatusDelivered = "Delivered"

	// Delivery stage thresholds. A delivery is out for delivery once it is at
	// most OutForDeliveryWithinMin minutes away and being prepared once it is at
	// most PreparingWithinMin minutes away.
	OutForDeliveryWithinMin = 15
	PreparingWithinMin      = 60

	// Tick cadences
	DefaultStageInterval     = 30 * time.Second
	DefaultCountdownInterval = time.Second

	// Order service client
	DefaultHTTPTimeout = 15 * time.Second
	MaxResponseBytes   = 1 << 20

	// Notify constants
	NotifierLockfileName   = "dietline-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.dietline"
	TrayExecutablePrefix   = "dietline-tray"
	EventsExchange         = "dietline.events"

	// Messages shown in place of the countdown once an order is terminal
	MessageCancelled = "This order has been cancelled."
	MessageCompleted = "All deliveries completed."
	MessageNotFound  = "Order not found."
)
