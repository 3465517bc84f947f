package config

const (
	// MaxDossierNameLength is the maximum length for dossier and batch names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxDossierNameLength = 255

	// MaxRequestTitleLength is the maximum length for document request titles.
	// Same limit as dossier names for consistency.
	MaxRequestTitleLength = 255

	// ReviewQueueLimit caps how many uploads one review-queue page returns.
	ReviewQueueLimit = 100

	// RecentActivityLimit is how many recent uploads the comptable dashboard shows.
	RecentActivityLimit = 10

	// RecentNotificationsLimit is how many notifications the client dashboard shows.
	RecentNotificationsLimit = 5

	// DefaultNotificationLimit is the notification page size when none is given.
	DefaultNotificationLimit = 20

	// MaxNotificationLimit caps a requested notification page size.
	MaxNotificationLimit = 100
)
