package config

const (
	// TopicIngestCompleted is the NSQ topic announcing a finished ingestion
	// (document id, filename, chunk count). Notification only; ingestion
	// itself is synchronous.
	TopicIngestCompleted = "ingest.completed"
)
