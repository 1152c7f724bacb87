package config

const (
	// TopicIngestTask is the NSQ topic carrying document ingestion tasks.
	TopicIngestTask = "ingest.task"

	// ChannelIngest is the consumer channel for the ingestion worker.
	ChannelIngest = "docrag"
)
