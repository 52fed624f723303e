package config

const (
	EnvKafkaBrokers = "KAFKA_BROKERS"

	EnvProducerCompression  = "KAFKA_PRODUCER_COMPRESSION"
	EnvProducerRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvProducerAsync        = "KAFKA_PRODUCER_ASYNC"
)
