package config

import "time"

const (
	DefaultKafkaBrokers = "localhost:9092"

	DefaultProducerCompression  = "snappy"
	DefaultProducerRequireAcks  = -1
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 100 * time.Millisecond
	DefaultProducerAsync        = false
)
