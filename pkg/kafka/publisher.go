package kafka

import "context"

// Publisher is the producer surface services depend on. Event publishing is
// best-effort: services log a failed publish and never fail the mutation.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}
