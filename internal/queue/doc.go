// Package queue wraps publish and consume against the external
// message broker behind a small gateway contract.
//
// Two implementations are provided: AMQPGateway speaks to a RabbitMQ
// broker with durable queues and manual acknowledgement, and
// InMemGateway runs the same contract over buffered channels for
// tests and local development.
package queue
