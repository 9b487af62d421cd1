package metrics

import (
	"go.mongodb.org/mongo-driver/event"
)

// MongoPoolMonitor keeps DBPoolConnections in sync with MongoDB pool events.
func MongoPoolMonitor() *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(e *event.PoolEvent) {
			switch e.Type {
			case event.ConnectionCreated:
				DBPoolConnections.WithLabelValues("open").Inc()
			case event.ConnectionClosed:
				DBPoolConnections.WithLabelValues("open").Dec()
			case event.GetSucceeded:
				DBPoolConnections.WithLabelValues("in_use").Inc()
			case event.ConnectionReturned:
				DBPoolConnections.WithLabelValues("in_use").Dec()
			}
		},
	}
}
