// Package workers runs the background maintenance jobs of the service next
// to the HTTP server.
package workers

import "context"

// Worker is a background job. Run blocks until ctx is cancelled.
type Worker interface {
	Run(ctx context.Context)
}
