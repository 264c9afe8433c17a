package webhook

import "context"

// Sender mirrors a closed ticket's transcript archive to an external endpoint.
type Sender interface {
	SendTranscript(ctx context.Context, filename string, body []byte) error
}
