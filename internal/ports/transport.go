package ports

import (
	"context"
	"io"

	"github.com/bnema/jobchat-cli/internal/domain"
)

// Transport sends one turn to the agent proxy and hands back the raw response body.
// The body is an ordered sequence of byte chunks ending in io.EOF or a read error.
type Transport interface {
	Open(ctx context.Context, req domain.TurnRequest) (io.ReadCloser, error)
}
