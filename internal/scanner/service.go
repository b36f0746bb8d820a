package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var ErrUnknownScanner = errors.New("unknown scanner")

type Poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

type Service struct {
	api    Poster
	logger *slog.Logger
}

func NewService(api Poster, logger *slog.Logger) *Service {
	return &Service{api: api, logger: logger}
}

// Run posts the filters to the scanner endpoint and returns the response
// as received.
func (s *Service) Run(ctx context.Context, id string, req Request) (*Response, error) {
	if _, ok := Lookup(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScanner, id)
	}
	var resp Response
	if err := s.api.Post(ctx, "/scanner/"+id, req, &resp); err != nil {
		return nil, fmt.Errorf("run scanner %s: %w", id, err)
	}
	s.logger.Debug("scanner ran", "scanner", id, "rows", len(resp.Results))
	return &resp, nil
}
