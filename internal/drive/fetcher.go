package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"dashboard/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type Options struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
	// Endpoint overrides the Drive API base URL; empty means production.
	Endpoint string
	// Progress, when set, is called once per download attempt with the
	// response size (-1 if unknown) and receives the bytes as they are read.
	Progress func(size int64) io.Writer
}

type Fetcher struct {
	oauth  *oauth2.Config
	opts   Options
	logger *zap.Logger
}

func NewFetcher(oauth *oauth2.Config, opts Options, logger *zap.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	return &Fetcher{oauth: oauth, opts: opts, logger: logger}
}

// Fetch downloads the file content. Credential rejections are returned as
// domain.ErrReloginRequired without retrying; transient failures are retried
// up to opts.Retries times.
func (f *Fetcher) Fetch(ctx context.Context, token *oauth2.Token, fileID string) ([]byte, error) {
	if token == nil {
		return nil, domain.ErrReloginRequired
	}

	var lastErr error
	for attempt := 0; attempt <= f.opts.Retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * f.opts.Backoff
			f.logger.Warn("retrying drive download",
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", wait),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", domain.ErrRemote, ctx.Err())
			case <-time.After(wait):
			}
		}

		data, err := f.download(ctx, token, fileID)
		if err == nil {
			return data, nil
		}
		if isCredentialError(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrReloginRequired, err)
		}
		lastErr = err
		if !isTransient(err) {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrRemote, lastErr)
}

func (f *Fetcher) download(ctx context.Context, token *oauth2.Token, fileID string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	opts := []option.ClientOption{option.WithTokenSource(f.oauth.TokenSource(attemptCtx, token))}
	if f.opts.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.opts.Endpoint))
	}
	srv, err := drive.NewService(attemptCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive client: %w", err)
	}

	resp, err := srv.Files.Get(fileID).Context(attemptCtx).Download()
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if f.opts.Progress != nil {
		size := resp.ContentLength
		if size <= 0 {
			size = -1
		}
		body = io.TeeReader(resp.Body, f.opts.Progress(size))
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	if resp.ContentLength > 0 && int64(len(data)) != resp.ContentLength {
		return nil, fmt.Errorf("read file %s: %w", fileID, io.ErrUnexpectedEOF)
	}
	return data, nil
}

func isCredentialError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return true
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode == "invalid_grant" {
			return true
		}
		if retrieveErr.Response != nil {
			status := retrieveErr.Response.StatusCode
			return status == http.StatusBadRequest || status == http.StatusUnauthorized
		}
	}
	return strings.Contains(err.Error(), "invalid_grant")
}

func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
