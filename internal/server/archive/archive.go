// Package archive keeps a copy of every export outside the download itself:
// in a local directory, in an S3-compatible bucket, or both.
package archive

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/eventsignup/internal/server/config"
)

type Archive interface {
	Name() string
	// Store saves data under name and returns where it went.
	Store(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// New builds the sinks enabled in cfg. It returns nil when none is.
func New(cfg *config.Config) (Archive, error) {
	var sinks Multi

	if cfg.ArchiveDir != "" {
		l, err := NewLocal(cfg.ArchiveDir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, l)
	}
	if cfg.S3Bucket != "" {
		sinks = append(sinks, NewS3(S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
		}))
	}

	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

// Multi stores into every sink and joins their errors. The location it
// reports is the first successful one.
type Multi []Archive

func (m Multi) Name() string { return "multi" }

func (m Multi) Store(ctx context.Context, name, contentType string, data []byte) (string, error) {
	var (
		first string
		errs  []error
	)
	for _, a := range m {
		loc, err := a.Store(ctx, name, contentType, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if first == "" {
			first = loc
		}
	}
	return first, errors.Join(errs...)
}
