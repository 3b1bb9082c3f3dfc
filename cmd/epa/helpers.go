package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/epa/internal/dto"
	"github.com/aretw0/epa/internal/presentation/tui"
	"github.com/aretw0/epa/pkg/adapters/file"
	loamAdapter "github.com/aretw0/epa/pkg/adapters/loam"
	"github.com/aretw0/epa/pkg/adapters/redis"
	"github.com/aretw0/epa/pkg/adapters/sqlite"
	"github.com/aretw0/epa/pkg/domain"
	"github.com/aretw0/epa/pkg/ports"
	"github.com/aretw0/loam"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// openSource picks the description adapter for path: a Loam repository for
// a directory, a YAML or JSON file otherwise.
func openSource(cmd *cobra.Command, path string) (ports.DescriptionSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if !info.IsDir() {
		return file.NewSource(path), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
		loam.WithVersioning(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open loam repository: %w", err)
	}
	id, _ := cmd.Flags().GetString("id")
	return loamAdapter.New(loam.NewTypedRepository[dto.AutomatonDescription](repo), id), nil
}

// describe loads the description behind the automaton argument.
func describe(cmd *cobra.Command, path string) (*ports.Description, error) {
	src, err := openSource(cmd, path)
	if err != nil {
		return nil, err
	}
	return src.Describe(cmd.Context())
}

// openTrace opens the trace store named by location:
//
//	redis://host:port/db   Redis
//	sqlite:path, *.db      SQLite
//	anything else          a directory of JSON files
func openTrace(ctx context.Context, location string) (ports.TraceStore, io.Closer, error) {
	switch {
	case strings.HasPrefix(location, "redis://"), strings.HasPrefix(location, "rediss://"):
		opts, err := backend.ParseURL(location)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		client := backend.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis unreachable: %w", err)
		}
		r := redis.NewFromClient(client)
		return r, r, nil

	case strings.HasPrefix(location, "sqlite:"), filepath.Ext(location) == ".db":
		r, err := sqlite.Open(strings.TrimPrefix(location, "sqlite:"), sqlite.DefaultConfig())
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil

	default:
		return file.NewRecorder(location), nopCloser{}, nil
	}
}

// readTraces loads every subject's transitions, or only one subject's when
// subject is positive.
func readTraces(ctx context.Context, reader ports.TraceReader, subject int64) ([]tui.SubjectTrace, error) {
	subjects, err := reader.Subjects(ctx)
	if err != nil {
		return nil, err
	}

	var out []tui.SubjectTrace
	for _, s := range subjects {
		if subject > 0 && int64(s.ID) != subject {
			continue
		}
		ts, err := reader.Transitions(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, tui.SubjectTrace{Subject: s, Transitions: ts})
	}
	if subject > 0 && len(out) == 0 {
		return nil, fmt.Errorf("subject %d: %w", subject, domain.ErrSubjectNotFound)
	}
	return out, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
