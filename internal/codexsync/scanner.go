package codexsync

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"codex/internal/domain"
	"codex/internal/metadata"
	"codex/internal/routing"
)

const defaultScanConcurrency = 16

// Scanner discovers sync candidates. Shared-repository scans attribute
// each file to a source project (its first path segment) and route it
// through the evaluator; local scans apply the same rules to the
// project tree.
type Scanner struct {
	Evaluator    *routing.Evaluator
	Rules        domain.DirectionRules
	Caller       routing.CallerFilter
	Placeholders routing.Placeholders

	// Concurrency bounds parallel file hashing.
	Concurrency int
}

// ScanShared walks the shared repository root and returns every file
// routed to the caller, hashed and attributed to its source project.
// Files directly at the repository root belong to no project and are
// never routed.
func (s *Scanner) ScanShared(ctx context.Context, root string) ([]domain.RoutedFile, error) {
	var candidates []domain.RoutedFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		project, relPath, ok := strings.Cut(rel, "/")
		if !ok {
			return nil
		}

		include, err := s.include(path, relPath)
		if err != nil {
			return err
		}
		if !include {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		candidates = append(candidates, domain.RoutedFile{
			Path:          rel,
			RelPath:       relPath,
			SourceProject: project,
			Size:          info.Size(),
			MTime:         info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan shared repository: %w", err)
	}

	if err := s.hashRouted(ctx, root, candidates); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Path < candidates[j].Path })
	return candidates, nil
}

// ScanLocal walks the project tree and returns every routed file,
// hashed, with paths relative to the project root.
func (s *Scanner) ScanLocal(ctx context.Context, root string) ([]domain.LocalFile, error) {
	var files []domain.LocalFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		include, err := s.include(path, rel)
		if err != nil {
			return err
		}
		if !include {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, domain.LocalFile{
			Path:  rel,
			Size:  info.Size(),
			MTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for i := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			hash, err := hashFile(filepath.Join(root, filepath.FromSlash(files[i].Path)))
			if err != nil {
				return err
			}
			files[i].Hash = hash
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// include runs the routing decision for one candidate, reading the
// file's header only when metadata routing is actually consulted.
func (s *Scanner) include(absPath, relPath string) (bool, error) {
	in := routing.Input{
		Path:         relPath,
		Rules:        s.Rules,
		Caller:       s.Caller,
		Placeholders: s.Placeholders,
	}
	if s.Evaluator.UseFileMetadata && s.Rules.Empty() {
		meta, err := readMetadata(absPath)
		if err != nil {
			return false, err
		}
		in.Meta = meta
	}
	return s.Evaluator.ShouldInclude(in)
}

func (s *Scanner) hashRouted(ctx context.Context, root string, files []domain.RoutedFile) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for i := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			hash, err := hashFile(filepath.Join(root, filepath.FromSlash(files[i].Path)))
			if err != nil {
				return err
			}
			files[i].Hash = hash
			return nil
		})
	}
	return g.Wait()
}

func (s *Scanner) concurrency() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	return defaultScanConcurrency
}

func skipDir(name string) bool {
	return name == ".git" || name == ".codex"
}

// hashFile streams the file through blake3.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// readMetadata parses a file's header for legacy per-file routing. A
// file without a header routes with nil metadata.
func readMetadata(path string) (*metadata.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)
	if !metadata.HasHeader(content) {
		return nil, nil
	}
	result, err := metadata.Parse(content, metadata.Options{})
	if err != nil {
		// A malformed header should not sink the whole scan.
		return nil, nil
	}
	return &result.Metadata, nil
}
