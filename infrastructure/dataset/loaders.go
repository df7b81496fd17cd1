package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/modelscope/eval-scope/internal/domain"
	"github.com/modelscope/eval-scope/internal/ports"
	"github.com/modelscope/eval-scope/internal/prompt"
)

// maxConcurrentLoads caps parallel file reads when loading answer sets.
const maxConcurrentLoads = 8

// LoadAnswers reads one answer file.
func LoadAnswers(ctx context.Context, path string) ([]domain.AnswerRecord, error) {
	recs, err := ReadJSONL[domain.AnswerRecord](path)
	if err != nil {
		return nil, err
	}
	clog.FromContext(ctx).With("path", path).With("records", len(recs)).Debug("Loaded answers")
	return recs, nil
}

// LoadAnswerSets reads every path concurrently. The result keeps the order
// of paths.
func LoadAnswerSets(ctx context.Context, paths []string) ([][]domain.AnswerRecord, error) {
	sets := make([][]domain.AnswerRecord, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			recs, err := LoadAnswers(ctx, p)
			if err != nil {
				return err
			}
			sets[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sets, nil
}

// LoadReferences reads a reference file. The result is never nil, so an
// empty file still counts as configured.
func LoadReferences(ctx context.Context, path string) ([]domain.AnswerRecord, error) {
	recs, err := LoadAnswers(ctx, path)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []domain.AnswerRecord{}
	}
	return recs, nil
}

// LoadTemplates reads a prompt template set from JSON lines, or from a YAML
// list when the extension is .yaml or .yml.
func LoadTemplates(path string) ([]prompt.Template, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, ports.NewStoreError(path, "open", err)
		}
		var ts []prompt.Template
		if err := yaml.Unmarshal(data, &ts); err != nil {
			return nil, ports.NewStoreError(path, "decode", fmt.Errorf("parsing YAML templates: %w", err))
		}
		return ts, nil
	default:
		return ReadJSONL[prompt.Template](path)
	}
}
