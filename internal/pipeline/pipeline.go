package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kevinmichaelchen/topic-tagger/internal/github"
	"github.com/kevinmichaelchen/topic-tagger/internal/llm"
	"github.com/kevinmichaelchen/topic-tagger/internal/models"
)

type Lister interface {
	ListRepos(ctx context.Context, opts github.ListOptions) ([]models.Repo, error)
}

type Fetcher interface {
	WithClone(ctx context.Context, repo models.Repo, fn func(dir string) error) error
}

type Sampler interface {
	Sample(repo, dir string) (models.Sample, error)
}

type Inferencer interface {
	SuggestTopics(ctx context.Context, sample models.Sample) (models.TopicSuggestion, error)
}

type Publisher interface {
	ReplaceTopics(ctx context.Context, repo models.Repo, topics models.TopicSuggestion) error
}

// Stage names the per-repository step a failure happened in.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageSample  Stage = "sample"
	StageInfer   Stage = "infer"
	StagePublish Stage = "publish"
)

type Options struct {
	OnlyPublic   bool
	OnlyUntagged bool
	// DryRun infers topics but never calls the publisher.
	DryRun bool
	// Concurrency bounds how many repositories are in flight. Values below 1
	// mean one at a time.
	Concurrency int
}

type Pipeline struct {
	Lister     Lister
	Fetcher    Fetcher
	Sampler    Sampler
	Inferencer Inferencer
	Publisher  Publisher
	Logger     *zap.Logger
}

// Run lists the selected repositories and tags each one. A failure while
// processing a repository is recorded in the report and the run moves on;
// only listing failures, rejected credentials and cancellation of ctx end the
// run early.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	repos, err := p.Lister.ListRepos(ctx, github.ListOptions{
		OnlyPublic:   opts.OnlyPublic,
		OnlyUntagged: opts.OnlyUntagged,
	})
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	logger.Info("found repositories", zap.Int("count", len(repos)))

	report := &Report{Total: len(repos)}
	var mu sync.Mutex

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, repo := range repos {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gCtx.Err() != nil {
				return nil
			}
			log := logger.With(
				zap.String("repository", repo.FullName),
				zap.String("progress", fmt.Sprintf("%d/%d", i+1, len(repos))),
			)
			log.Info("processing")

			outcome := p.processRepo(gCtx, log, repo, opts.DryRun)

			mu.Lock()
			report.add(outcome)
			mu.Unlock()

			if outcome.Err != nil {
				log.Error("repository failed", zap.String("stage", string(outcome.Stage)), zap.Error(outcome.Err))
				if isFatal(outcome.Err) {
					return outcome.Err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	// An interrupted run is not a completed one.
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run interrupted: %w", err)
	}
	return report, nil
}

// isFatal reports whether a platform rejected its credentials; every later
// call against that platform would fail the same way.
func isFatal(err error) bool {
	return github.IsFatal(err) || llm.IsFatal(err)
}

// processRepo runs fetch, sample, infer and publish for one repository. The
// clone directory only lives for the duration of the callback.
func (p *Pipeline) processRepo(ctx context.Context, log *zap.Logger, repo models.Repo, dryRun bool) Outcome {
	outcome := Outcome{Repo: repo.FullName}

	var topics models.TopicSuggestion
	fetchErr := p.Fetcher.WithClone(ctx, repo, func(dir string) error {
		sample, err := p.Sampler.Sample(repo.FullName, dir)
		if err != nil {
			outcome.Stage = StageSample
			return err
		}
		if sample.Empty() {
			outcome.Status = StatusSkipped
			outcome.Reason = "no code found"
			return nil
		}
		log.Debug("sampled files",
			zap.Int("files", len(sample.Files)),
			zap.String("size", humanize.Bytes(uint64(sample.Size()))),
		)

		topics, err = p.Inferencer.SuggestTopics(ctx, sample)
		if err != nil {
			outcome.Stage = StageInfer
			return err
		}
		return nil
	})
	if fetchErr != nil {
		if outcome.Stage == "" {
			outcome.Stage = StageFetch
		}
		outcome.Status = StatusFailed
		outcome.Err = fetchErr
		return outcome
	}
	if outcome.Status == StatusSkipped {
		log.Info("skipped", zap.String("reason", outcome.Reason))
		return outcome
	}

	// An empty suggestion would wipe the repository's existing topics.
	if len(topics) == 0 {
		outcome.Status = StatusSkipped
		outcome.Reason = "no valid topics suggested"
		log.Info("skipped", zap.String("reason", outcome.Reason))
		return outcome
	}
	outcome.Topics = topics

	if dryRun {
		outcome.Status = StatusSkipped
		outcome.Reason = "dry run"
		log.Info("suggested topics", zap.Strings("topics", topics))
		return outcome
	}

	if err := p.Publisher.ReplaceTopics(ctx, repo, topics); err != nil {
		outcome.Stage = StagePublish
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}
	outcome.Status = StatusPublished
	return outcome
}

type Status string

const (
	StatusPublished Status = "published"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Outcome is what happened to a single repository.
type Outcome struct {
	Repo   string
	Status Status
	Stage  Stage
	Reason string
	Topics models.TopicSuggestion
	Err    error
}

type Report struct {
	Total     int
	Published int
	Skipped   int
	Outcomes  []Outcome
}

func (r *Report) add(o Outcome) {
	switch o.Status {
	case StatusPublished:
		r.Published++
	case StatusSkipped:
		r.Skipped++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Failures returns the outcomes that ended in an error.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Log writes a one-line summary followed by one line per failure.
func (r *Report) Log(logger *zap.Logger) {
	failures := r.Failures()
	logger.Info("run complete",
		zap.Int("repositories", r.Total),
		zap.Int("published", r.Published),
		zap.Int("skipped", r.Skipped),
		zap.Int("failed", len(failures)),
	)
	for _, f := range failures {
		logger.Warn("failed repository",
			zap.String("repository", f.Repo),
			zap.String("stage", string(f.Stage)),
			zap.Error(f.Err),
		)
	}
}
