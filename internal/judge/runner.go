package judge

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultParallelism = 4

// ErrUnsupportedLanguage is returned for languages without an execution id.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Executor runs a single program.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}

// Case is one stdin with its expected stdout.
type Case struct {
	Input    string
	Expected string
}

// Submission is a solution to grade.
type Submission struct {
	Language   string
	SourceCode string
}

// Verdict summarizes a graded submission.
type Verdict struct {
	Passed      bool
	PassedCases int
	TotalCases  int
}

// Runner grades submissions by running every case through an Executor.
type Runner struct {
	exec     Executor
	parallel int
	logger   zerolog.Logger
}

func NewRunner(exec Executor, parallel int, logger zerolog.Logger) *Runner {
	if parallel <= 0 {
		parallel = defaultParallelism
	}
	return &Runner{
		exec:     exec,
		parallel: parallel,
		logger:   logger.With().Str("component", "judge_runner").Logger(),
	}
}

// Evaluate runs all cases concurrently. Any execution failure aborts the
// evaluation and is returned; a wrong answer is not an error.
func (r *Runner) Evaluate(ctx context.Context, sub Submission, cases []Case) (Verdict, error) {
	langID, ok := LanguageID(sub.Language)
	if !ok {
		return Verdict{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, sub.Language)
	}
	if len(cases) == 0 {
		return Verdict{}, errors.New("no test cases to evaluate")
	}

	passed := make([]bool, len(cases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i, tc := range cases {
		g.Go(func() error {
			res, err := r.exec.Execute(gctx, ExecutionRequest{
				SourceCode: sub.SourceCode,
				LanguageID: langID,
				Stdin:      tc.Input,
			})
			if err != nil {
				return fmt.Errorf("case %d: %w", i, err)
			}
			passed[i] = OutputsMatch(res.Stdout, tc.Expected)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Warn().Err(err).Str("language", sub.Language).Msg("evaluation aborted")
		return Verdict{}, err
	}

	v := Verdict{TotalCases: len(cases)}
	for _, ok := range passed {
		if ok {
			v.PassedCases++
		}
	}
	v.Passed = v.PassedCases == v.TotalCases
	return v, nil
}
