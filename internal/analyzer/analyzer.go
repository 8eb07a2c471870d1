// Package analyzer runs the full swing analysis pipeline: validation,
// encoding, prompt assembly, inference, parsing, and persistence.
package analyzer

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/swing-coach/internal/config"
	"github.com/sells-group/swing-coach/internal/imaging"
	"github.com/sells-group/swing-coach/internal/model"
	"github.com/sells-group/swing-coach/internal/parser"
	"github.com/sells-group/swing-coach/internal/prompt"
	"github.com/sells-group/swing-coach/internal/store"
	"github.com/sells-group/swing-coach/internal/trace"
	"github.com/sells-group/swing-coach/pkg/anthropic"
)

// Upload is one multipart image part, kept in the order the client sent it.
type Upload struct {
	Position    model.Position
	ContentType string
	Data        []byte
}

// Request is everything a single analysis run needs.
type Request struct {
	Uploads    []Upload
	Annotation model.Annotation
	RequestID  string
}

// Result is the analysis outcome returned to the client.
type Result struct {
	ID        string
	Analysis  string
	Rating    *int
	Summary   string
	CreatedAt time.Time
}

// Analyzer orchestrates one analysis request end to end.
type Analyzer struct {
	store     store.Store
	client    anthropic.Client
	validator *imaging.Validator
	recorder  *trace.Recorder
	cfg       *config.Config
}

// New wires an Analyzer from its collaborators.
func New(st store.Store, client anthropic.Client, validator *imaging.Validator, recorder *trace.Recorder, cfg *config.Config) *Analyzer {
	return &Analyzer{
		store:     st,
		client:    client,
		validator: validator,
		recorder:  recorder,
		cfg:       cfg,
	}
}

// Analyze runs the pipeline. Validation failures short-circuit before any
// inference call, and a failed insert leaves no partial rows behind. Every
// failure finalizes the trace session before the error propagates.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	sess := a.recorder.Start(req.RequestID)

	positions := make([]model.Position, len(req.Uploads))
	for i, up := range req.Uploads {
		positions[i] = up.Position
	}

	// Client-side steps, logged descriptively so a session reads as the
	// complete flow.
	sess.LogStep(1, trace.StepCompleted, map[string]any{
		"image_count": len(req.Uploads),
		"positions":   model.PositionsCSV(positions),
	}, "")
	sess.LogStep(2, trace.StepCompleted, nil, "")
	sess.LogStep(3, trace.StepCompleted, map[string]any{
		"has_annotations": !req.Annotation.Empty(),
	}, "")
	sess.LogStep(4, trace.StepCompleted, map[string]any{
		"image_count": len(req.Uploads),
	}, "")

	sess.LogStep(5, trace.StepStarted, nil, "")
	for _, up := range req.Uploads {
		if err := a.validator.Validate(up.ContentType, up.Data); err != nil {
			err = eris.Wrapf(err, "analyzer: validate %s image", up.Position)
			a.fail(sess, 5, err)
			return nil, err
		}
	}
	sess.LogStep(5, trace.StepCompleted, map[string]any{
		"image_count": len(req.Uploads),
	}, "")

	images := make(map[model.Position]model.EncodedImage, len(req.Uploads))
	for _, up := range req.Uploads {
		images[up.Position] = imaging.Encode(up.Data, up.ContentType)
	}
	sess.LogStep(6, trace.StepCompleted, map[string]any{
		"image_count": len(images),
	}, "")

	history := a.store.Recent(ctx, a.cfg.History.ContextDepth)
	sess.LogStep(7, trace.StepCompleted, map[string]any{
		"history_count": len(history),
	}, "")

	promptText := prompt.Build(positions, req.Annotation, history)
	blocks := prompt.ContentBlocks(positions, images, promptText)
	sess.LogStep(8, trace.StepCompleted, map[string]any{
		"prompt_length": len(promptText),
		"block_count":   len(blocks),
	}, "")

	sess.LogStep(9, trace.StepStarted, map[string]any{
		"model": a.cfg.Anthropic.Model,
	}, "")
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.cfg.Anthropic.Model,
		MaxTokens: a.cfg.Anthropic.AnalysisMaxTokens,
		Content:   blocks,
	})
	if err != nil {
		err = eris.Wrap(err, "analyzer: inference call")
		a.fail(sess, 9, err)
		return nil, err
	}
	resp.Usage.LogCost(a.cfg.Anthropic.Model, "analysis")
	sess.LogStep(9, trace.StepCompleted, map[string]any{
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
	}, "")
	sess.LogStep(10, trace.StepCompleted, map[string]any{
		"stop_reason": resp.StopReason,
	}, "")

	analysis := resp.FirstText()
	rating, summary := parser.Parse(analysis)
	details := map[string]any{"summary_length": len(summary)}
	if rating != nil {
		details["rating"] = *rating
	}
	sess.LogStep(11, trace.StepCompleted, details, "")

	rec, err := a.store.Create(ctx, model.NewRecord{
		Images:     images,
		Analysis:   analysis,
		Summary:    summary,
		Rating:     rating,
		Positions:  positions,
		Annotation: req.Annotation,
	})
	if err != nil {
		err = eris.Wrap(err, "analyzer: persist record")
		a.fail(sess, 12, err)
		return nil, err
	}
	sess.LogStep(12, trace.StepCompleted, map[string]any{
		"swing_id": rec.ID,
	}, "")

	sess.LogStep(13, trace.StepCompleted, nil, "")
	a.recorder.Finalize(sess, true)

	zap.L().Info("swing analyzed",
		zap.String("swing_id", rec.ID),
		zap.Int("images", len(images)),
		zap.Intp("rating", rating),
	)

	return &Result{
		ID:        rec.ID,
		Analysis:  analysis,
		Rating:    rating,
		Summary:   summary,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (a *Analyzer) fail(sess *trace.Session, step int, err error) {
	sess.LogStep(step, trace.StepFailed, nil, err.Error())
	a.recorder.Finalize(sess, false)
}
