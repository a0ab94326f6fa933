package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/casegen/internal/logging"
)

const unknownStory = "Unknown"

// BatchProcessStories processes entries one at a time, pausing between
// stories. reports[i] always corresponds to entries[i]. An entry that
// failed to decode or validate yields a report carrying only its error. Once ctx is done the remaining
// entries are reported as failed without being processed.
func (g *Generator) BatchProcessStories(ctx context.Context, entries []BatchEntry) []Report {
	batchID := uuid.NewString()
	ctx, span := g.tracer.Start(ctx, "pipeline.batch",
		trace.WithAttributes(
			attribute.String("batch.id", batchID),
			attribute.Int("batch.size", len(entries)),
		),
	)
	defer span.End()

	reports := make([]Report, 0, len(entries))
	for i, entry := range entries {
		if i > 0 && g.batchPause > 0 {
			// Cancellation is picked up by the ctx check below.
			_ = g.sleep(ctx, g.batchPause)
		}

		if err := ctx.Err(); err != nil {
			reports = append(reports, failedEntry(entry, err))
			continue
		}

		err := entry.Err
		if err == nil {
			err = entry.Story.Validate()
		}
		if err != nil {
			g.logger.Error(ctx, "failed to process story",
				zap.Int("index", i),
				zap.Error(err),
			)
			reports = append(reports, failedEntry(entry, err))
			continue
		}

		storyCtx := logging.WithRunID(ctx, fmt.Sprintf("%s-%d", batchID, i))
		reports = append(reports, g.ProcessUserStory(storyCtx, entry.Story, entry.ParentKey))
	}

	g.logger.Info(ctx, "batch complete", zap.Int("stories", len(reports)))
	return reports
}

func failedEntry(entry BatchEntry, err error) Report {
	title := entry.Story.Title
	if title == "" {
		title = unknownStory
	}
	r := newReport(title)
	r.Errors = append(r.Errors, fmt.Sprintf("Failed to process story: %v", err))
	return r
}
