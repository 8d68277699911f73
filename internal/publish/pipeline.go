package publish

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/apkship/internal/build"
	"github.com/teemow/apkship/internal/instrumentation"
	"github.com/teemow/apkship/internal/logging"
)

// Pipeline runs the build and publishes its artifact.
type Pipeline struct {
	Runner    *build.Runner
	Publisher *Publisher
	Logger    logging.Logger
}

// Run starts the build with args and uploads the artifact once it is ready,
// while the build keeps running. Upload failures are logged and do not
// affect the result. Run returns after the build has exited and any upload
// has finished, with the build's exit code.
func (p *Pipeline) Run(ctx context.Context, args []string) (int, error) {
	logger := logging.OrDefault(p.Logger)

	ctx, span := instrumentation.StartSpan(ctx, "publish.run")
	defer span.End()

	b, err := p.Runner.Start(ctx, args)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return -1, err
	}

	var uploads sync.WaitGroup
	for artifact := range b.Ready() {
		uploads.Add(1)
		go func(a build.Artifact) {
			defer uploads.Done()
			if _, err := p.Publisher.Publish(ctx, a.Path); err != nil {
				logger.Error("upload failed",
					logging.Status(logging.StatusError),
					logging.Path(a.Path),
					logging.Err(err))
			}
		}(artifact)
	}

	code, err := b.Wait()
	uploads.Wait()

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrExitCode, code))
	if err != nil {
		instrumentation.SetSpanError(span, err)
	}
	return code, err
}
