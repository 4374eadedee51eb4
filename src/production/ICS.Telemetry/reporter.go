package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logger "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Logger"
	icsmodels "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Models"
)

const publishTimeout = 5 * time.Second

// Reporter turns terminal callbacks into telemetry events. Failures are
// logged and swallowed; terminals always get their OK.
type Reporter struct {
	publisher Publisher
	prefix    string
	logger    *logger.Logger
}

func NewReporter(publisher Publisher, prefix string, log *logger.Logger) *Reporter {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Reporter{
		publisher: publisher,
		prefix:    prefix,
		logger:    log.WithComponent("telemetry"),
	}
}

// ErrInvalidTopic is returned for a serial that cannot be used as a single
// MQTT topic level
var ErrInvalidTopic = errors.New("invalid telemetry topic")

// AckTopic is where command acknowledgements for serial are published
func AckTopic(prefix, serial string) (string, error) {
	return serialTopic(prefix, serial, "ack")
}

// UploadTopic is where data uploads for serial are published
func UploadTopic(prefix, serial string) (string, error) {
	return serialTopic(prefix, serial, "upload")
}

// serialTopic rejects serials that would change the topic structure: level
// separators, wildcards and the NUL character.
func serialTopic(prefix, serial, kind string) (string, error) {
	if serial == "" || strings.ContainsAny(serial, "/+#\x00") {
		return "", fmt.Errorf("%w: serial %q", ErrInvalidTopic, serial)
	}
	return fmt.Sprintf("%s/%s/%s", prefix, serial, kind), nil
}

func (r *Reporter) Ack(ctx context.Context, event icsmodels.AckEvent) {
	topic, err := AckTopic(r.prefix, event.Serial)
	if err != nil {
		r.logger.WithError(err).Warn("Acknowledgment not forwarded")
		return
	}
	r.publish(ctx, topic, event)
}

func (r *Reporter) Upload(ctx context.Context, event icsmodels.UploadEvent) {
	topic, err := UploadTopic(r.prefix, event.Serial)
	if err != nil {
		r.logger.WithError(err).Warn("Upload not forwarded")
		return
	}
	r.publish(ctx, topic, event)
}

func (r *Reporter) publish(ctx context.Context, topic string, payload interface{}) {
	if _, ok := r.publisher.(NopPublisher); ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := r.publisher.Publish(ctx, topic, payload); err != nil {
		r.logger.Logger.Warn().Err(err).Str("topic", topic).Msg("Failed to publish telemetry event")
	}
}
