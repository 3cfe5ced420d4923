package services

import (
	"context"
	"encoding/json"

	"example.com/pacific/relief/internal/messaging"
	"example.com/pacific/relief/internal/models"
	"example.com/pacific/relief/internal/tracing"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FieldUpdateMessage is a request patch sent by field teams over Service Bus
type FieldUpdateMessage struct {
	RequestID string              `json:"request_id"`
	Patch     models.RequestPatch `json:"patch"`
}

// FieldUpdateProcessor applies field update messages to requests
type FieldUpdateProcessor struct {
	service *ReliefService
	tracer  tracing.Tracer
}

// NewFieldUpdateProcessor creates a new field update processor
func NewFieldUpdateProcessor(service *ReliefService, tracer tracing.Tracer) *FieldUpdateProcessor {
	if tracer == nil {
		tracer = tracing.Disabled()
	}
	return &FieldUpdateProcessor{service: service, tracer: tracer}
}

// ProcessMessage decodes and applies one field update. Malformed payloads
// and updates rejected by validation or integrity checks come back as
// permanent errors; anything else may succeed on redelivery.
func (p *FieldUpdateProcessor) ProcessMessage(ctx context.Context, msg *azservicebus.ReceivedMessage) error {
	ctx, txn := p.tracer.StartTransaction(ctx, "process-field-update")
	defer p.tracer.EndTransaction(txn)

	var update FieldUpdateMessage
	if err := json.Unmarshal(msg.Body, &update); err != nil {
		p.tracer.RecordError(ctx, err)
		return messaging.Permanent(errors.Wrap(err, "failed to decode field update"))
	}
	if update.RequestID == "" {
		return messaging.Permanent(errors.New("field update has no request_id"))
	}

	p.tracer.AddAttribute(ctx, "request_id", update.RequestID)

	request, err := p.service.UpdateRequest(ctx, update.RequestID, update.Patch)
	if err != nil {
		var (
			validationErr *ValidationError
			refErr        *ReferentialError
			notFoundErr   *NotFoundError
		)
		if errors.As(err, &validationErr) || errors.As(err, &refErr) || errors.As(err, &notFoundErr) {
			return messaging.Permanent(err)
		}
		return errors.Wrap(err, "failed to apply field update")
	}

	log.Info().
		Str("message_id", msg.MessageID).
		Str("request_id", request.ID).
		Str("status", string(request.Status)).
		Msg("Field update applied")
	return nil
}
