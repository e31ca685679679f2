package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/messaging/events"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

// DispatchService orchestrates outbound sends: persist-then-transmit
// with a client-side correlation id. Send returns as soon as the
// pending record is stored and the transmit call is issued; all status
// updates arrive later through the DeliveryTracker.
type DispatchService struct {
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
	contacts    repository.ContactRepository
	settings    repository.SettingsRepository
	aggregator  *ThreadAggregator
	tracker     *DeliveryTracker
	transmitter Transmitter
	bus         *events.Bus
	logger      *slog.Logger
}

// NewDispatchService creates a DispatchService.
func NewDispatchService(
	messages repository.MessageRepository,
	attachments repository.AttachmentRepository,
	contacts repository.ContactRepository,
	settings repository.SettingsRepository,
	aggregator *ThreadAggregator,
	tracker *DeliveryTracker,
	transmitter Transmitter,
	bus *events.Bus,
	logger *slog.Logger,
) *DispatchService {
	return &DispatchService{
		messages:    messages,
		attachments: attachments,
		contacts:    contacts,
		settings:    settings,
		aggregator:  aggregator,
		tracker:     tracker,
		transmitter: transmitter,
		bus:         bus,
		logger:      logger.With("service", "dispatch"),
	}
}

// SendSMSRequest is a single-recipient text send.
type SendSMSRequest struct {
	Address        string
	Body           string
	SimSlot        *int
	DeliveryReport *bool
}

// AttachmentInput describes one MMS media part at send time.
type AttachmentInput struct {
	ContentType   string
	Name          *string
	Size          int64
	Path          string
	ThumbnailPath *string
}

// SendMMSRequest is a media send to one or more recipients.
type SendMMSRequest struct {
	Addresses   []string
	Body        string
	Subject     *string
	Attachments []AttachmentInput
	SimSlot     *int
}

// SendSMS validates, persists a pending record, upserts the thread and
// hands the message to the native bridge, one transmit per segment. The
// returned id is the correlation key; callers must not block on it for
// delivery.
func (s *DispatchService) SendSMS(ctx context.Context, req SendSMSRequest) (string, error) {
	if strings.TrimSpace(req.Body) == "" {
		messagesDispatchedCounter.WithLabelValues("sms", "rejected").Inc()
		return "", fmt.Errorf("%w: empty body", domain.ErrValidation)
	}
	if strings.TrimSpace(req.Address) == "" {
		messagesDispatchedCounter.WithLabelValues("sms", "rejected").Inc()
		return "", fmt.Errorf("%w: missing destination address", domain.ErrValidation)
	}

	id := "sms_" + uuid.NewString()
	parts := segmentBody(req.Body)
	now := time.Now().UTC()

	msg := &domain.Message{
		ID:             id,
		ThreadID:       domain.ThreadIDForAddress(req.Address),
		Address:        req.Address,
		Body:           req.Body,
		Kind:           domain.MessageKindSMS,
		Box:            domain.MessageBoxSent,
		Read:           true,
		Date:           now,
		DeliveryStatus: domain.DeliveryStatusPending,
		SimSlot:        s.resolveSimSlot(ctx, req.SimSlot),
		Segments:       len(parts),
	}
	s.attachContactName(ctx, msg)

	if err := s.persistAndRecord(ctx, msg, nil); err != nil {
		messagesDispatchedCounter.WithLabelValues("sms", "persistence_error").Inc()
		return "", err
	}

	deliveryReport := s.resolveDeliveryReport(ctx, req.DeliveryReport)
	for i, part := range parts {
		treq := TransmitRequest{
			Address:        req.Address,
			Body:           part,
			SimSlot:        msg.SimSlot,
			CorrelationID:  id,
			Part:           i + 1,
			Parts:          len(parts),
			DeliveryReport: deliveryReport,
		}
		if err := s.transmitter.Transmit(ctx, treq); err != nil {
			return "", s.transmitFailed(ctx, "sms", id, err)
		}
	}

	messagesDispatchedCounter.WithLabelValues("sms", "accepted").Inc()
	s.logger.InfoContext(ctx, "sms dispatched",
		"message_id", id, "thread_id", msg.ThreadID, "segments", len(parts))
	return id, nil
}

// SendMMS is structurally identical to SendSMS; the body plus
// attachments ship as a single unit and group sends join addresses with
// a comma, threading on the first participant.
func (s *DispatchService) SendMMS(ctx context.Context, req SendMMSRequest) (string, error) {
	if strings.TrimSpace(req.Body) == "" && len(req.Attachments) == 0 {
		messagesDispatchedCounter.WithLabelValues("mms", "rejected").Inc()
		return "", fmt.Errorf("%w: empty body and no attachments", domain.ErrValidation)
	}
	if len(req.Addresses) == 0 || strings.TrimSpace(req.Addresses[0]) == "" {
		messagesDispatchedCounter.WithLabelValues("mms", "rejected").Inc()
		return "", fmt.Errorf("%w: missing destination address", domain.ErrValidation)
	}

	id := "mms_" + uuid.NewString()
	address := strings.Join(req.Addresses, ",")
	now := time.Now().UTC()

	msg := &domain.Message{
		ID:              id,
		ThreadID:        domain.ThreadIDForAddress(address),
		Address:         address,
		Body:            req.Body,
		Subject:         req.Subject,
		Kind:            domain.MessageKindMMS,
		Box:             domain.MessageBoxSent,
		Read:            true,
		Date:            now,
		DeliveryStatus:  domain.DeliveryStatusPending,
		SimSlot:         s.resolveSimSlot(ctx, req.SimSlot),
		AttachmentCount: len(req.Attachments),
		Segments:        1,
	}
	s.attachContactName(ctx, msg)

	if err := s.persistAndRecord(ctx, msg, req.Attachments); err != nil {
		messagesDispatchedCounter.WithLabelValues("mms", "persistence_error").Inc()
		return "", err
	}

	treq := TransmitRequest{
		Address:        address,
		Body:           req.Body,
		SimSlot:        msg.SimSlot,
		CorrelationID:  id,
		Part:           1,
		Parts:          1,
		DeliveryReport: s.resolveDeliveryReport(ctx, nil),
	}
	if err := s.transmitter.Transmit(ctx, treq); err != nil {
		return "", s.transmitFailed(ctx, "mms", id, err)
	}

	messagesDispatchedCounter.WithLabelValues("mms", "accepted").Inc()
	s.logger.InfoContext(ctx, "mms dispatched",
		"message_id", id, "thread_id", msg.ThreadID, "attachments", len(req.Attachments))
	return id, nil
}

// Retry re-sends a failed message as a brand-new send under a new id.
// The failed record keeps its id and terminal state for traceability.
func (s *DispatchService) Retry(ctx context.Context, messageID string) (string, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return "", err
	}
	if msg.DeliveryStatus != domain.DeliveryStatusFailed {
		return "", fmt.Errorf("%w: message %s is %s", domain.ErrNotRetryable, messageID, msg.DeliveryStatus)
	}

	if msg.Kind == domain.MessageKindSMS {
		simSlot := msg.SimSlot
		return s.SendSMS(ctx, SendSMSRequest{Address: msg.Address, Body: msg.Body, SimSlot: &simSlot})
	}

	atts, err := s.attachments.ListByMessage(ctx, msg.ID)
	if err != nil {
		return "", err
	}
	inputs := make([]AttachmentInput, 0, len(atts))
	for _, a := range atts {
		inputs = append(inputs, AttachmentInput{
			ContentType:   a.ContentType,
			Name:          a.Name,
			Size:          a.Size,
			Path:          a.Path,
			ThumbnailPath: a.ThumbnailPath,
		})
	}
	simSlot := msg.SimSlot
	return s.SendMMS(ctx, SendMMSRequest{
		Addresses:   strings.Split(msg.Address, ","),
		Body:        msg.Body,
		Subject:     msg.Subject,
		Attachments: inputs,
		SimSlot:     &simSlot,
	})
}

// persistAndRecord stores the pending message (and any attachments),
// upserts the thread and echoes the message on the event bus. A
// persistence fault here rejects the send before any native call.
func (s *DispatchService) persistAndRecord(ctx context.Context, msg *domain.Message, atts []AttachmentInput) error {
	if err := s.messages.Upsert(ctx, msg); err != nil {
		return fmt.Errorf("persisting message %s: %w", msg.ID, err)
	}
	for _, in := range atts {
		att := &domain.Attachment{
			ID:            "att_" + uuid.NewString(),
			MessageID:     msg.ID,
			ContentType:   in.ContentType,
			Name:          in.Name,
			Size:          in.Size,
			Path:          in.Path,
			ThumbnailPath: in.ThumbnailPath,
		}
		if err := s.attachments.Upsert(ctx, att); err != nil {
			return fmt.Errorf("persisting attachment for %s: %w", msg.ID, err)
		}
	}
	if err := s.aggregator.RecordMessage(ctx, msg); err != nil {
		return err
	}
	s.bus.PublishMessage(domain.MessageEvent{Message: msg})
	return nil
}

// transmitFailed marks the message terminally failed and re-raises the
// transmit error to the caller.
func (s *DispatchService) transmitFailed(ctx context.Context, kind, id string, cause error) error {
	messagesDispatchedCounter.WithLabelValues(kind, "transmit_error").Inc()
	s.logger.ErrorContext(ctx, "native transmit rejected", "message_id", id, "error", cause)
	if err := s.tracker.Fail(ctx, id, cause); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark message failed after transmit error",
			"message_id", id, "error", err)
	}
	if errors.Is(cause, domain.ErrPermissionDenied) {
		return cause
	}
	return fmt.Errorf("%w: %v", domain.ErrTransmit, cause)
}

func (s *DispatchService) resolveSimSlot(ctx context.Context, requested *int) int {
	if requested != nil {
		return *requested
	}
	val, err := s.settings.Get(ctx, domain.SettingDefaultSimSlot)
	if err != nil {
		return 0
	}
	slot, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return slot
}

func (s *DispatchService) resolveDeliveryReport(ctx context.Context, requested *bool) bool {
	if requested != nil {
		return *requested
	}
	val, err := s.settings.Get(ctx, domain.SettingDeliveryReports)
	if err != nil {
		// Delivery reports default on; without them the delivered state
		// is unreachable.
		return true
	}
	return val == "true"
}

func (s *DispatchService) attachContactName(ctx context.Context, msg *domain.Message) {
	contact, err := s.contacts.FindByPhone(ctx, primaryAddress(msg.Address))
	if err != nil {
		if !errors.Is(err, domain.ErrContactNotFound) {
			s.logger.WarnContext(ctx, "contact lookup failed", "address", msg.Address, "error", err)
		}
		return
	}
	msg.ContactName = &contact.Name
}
