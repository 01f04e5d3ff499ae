package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rescp17/imageReceiver/pkg/transfer"
)

const (
	DefaultSubject = "imgrecv"

	HeaderSessionID = "Imgrecv-Session-Id"
	HeaderOutcome   = "Imgrecv-Outcome"
	HeaderDegraded  = "Imgrecv-Degraded"
)

// MsgPublisher is the part of *nats.Conn the publisher needs.
type MsgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSPublisher publishes every finalized image as two messages:
// <subject>.metadata with the JSON Metadata and <subject>.image with the raw
// bytes. Both carry the session ID and outcome as headers.
type NATSPublisher struct {
	conn       MsgPublisher
	subject    string
	maxPayload int64
}

// NewNATSPublisher publishes on subject through conn. Images larger than
// maxPayload are announced in metadata only; 0 means no limit.
func NewNATSPublisher(conn MsgPublisher, subject string, maxPayload int64) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{conn: conn, subject: subject, maxPayload: maxPayload}
}

// ConnectNATS dials url and logs connection state changes.
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("imagereceiver"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	slog.Info("Connected to NATS", "url", nc.ConnectedUrl())
	return nc, nil
}

// MetadataSubject is where JSON metadata is published.
func (p *NATSPublisher) MetadataSubject() string { return p.subject + ".metadata" }

// ImageSubject is where image bytes are published.
func (p *NATSPublisher) ImageSubject() string { return p.subject + ".image" }

// Publish sends result's metadata and, size permitting, its bytes.
func (p *NATSPublisher) Publish(result transfer.ReconstructionResult) error {
	meta, err := json.Marshal(NewMetadata(result))
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	header := nats.Header{}
	header.Set(HeaderSessionID, result.SessionID)
	header.Set(HeaderOutcome, result.Outcome.String())
	header.Set(HeaderDegraded, strconv.FormatBool(result.Degraded()))

	if err := p.conn.PublishMsg(&nats.Msg{Subject: p.MetadataSubject(), Header: header, Data: meta}); err != nil {
		return fmt.Errorf("failed to publish metadata: %w", err)
	}

	if len(result.Bytes) == 0 {
		return nil
	}
	if p.maxPayload > 0 && int64(len(result.Bytes)) > p.maxPayload {
		slog.Warn("Image exceeds NATS max payload, published metadata only",
			"session", result.SessionID,
			"size", len(result.Bytes),
			"maxPayload", p.maxPayload)
		return nil
	}

	imageHeader := nats.Header{}
	for k, v := range header {
		imageHeader[k] = v
	}
	imageHeader.Set("Content-Type", "application/octet-stream")
	if err := p.conn.PublishMsg(&nats.Msg{Subject: p.ImageSubject(), Header: imageHeader, Data: result.Bytes}); err != nil {
		return fmt.Errorf("failed to publish image: %w", err)
	}
	return nil
}

// OnImageReady implements receiver.ImageHandler.
func (p *NATSPublisher) OnImageReady(result transfer.ReconstructionResult) {
	if err := p.Publish(result); err != nil {
		slog.Error("Failed to publish image", "session", result.SessionID, "error", err)
		return
	}
	slog.Debug("Published image", "session", result.SessionID, "subject", p.subject)
}
