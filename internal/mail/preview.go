package mail

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/telhawk-systems/telhawk-reporting/internal/logging"
)

// PreviewMailer writes the composed message to an .eml file in the same
// folder as the attachment instead of sending it. Nothing leaves the host.
type PreviewMailer struct {
	sender string
	logger *logging.Logger
}

func NewPreviewMailer(sender string, logger *logging.Logger) (*PreviewMailer, error) {
	if sender == "" {
		return nil, errors.New("mail sender is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PreviewMailer{sender: sender, logger: logger}, nil
}

func (m *PreviewMailer) Mode() string { return "preview" }

func (m *PreviewMailer) Deliver(ctx context.Context, msg Message) error {
	message, err := compose(m.sender, msg)
	if err != nil {
		return err
	}

	path := PreviewPath(msg.Attachment)
	if path == "" {
		return errors.New("preview requires an attachment path")
	}

	if err := message.WriteToFile(path); err != nil {
		return fmt.Errorf("failed to write mail preview: %w", err)
	}

	m.logger.InfoContext(ctx, "mail preview written",
		logging.Component("mail"),
		logging.Path(path),
		logging.Recipients(len(msg.To)+len(msg.CC)+len(msg.BCC)))
	return nil
}

// PreviewPath derives the .eml path for an artifact path. It keeps the
// preview in the artifact's period folder.
func PreviewPath(attachment string) string {
	if attachment == "" {
		return ""
	}
	return strings.TrimSuffix(attachment, filepath.Ext(attachment)) + ".eml"
}
