package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
	"github.com/mamadbah2/ppe-coverage/internal/service/reporting"
	client "github.com/mamadbah2/ppe-coverage/pkg/clients/whatsapp"
)

const dateLayout = "2006-01-02"

// Notifier pushes coverage digests to an operator.
type Notifier interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
	NotifyCoverage(ctx context.Context, report *reporting.Report) (bool, error)
}

// WhatsAppNotifier is the Cloud API backed Notifier.
type WhatsAppNotifier struct {
	client    client.Client
	recipient string
	logger    *zap.Logger
}

// NewWhatsAppNotifier wires a notifier that alerts the given recipient.
func NewWhatsAppNotifier(c client.Client, recipient string, logger *zap.Logger) *WhatsAppNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppNotifier{client: c, recipient: recipient, logger: logger}
}

// SendOutbound sends a free-form message.
func (n *WhatsAppNotifier) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	if req.To == "" {
		return errors.New("missing recipient")
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := n.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	return err
}

// NotifyCoverage sends the digest when the report has critical or unmapped
// regions. It reports whether a message was sent.
func (n *WhatsAppNotifier) NotifyCoverage(ctx context.Context, report *reporting.Report) (bool, error) {
	if report == nil || (len(criticalRegions(report)) == 0 && len(report.Unmapped()) == 0) {
		n.logger.Debug("coverage alert skipped: nothing to report")
		return false, nil
	}

	err := n.SendOutbound(ctx, models.OutboundMessageRequest{To: n.recipient, Message: FormatDigest(report)})
	if err != nil {
		return false, fmt.Errorf("send coverage alert: %w", err)
	}

	n.logger.Info("coverage alert sent",
		zap.Int("critical", len(criticalRegions(report))),
		zap.Int("unmapped", len(report.Unmapped())))
	return true, nil
}

// FormatDigest renders a short plain-text summary of the report.
func FormatDigest(report *reporting.Report) string {
	var b strings.Builder

	if !report.HasRequired {
		fmt.Fprintf(&b, "PPE stock (%s): %d available, no requirement data.",
			report.GeneratedAt.Format(dateLayout), report.KPIs.TotalQuantity)
	} else {
		fmt.Fprintf(&b, "PPE coverage (%s): mean %.1f%%, %d available of %d required.",
			report.GeneratedAt.Format(dateLayout), report.KPIs.MeanCoverage, report.KPIs.TotalQuantity, report.KPIs.TotalRequired)
	}

	var critical []string
	for _, region := range criticalRegions(report) {
		critical = append(critical, fmt.Sprintf("%s %.1f%% (short %d)", region.Region, region.CoveragePercent, region.Shortage))
	}
	if len(critical) > 0 {
		fmt.Fprintf(&b, "\nCritical (%d): %s.", len(critical), strings.Join(critical, "; "))
	}

	if unmapped := report.Unmapped(); len(unmapped) > 0 {
		fmt.Fprintf(&b, "\nNot on map: %s. Update the region name map.", strings.Join(unmapped, ", "))
	}

	return b.String()
}

// criticalRegions lists critical mapped regions. Without requirement data every
// region classifies as critical, so none are reported.
func criticalRegions(report *reporting.Report) []models.RegionSummary {
	if !report.HasRequired {
		return nil
	}
	var out []models.RegionSummary
	for _, region := range report.Regions {
		if region.Tier == models.TierCritical {
			out = append(out, region)
		}
	}
	return out
}
