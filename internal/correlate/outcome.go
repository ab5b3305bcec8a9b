// internal/correlate/outcome.go
package correlate

import (
	"time"

	"github.com/tendant/simple-scanmatch/pkg/schema"
)

// TimeLayout is the timestamp format written to the audit log.
const TimeLayout = "2006-01-02 15:04:05"

// Outcome is the classified result of one scan.
type Outcome struct {
	ID            string
	Kind          schema.OutcomeKind
	SourceAddress string
	Symbology     schema.Symbology
	RawPayload    string
	// Barcode is the barcode extracted from this scan.
	Barcode string
	// Pending is the barcode this scan was compared against or replaced, if any.
	Pending   string
	Timestamp time.Time
}

// Label is the human readable status written to the audit log and sent to
// the status observer.
func (o Outcome) Label() string {
	switch o.Kind {
	case schema.OutcomeBadScan:
		return "Bad Scan"
	case schema.OutcomeBarcodeScanned:
		return "Barcode Scanned"
	case schema.OutcomeSuccess:
		return "Success"
	case schema.OutcomeFailureNoPriorScan:
		return "Failure: Barcode not scanned and documented. QR code scanned."
	case schema.OutcomeFailureOverwritten:
		return "Failure: QR code not attached, process step skipped."
	case schema.OutcomeFailureMismatch:
		return "Failure: QR code and barcode do not match. QR Code: " + o.Barcode
	default:
		return string(o.Kind)
	}
}

// Notification renders the status message as "<label>,<raw payload>".
func (o Outcome) Notification() string {
	return o.Label() + "," + o.RawPayload
}

func (o Outcome) Entry() Entry {
	return Entry{
		ID:            o.ID,
		SourceAddress: o.SourceAddress,
		Message:       o.RawPayload,
		Timestamp:     o.Timestamp,
		Status:        o.Label(),
	}
}

func (o Outcome) Event() schema.OutcomeEvent {
	return schema.OutcomeEvent{
		ID:             o.ID,
		Kind:           o.Kind,
		Label:          o.Label(),
		SourceAddress:  o.SourceAddress,
		Symbology:      o.Symbology,
		RawPayload:     o.RawPayload,
		Barcode:        o.Barcode,
		PendingBarcode: o.Pending,
		HappenedAt:     o.Timestamp.Unix(),
	}
}

// Entry is one audit log row.
type Entry struct {
	ID            string
	SourceAddress string
	Message       string
	Timestamp     time.Time
	Status        string
}
