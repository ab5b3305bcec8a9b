// internal/scan/event.go
package scan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tendant/simple-scanmatch/pkg/schema"
)

const (
	// MinBarcodeLength is the shortest extracted barcode accepted as a real scan.
	MinBarcodeLength = 13

	qrWindowStart = 2
	qrWindowLen   = 15
)

var (
	ErrMalformedMessage   = errors.New("malformed scan message")
	ErrAmbiguousSymbology = errors.New("scan code names both CODE39 and QRCODE")
)

// Event is one decoded scanner message. It is never modified after Parse.
type Event struct {
	SourceAddress string
	Code          string
	Symbology     schema.Symbology
	RawPayload    string
	Barcode       string
}

// Parse decodes "<code>,<data>" as sent by a scan station.
//
// A code without "QRCODE" uses the data in full; a code without "CODE39" uses
// the QR window data[2:17]. A code with neither falls through to the QR
// window. A code with both has no defined barcode and is rejected.
func Parse(sourceAddress, message string) (Event, error) {
	fields := strings.Split(message, ",")
	if len(fields) < 2 {
		return Event{}, fmt.Errorf("%w: expected \"<code>,<data>\", got %q", ErrMalformedMessage, message)
	}
	code, data := fields[0], fields[1]

	hasQR := strings.Contains(code, string(schema.SymbologyQRCode))
	hasLinear := strings.Contains(code, string(schema.SymbologyCode39))
	if hasQR && hasLinear {
		return Event{}, fmt.Errorf("%w: %q", ErrAmbiguousSymbology, code)
	}

	var barcode string
	if !hasQR {
		barcode = data
	}
	if !hasLinear {
		barcode = qrWindow(data)
	}

	return Event{
		SourceAddress: sourceAddress,
		Code:          code,
		Symbology:     classify(hasLinear, hasQR),
		RawPayload:    data,
		Barcode:       barcode,
	}, nil
}

// Valid reports whether the extracted barcode is long enough to correlate.
func (e Event) Valid() bool {
	return len(e.Barcode) >= MinBarcodeLength
}

func classify(hasLinear, hasQR bool) schema.Symbology {
	switch {
	case hasLinear:
		return schema.SymbologyCode39
	case hasQR:
		return schema.SymbologyQRCode
	default:
		return schema.SymbologyOther
	}
}

// qrWindow clamps like a slice expression that tolerates short input.
func qrWindow(data string) string {
	if len(data) <= qrWindowStart {
		return ""
	}
	end := qrWindowStart + qrWindowLen
	if end > len(data) {
		end = len(data)
	}
	return data[qrWindowStart:end]
}
