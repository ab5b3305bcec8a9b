// pkg/schema/events.go
package schema

type Symbology string

const (
	SymbologyCode39 Symbology = "CODE39"
	SymbologyQRCode Symbology = "QRCODE"
	SymbologyOther  Symbology = "OTHER"
)

type OutcomeKind string

const (
	OutcomeBadScan            OutcomeKind = "bad_scan"
	OutcomeBarcodeScanned     OutcomeKind = "barcode_scanned"
	OutcomeSuccess            OutcomeKind = "success"
	OutcomeFailureNoPriorScan OutcomeKind = "failure_no_prior_scan"
	OutcomeFailureOverwritten OutcomeKind = "failure_overwritten"
	OutcomeFailureMismatch    OutcomeKind = "failure_mismatch"
)

type RunState string

const (
	RunStateStopped RunState = "STOPPED"
	RunStateRunning RunState = "RUNNING"
)

type OutcomeEvent struct {
	ID             string      `json:"id"`
	Kind           OutcomeKind `json:"kind"`
	Label          string      `json:"label"`
	SourceAddress  string      `json:"source_address"`
	Symbology      Symbology   `json:"symbology"`
	RawPayload     string      `json:"raw_payload"`
	Barcode        string      `json:"barcode"`
	PendingBarcode string      `json:"pending_barcode,omitempty"`
	HappenedAt     int64       `json:"happened_at"`
}

type RunStateEvent struct {
	State      RunState `json:"state"`
	IP         string   `json:"ip,omitempty"`
	Port       int      `json:"port,omitempty"`
	LogFile    string   `json:"log_file,omitempty"`
	HappenedAt int64    `json:"happened_at"`
}

type AuditRecord struct {
	ID            string `json:"id"`
	SourceAddress string `json:"source_address"`
	Message       string `json:"message"`
	LoggedAt      string `json:"logged_at"`
	Status        string `json:"status"`
}
