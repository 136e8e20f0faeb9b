package diag

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the snapshot format changes.
const snapshotSchemaVersion uint16 = 1

// Snapshot errors.
var (
	ErrSnapshotVersion = errors.New("unsupported snapshot version")
	ErrPayloadMismatch = errors.New("payload does not match diagnostic code")
)

// wireDiagnostic is the msgpack form of a Diagnostic. The payload is kept
// raw and decoded into the shape PayloadFor selects for the code.
type wireDiagnostic struct {
	Code     Code               `msgpack:"code"`
	Severity Severity           `msgpack:"severity"`
	Message  string             `msgpack:"message"`
	Location Location           `msgpack:"location"`
	Entity   string             `msgpack:"entity,omitempty"`
	Payload  msgpack.RawMessage `msgpack:"payload,omitempty"`
}

type wireSnapshot struct {
	Schema      uint16           `msgpack:"schema"`
	Diagnostics []wireDiagnostic `msgpack:"diagnostics"`
}

// WriteSnapshot encodes diagnostics so a later process can replay their fixes.
func WriteSnapshot(w io.Writer, ds []Diagnostic) error {
	snap := wireSnapshot{Schema: snapshotSchemaVersion, Diagnostics: make([]wireDiagnostic, len(ds))}

	for i, d := range ds {
		wd := wireDiagnostic{
			Code:     d.Code,
			Severity: d.Severity,
			Message:  d.Message,
			Location: d.Location,
			Entity:   d.Entity,
		}

		if d.Payload != nil {
			raw, err := msgpack.Marshal(d.Payload)
			if err != nil {
				return fmt.Errorf("encode %s payload: %w", d.Code, err)
			}

			wd.Payload = raw
		}

		snap.Diagnostics[i] = wd
	}

	return msgpack.NewEncoder(w).Encode(&snap)
}

// ReadSnapshot decodes diagnostics written by WriteSnapshot.
func ReadSnapshot(r io.Reader) ([]Diagnostic, error) {
	var snap wireSnapshot

	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return nil, err
	}

	if snap.Schema != snapshotSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Schema)
	}

	ds := make([]Diagnostic, len(snap.Diagnostics))

	for i, wd := range snap.Diagnostics {
		d := Diagnostic{
			Code:     wd.Code,
			Severity: wd.Severity,
			Message:  wd.Message,
			Location: wd.Location,
			Entity:   wd.Entity,
		}

		if len(wd.Payload) > 0 {
			payload := NewPayload(PayloadFor(wd.Code))
			if payload == nil {
				return nil, fmt.Errorf("%w: %s", ErrPayloadMismatch, wd.Code)
			}

			if err := msgpack.Unmarshal(wd.Payload, payload); err != nil {
				return nil, fmt.Errorf("decode %s payload: %w", wd.Code, err)
			}

			d.Payload = payload
		}

		ds[i] = d
	}

	return ds, nil
}

type jsonDiagnostic struct {
	Code        Code     `json:"code"`
	Severity    string   `json:"severity"`
	Category    string   `json:"category"`
	Message     string   `json:"message"`
	Location    Location `json:"location"`
	Entity      string   `json:"entity,omitempty"`
	PayloadKind string   `json:"payloadKind,omitempty"`
	Payload     Payload  `json:"payload,omitempty"`
}

// MarshalJSON renders the diagnostic with its payload kind spelled out.
func (d Diagnostic) MarshalJSON() ([]byte, error) {
	jd := jsonDiagnostic{
		Code:     d.Code,
		Severity: d.Severity.String(),
		Category: d.Code.Category().String(),
		Message:  d.Message,
		Location: d.Location,
		Entity:   d.Entity,
		Payload:  d.Payload,
	}

	if d.Payload != nil {
		jd.PayloadKind = d.Payload.Kind().String()
	}

	return json.Marshal(jd)
}
