// Package plan turns a validated batch into the payload posted to the job
// launcher.
package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/dgenies/batchdsl/pkgs/engine"
	"github.com/dgenies/batchdsl/pkgs/errors"
	"github.com/dgenies/batchdsl/pkgs/validator"
)

// PayloadType tags batch submissions for the launcher
const PayloadType = "batch"

// Payload is the submission body for a whole batch
type Payload struct {
	Type      string                    `json:"type" cbor:"type"`
	IDJob     string                    `json:"id_job" cbor:"id_job"`
	Email     string                    `json:"email" cbor:"email"`
	SessionID string                    `json:"s_id" cbor:"s_id"`
	NbJobs    int                       `json:"nb_jobs" cbor:"nb_jobs"`
	Jobs      []validator.NormalizedJob `json:"jobs" cbor:"jobs"`
}

// Request carries the fields that do not come from the batch file
type Request struct {
	IDJob     string
	Email     string
	SessionID string // generated when empty
}

// newSessionID is replaced in tests
var newSessionID = func() string {
	return uuid.New().String()
}

// Build creates the payload for res. A batch with error diagnostics is
// refused, as is a batch that kept no job.
func Build(res engine.Result, req Request) (*Payload, error) {
	if n := res.Errors(); n > 0 {
		return nil, errors.NewSubmissionError(
			fmt.Sprintf("batch has %d error(s), fix them before submitting", n), n)
	}
	if len(res.Jobs) == 0 {
		return nil, errors.NewSubmissionError("batch has no job to submit", 0)
	}
	id := strings.TrimSpace(req.IDJob)
	if id == "" {
		return nil, errors.New(errors.ErrSubmission, "a job id is required")
	}

	sid := req.SessionID
	if sid == "" {
		sid = newSessionID()
	}

	return &Payload{
		Type:      PayloadType,
		IDJob:     id,
		Email:     req.Email,
		SessionID: sid,
		NbJobs:    len(res.Jobs),
		Jobs:      res.Jobs,
	}, nil
}

// Write encodes the payload as indented JSON
func (p *Payload) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return errors.Wrap(errors.ErrEncode, "failed to encode submission payload", err)
	}
	return nil
}
