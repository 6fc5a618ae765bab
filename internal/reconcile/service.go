// Package reconcile orchestrates the return computation engine against the
// HMRC client: which periods exist (HMRC is the source of truth), what the
// ledger says should be filed for them, and the submission itself.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/vatbridge-dev/vatbridge/internal/audit"
	"github.com/vatbridge-dev/vatbridge/internal/model"
	"github.com/vatbridge-dev/vatbridge/internal/vat"
)

// NoObligationError reports a due date that matches no remote obligation.
// A reportable "nothing to show", not a crash.
type NoObligationError struct {
	Due time.Time
}

func (e *NoObligationError) Error() string {
	return fmt.Sprintf("due date %s does not match any obligation", e.Due.Format("2006-01-02"))
}

// Client is the slice of the HMRC API the service needs.
type Client interface {
	Obligations(ctx context.Context, from, to time.Time) ([]model.Obligation, error)
	OpenObligations(ctx context.Context) ([]model.Obligation, error)
	Liabilities(ctx context.Context, from, to time.Time) ([]model.Liability, error)
	Payments(ctx context.Context, from, to time.Time) ([]model.Payment, error)
	GetReturn(ctx context.Context, periodKey string) (model.Return, error)
	SubmitReturn(ctx context.Context, rtn model.Return) (model.SubmissionAck, error)
}

// BillPoster is implemented by an external collaborator that records the
// filed return as a balancing ledger transaction. The service only hands
// over the computed figures; it never writes to the ledger itself.
type BillPoster interface {
	PostBill(ctx context.Context, rtn model.Return, due time.Time) error
}

// Service answers "what should I submit", "what have I already submitted"
// and "what do I owe" for one taxpayer.
type Service struct {
	client   Client
	mapper   *vat.Mapper
	vrn      string
	auditDir string // empty disables the submission log
	log      *slog.Logger
	now      func() time.Time
}

// NewService builds a reconciliation service. auditDir is where accepted
// filings are recorded; pass "" to disable.
func NewService(client Client, mapper *vat.Mapper, vrn, auditDir string, log *slog.Logger) *Service {
	return &Service{
		client:   client,
		mapper:   mapper,
		vrn:      vrn,
		auditDir: auditDir,
		log:      log,
		now:      time.Now,
	}
}

// defaultWindow is the trailing range searched when the caller gives none.
const defaultWindow = 2 * 356 * 24 * time.Hour

// Obligations returns filing periods in [from, to]; zero times select the
// trailing two years.
func (s *Service) Obligations(ctx context.Context, from, to time.Time) ([]model.Obligation, error) {
	if to.IsZero() {
		to = s.now().UTC().Truncate(24 * time.Hour)
	}
	if from.IsZero() {
		from = to.Add(-defaultWindow)
	}
	return s.client.Obligations(ctx, from, to)
}

// OpenObligations returns periods still awaiting a return.
func (s *Service) OpenObligations(ctx context.Context) ([]model.Obligation, error) {
	return s.client.OpenObligations(ctx)
}

// ObligationDue locates the open obligation with exactly the given due
// date.
func (s *Service) ObligationDue(ctx context.Context, due time.Time) (model.Obligation, error) {
	obs, err := s.client.OpenObligations(ctx)
	if err != nil {
		return model.Obligation{}, err
	}
	return matchDue(obs, due)
}

// obligationDueInRange locates an obligation (any status) by due date
// within a window.
func (s *Service) obligationDueInRange(ctx context.Context, due, from, to time.Time) (model.Obligation, error) {
	obs, err := s.Obligations(ctx, from, to)
	if err != nil {
		return model.Obligation{}, err
	}
	return matchDue(obs, due)
}

func matchDue(obs []model.Obligation, due time.Time) (model.Obligation, error) {
	for _, o := range obs {
		if o.Due.Equal(due) {
			return o, nil
		}
	}
	return model.Obligation{}, &NoObligationError{Due: due}
}

// ComputeDue derives the nine box figures from the ledger for the open
// obligation with the given due date. With detail true each box carries its
// contributing splits.
func (s *Service) ComputeDue(ctx context.Context, due time.Time, detail bool) (*vat.Computation, error) {
	obl, err := s.ObligationDue(ctx, due)
	if err != nil {
		return nil, err
	}
	return s.mapper.ComputeReturn(ctx, obl.Start, obl.End, obl.Due, detail)
}

// Submit computes the return for the obligation due on the given date,
// finalises it, and files it. The acknowledgement is recorded in the audit
// log; a failed submission records nothing, so a retry can never be
// mistaken for a second filing.
func (s *Service) Submit(ctx context.Context, due time.Time) (model.Return, model.SubmissionAck, error) {
	obl, err := s.ObligationDue(ctx, due)
	if err != nil {
		return model.Return{}, model.SubmissionAck{}, err
	}

	comp, err := s.mapper.ComputeReturn(ctx, obl.Start, obl.End, obl.Due, false)
	if err != nil {
		return model.Return{}, model.SubmissionAck{}, err
	}
	rtn := comp.Return(obl.PeriodKey)

	ack, err := s.client.SubmitReturn(ctx, rtn)
	if err != nil {
		return rtn, model.SubmissionAck{}, err
	}

	if s.auditDir != "" {
		entry := audit.Entry{
			Timestamp:        s.now(),
			VRN:              s.vrn,
			DueDate:          due,
			PeriodKey:        rtn.PeriodKey,
			NetVATDue:        rtn.Value(model.Box5),
			FormBundleNumber: ack.FormBundleNumber,
			ChargeRefNumber:  ack.ChargeRefNumber,
		}
		if err := audit.Append(s.auditDir, []audit.Entry{entry}); err != nil {
			// The filing succeeded; a log failure must not look like a
			// submission failure.
			s.log.Warn("recording submission", "error", err)
		}
	}
	return rtn, ack, nil
}

// FiledReturn fetches the previously submitted return for the obligation
// with the given due date inside [from, to].
func (s *Service) FiledReturn(ctx context.Context, due, from, to time.Time) (model.Return, error) {
	obl, err := s.obligationDueInRange(ctx, due, from, to)
	if err != nil {
		return model.Return{}, err
	}
	rtn, err := s.client.GetReturn(ctx, obl.PeriodKey)
	if err != nil {
		return model.Return{}, err
	}
	rtn.DueDate = obl.Due
	return rtn, nil
}

// Liabilities returns what HMRC records as owed, filtered client-side to
// periods overlapping [from, to].
func (s *Service) Liabilities(ctx context.Context, from, to time.Time) ([]model.Liability, error) {
	all, err := s.client.Liabilities(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, l := range all {
		if l.InRange(from, to) {
			out = append(out, l)
		}
	}
	return out, nil
}

// Payments returns what HMRC records as received inside [from, to].
func (s *Service) Payments(ctx context.Context, from, to time.Time) ([]model.Payment, error) {
	all, err := s.client.Payments(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.InRange(from, to) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Filings returns the local audit trail of accepted submissions.
func (s *Service) Filings() ([]audit.Entry, error) {
	if s.auditDir == "" {
		return nil, nil
	}
	return audit.Read(s.auditDir)
}

// MarshalComputation renders a computation as indented JSON for --json
// output.
func MarshalComputation(c *vat.Computation) ([]byte, error) {
	type box struct {
		Box         int    `json:"box"`
		Field       string `json:"field"`
		Description string `json:"description"`
		Total       string `json:"total"`
	}
	out := struct {
		Start string `json:"start"`
		End   string `json:"end"`
		Due   string `json:"due"`
		Boxes []box  `json:"boxes"`
	}{
		Start: c.Start.Format("2006-01-02"),
		End:   c.End.Format("2006-01-02"),
		Due:   c.DueDate.Format("2006-01-02"),
	}
	for _, b := range model.Boxes {
		out.Boxes = append(out.Boxes, box{
			Box:         int(b),
			Field:       b.FieldName(),
			Description: b.Description(),
			Total:       c.Total(b).StringFixed(2),
		})
	}
	return json.MarshalIndent(out, "", "    ")
}
