// Package handler exposes the issuance workflow as the gRPC IssuanceService.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	auditdomain "session-issuance-console/internal/audit/domain"
	"session-issuance-console/internal/country"
	"session-issuance-console/internal/issuance/domain"
	"session-issuance-console/internal/issuance/service"
)

// ErrorDomain is the ErrorInfo domain of issuance errors.
const ErrorDomain = "session-issuance-console"

const auditTrailLimit = 20

// Controller is the issuance workflow driven by the handler.
type Controller interface {
	BeginIssuance(ctx context.Context, phone string) (*service.Result, error)
	RequestOtp(ctx context.Context, handle string) (*service.Result, error)
	SubmitOtp(ctx context.Context, handle, code string) (*service.Result, error)
	SubmitTwoFactor(ctx context.Context, handle, secret string) (*service.Result, error)
	RetryFinalize(ctx context.Context, handle string) (*service.Result, error)
	Abandon(ctx context.Context, handle string) (*service.Result, error)
	Get(handle string) (domain.Snapshot, error)
}

// CatalogRefresher reloads the country catalog.
type CatalogRefresher interface {
	Refresh(ctx context.Context) (country.LoadReport, error)
}

// AuditTrail lists the audited RPCs of one issuance session, newest first.
type AuditTrail interface {
	ListByHandle(ctx context.Context, handle string, limit int32) ([]*auditdomain.AuditLog, error)
}

// Server implements IssuanceServiceServer.
type Server struct {
	ctrl    Controller
	catalog CatalogRefresher
	trail   AuditTrail
}

// NewServer returns a Server. catalog may be nil, in which case RefreshCatalog returns Unimplemented.
func NewServer(ctrl Controller, catalog CatalogRefresher) *Server {
	return &Server{ctrl: ctrl, catalog: catalog}
}

// WithAuditTrail makes GetIssuance include the session's audit trail.
func (s *Server) WithAuditTrail(trail AuditTrail) *Server {
	s.trail = trail
	return s
}

// BeginIssuance starts a session for phone_number.
func (s *Server) BeginIssuance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.ctrl.BeginIssuance(ctx, field(req, "phone_number"))
	return respond(res, err)
}

// RequestOtp dispatches the OTP for handle.
func (s *Server) RequestOtp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	handle, err := requireHandle(req)
	if err != nil {
		return nil, err
	}
	res, err := s.ctrl.RequestOtp(ctx, handle)
	return respond(res, err)
}

// SubmitOtp verifies code for handle.
func (s *Server) SubmitOtp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	handle, err := requireHandle(req)
	if err != nil {
		return nil, err
	}
	res, err := s.ctrl.SubmitOtp(ctx, handle, field(req, "code"))
	return respond(res, err)
}

// SubmitTwoFactor verifies the 2FA secret for handle.
func (s *Server) SubmitTwoFactor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	handle, err := requireHandle(req)
	if err != nil {
		return nil, err
	}
	res, err := s.ctrl.SubmitTwoFactor(ctx, handle, rawField(req, "secret"))
	return respond(res, err)
}

// RetryFinalize retries the inventory create for handle.
func (s *Server) RetryFinalize(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	handle, err := requireHandle(req)
	if err != nil {
		return nil, err
	}
	res, err := s.ctrl.RetryFinalize(ctx, handle)
	return respond(res, err)
}

// AbandonIssuance aborts handle.
func (s *Server) AbandonIssuance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	handle, err := requireHandle(req)
	if err != nil {
		return nil, err
	}
	res, err := s.ctrl.Abandon(ctx, handle)
	return respond(res, err)
}

// GetIssuance returns the state of handle.
func (s *Server) GetIssuance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	handle, err := requireHandle(req)
	if err != nil {
		return nil, err
	}
	snap, err := s.ctrl.Get(handle)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := respond(&service.Result{Session: snap}, nil)
	if err != nil || s.trail == nil {
		return out, err
	}
	logs, err := s.trail.ListByHandle(ctx, handle, auditTrailLimit)
	if err != nil {
		slog.Warn("audit trail unavailable", "component", "issuance.handler", "handle", handle, "error", err)
		return out, nil
	}
	trail := make([]any, 0, len(logs))
	for _, l := range logs {
		trail = append(trail, map[string]any{
			"action":     l.Action,
			"ip":         l.IP,
			"created_at": l.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	v, err := structpb.NewValue(trail)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out.Fields["audit"] = v
	return out, nil
}

// RefreshCatalog reloads the country catalog and returns its load report.
func (s *Server) RefreshCatalog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.catalog == nil {
		return nil, status.Error(codes.Unimplemented, "catalog refresh not configured")
	}
	report, err := s.catalog.Refresh(ctx)
	if err != nil {
		slog.Warn("catalog refresh failed", "component", "issuance.handler", "error", err)
		return nil, status.Error(codes.Unavailable, "Failed to load countries")
	}
	conflicts := make([]any, 0, len(report.Conflicts))
	for _, c := range report.Conflicts {
		conflicts = append(conflicts, map[string]any{"prefix": c.Prefix, "kept": c.Kept, "dropped": c.Dropped})
	}
	ambiguous := make([]any, 0, len(report.Ambiguous))
	for _, a := range report.Ambiguous {
		records := make([]any, 0, len(a.Records))
		for _, id := range a.Records {
			records = append(records, id)
		}
		ambiguous = append(ambiguous, map[string]any{"codes": stringList(a.Codes), "records": records})
	}
	out, err := structpb.NewStruct(map[string]any{
		"clean":     report.Clean(),
		"ambiguous": ambiguous,
		"unbound":   stringList(report.Unbound),
		"unaliased": stringList(report.Unaliased),
		"conflicts": conflicts,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func respond(res *service.Result, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	snap := res.Session
	fields := map[string]any{
		"handle":              snap.Handle,
		"phone_number":        snap.PhoneNumber,
		"session_id":          snap.SessionID,
		"stage":               snap.Stage.String(),
		"requires_two_factor": snap.RequiresTwoFactor,
		"finalize_pending":    snap.FinalizePending,
	}
	if acc := res.Account; acc != nil {
		fields["account"] = map[string]any{
			"id":           acc.ID,
			"country_id":   acc.CountryID,
			"phone_number": acc.PhoneNumber,
			"sale_status":  string(acc.SaleStatus),
			"type":         acc.Type,
		}
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

var kindCodes = map[domain.Kind]codes.Code{
	domain.KindTransientNetwork:    codes.Unavailable,
	domain.KindInvalidInput:        codes.InvalidArgument,
	domain.KindServiceRejection:    codes.FailedPrecondition,
	domain.KindUnresolvedCountry:   codes.FailedPrecondition,
	domain.KindPersistenceConflict: codes.AlreadyExists,
	domain.KindInvalidStage:        codes.FailedPrecondition,
	domain.KindBusy:                codes.Aborted,
	domain.KindNotFound:            codes.NotFound,
	domain.KindCredentialExpired:   codes.FailedPrecondition,
}

// toStatus converts an issuance error to a status carrying an ErrorInfo whose reason is the error kind.
// The status message is the operator-facing message.
func toStatus(err error) error {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		slog.Error("unclassified issuance error", "component", "issuance.handler", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	code, ok := kindCodes[derr.Kind]
	if !ok {
		code = codes.Internal
	}
	st := status.New(code, derr.OperatorMessage())
	withDetails, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   derr.Kind.String(),
		Domain:   ErrorDomain,
		Metadata: map[string]string{"operation": string(derr.Op)},
	})
	if detailErr != nil {
		return st.Err()
	}
	return withDetails.Err()
}

// ReasonOf returns the ErrorInfo reason attached to a status error, or "".
func ReasonOf(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.GetReason()
		}
	}
	return ""
}

func requireHandle(req *structpb.Struct) (string, error) {
	handle := field(req, "handle")
	if handle == "" {
		return "", status.Error(codes.InvalidArgument, "handle is required")
	}
	return handle, nil
}

// field returns the trimmed string value of key, or "".
func field(req *structpb.Struct, key string) string {
	return strings.TrimSpace(rawField(req, key))
}

func rawField(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func stringList(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}
