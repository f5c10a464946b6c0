package interceptors

import (
	"context"
	"encoding/json"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"session-issuance-console/internal/audit"
	"session-issuance-console/internal/security"
)

type auditMetadata struct {
	StatusCode string `json:"status_code"`
	RequestID  string `json:"request_id,omitempty"`
}

// AuditUnary returns a unary server interceptor that records an audit log entry after each RPC.
// skipMethods is the set of full method names to not audit (e.g. health checks).
// The issuance handle and masked phone number are taken from the request or, when absent there,
// from the response. Codes, secrets and credentials are never recorded.
func AuditUnary(logger audit.AuditLogger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if logger == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		ar := audit.ParseFullMethod(info.FullMethod)
		in, _ := req.(*structpb.Struct)
		out, _ := resp.(*structpb.Struct)

		requestID, _ := GetRequestID(ctx)
		meta, _ := json.Marshal(auditMetadata{StatusCode: status.Code(err).String(), RequestID: requestID})

		phone := firstField("phone_number", in, out)
		masked := ""
		if phone != "" {
			masked = security.MaskPhone(phone)
		}
		logger.LogEvent(ctx, audit.Event{
			Handle:      firstField("handle", in, out),
			Action:      ar.Action,
			Resource:    ar.Resource,
			PhoneMasked: masked,
			Metadata:    string(meta),
		})
		return resp, err
	}
}

// firstField returns the first non-empty string value of key across structs.
func firstField(key string, structs ...*structpb.Struct) string {
	for _, s := range structs {
		if s == nil {
			continue
		}
		if v := strings.TrimSpace(s.GetFields()[key].GetStringValue()); v != "" {
			return v
		}
	}
	return ""
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "unknown".
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
