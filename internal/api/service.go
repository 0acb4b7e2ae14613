package api

import (
	"FlowTagger/internal/query"
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Request field names understood by FilterFromStruct.
const (
	FieldSince       = "since"
	FieldUntil       = "until"
	FieldFlowLogFile = "flow_log_file"
	FieldLimit       = "limit"
)

// Service answers history queries with google.protobuf.Struct messages. The
// response holds a single "rows" list.
type Service struct {
	querier query.Querier
	logger  *zap.Logger
}

// NewService creates a new history service.
func NewService(q query.Querier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{querier: q, logger: logger}
}

// TagTotals returns rows of {tag, count}.
func (s *Service) TagTotals(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := FilterFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Debug("Received TagTotals request", zap.Any("filter", f))

	totals, err := s.querier.TagTotals(ctx, f)
	if err != nil {
		s.logger.Error("Tag totals query failed", zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}

	rows := make([]interface{}, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, map[string]interface{}{"tag": t.Tag, "count": t.Count})
	}
	return rowsResponse(rows)
}

// PortProtocolTotals returns rows of {port, protocol, count}.
func (s *Service) PortProtocolTotals(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := FilterFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Debug("Received PortProtocolTotals request", zap.Any("filter", f))

	totals, err := s.querier.PortProtocolTotals(ctx, f)
	if err != nil {
		s.logger.Error("Port/protocol totals query failed", zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}

	rows := make([]interface{}, 0, len(totals))
	for _, p := range totals {
		rows = append(rows, map[string]interface{}{"port": p.Port, "protocol": p.Protocol, "count": p.Count})
	}
	return rowsResponse(rows)
}

func rowsResponse(rows []interface{}) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(map[string]interface{}{"rows": rows})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// FilterFromStruct reads a query filter from a request message. since and
// until are RFC 3339 strings, limit is a non-negative whole number. A nil
// request or missing field leaves that part of the filter unset.
func FilterFromStruct(req *structpb.Struct) (query.Filter, error) {
	var f query.Filter
	fields := req.GetFields()

	for name, dst := range map[string]*time.Time{FieldSince: &f.Since, FieldUntil: &f.Until} {
		v, ok := fields[name]
		if !ok {
			continue
		}
		t, err := time.Parse(time.RFC3339, v.GetStringValue())
		if err != nil {
			return query.Filter{}, fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = t
	}

	if v, ok := fields[FieldFlowLogFile]; ok {
		f.FlowLogFile = v.GetStringValue()
	}

	if v, ok := fields[FieldLimit]; ok {
		n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
		if !isNumber || n.NumberValue < 0 || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue > math.MaxInt32 {
			return query.Filter{}, fmt.Errorf("invalid %s: must be a non-negative whole number", FieldLimit)
		}
		f.Limit = int(n.NumberValue)
	}

	if !f.Since.IsZero() && !f.Until.IsZero() && f.Until.Before(f.Since) {
		return query.Filter{}, fmt.Errorf("%s is before %s", FieldUntil, FieldSince)
	}
	return f, nil
}
