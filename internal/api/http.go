package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// NewHTTPHandler routes the history endpoints to svc:
//
//	GET /history/tags   tag totals
//	GET /history/ports  port/protocol totals
//
// Both accept the query parameters since, until (RFC 3339), flowlog and limit.
func NewHTTPHandler(svc HistoryServer) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/history/tags", historyHandler(svc.TagTotals)).Methods(http.MethodGet)
	r.HandleFunc("/history/ports", historyHandler(svc.PortProtocolTotals)).Methods(http.MethodGet)
	return r
}

func historyHandler(call func(context.Context, *structpb.Struct) (*structpb.Struct, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := requestFromQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp, err := call(r.Context(), req)
		if err != nil {
			code := http.StatusInternalServerError
			if status.Code(err) == codes.InvalidArgument {
				code = http.StatusBadRequest
			}
			http.Error(w, status.Convert(err).Message(), code)
			return
		}

		jsonBytes, err := protojson.Marshal(resp)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(jsonBytes)
	}
}

// requestFromQuery converts URL query parameters into a request message.
func requestFromQuery(r *http.Request) (*structpb.Struct, error) {
	params := r.URL.Query()
	fields := make(map[string]interface{})

	for param, field := range map[string]string{
		"since":   FieldSince,
		"until":   FieldUntil,
		"flowlog": FieldFlowLogFile,
	} {
		if v := params.Get(param); v != "" {
			fields[field] = v
		}
	}
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid limit '%s'", v)
		}
		fields[FieldLimit] = n
	}

	return structpb.NewStruct(fields)
}
