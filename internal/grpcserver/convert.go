package grpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/equipfind/equipfind/internal/pkg/errors"
)

// ToStruct converts a JSON-serializable value into a Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// FromStruct decodes s into v. Unknown fields are rejected.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// toStatus maps an engine error to a gRPC status.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return status.Error(codes.Internal, "internal error")
	}

	code := codes.Internal
	switch appErr.Code {
	case apperrors.CodeValidation, apperrors.CodeInvalidRequest:
		code = codes.InvalidArgument
	case apperrors.CodeNotFound:
		code = codes.NotFound
	case apperrors.CodeRateLimited:
		code = codes.ResourceExhausted
	case apperrors.CodeTimeout:
		code = codes.DeadlineExceeded
	case apperrors.CodeUnavailable, apperrors.CodeCatalogError, apperrors.CodeStatsError:
		code = codes.Unavailable
	}
	return status.Error(code, appErr.Code+": "+appErr.Message)
}
