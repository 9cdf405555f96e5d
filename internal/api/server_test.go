package api

import (
	"errors"
	"testing"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chartbridge/internal/engine"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("mapErr returned non-status error %T: %v", err, err)
	}
	return se.GetStatus()
}

func TestMapErrStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		code string
		want int
	}{
		{"validation maps to 400", engine.CodeValidation, 400},
		{"not found maps to 404", engine.CodeNotFound, 404},
		{"engine unavailable maps to 502", engine.CodeEngineUnavailable, 502},
		{"asset unavailable maps to 502", engine.CodeAssetUnavailable, 502},
		{"parse failure maps to 500", engine.CodeParseFailure, 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := mapErr(&engine.CodedError{Code: tc.code, Message: "boom"})
			if got := statusOf(t, err); got != tc.want {
				t.Fatalf("mapErr(%s) status = %d; want %d", tc.code, got, tc.want)
			}
		})
	}
}

func TestMapErrPlainError(t *testing.T) {
	err := mapErr(errors.New("plain failure"))
	if got := statusOf(t, err); got != 500 {
		t.Fatalf("mapErr(plain) status = %d; want 500", got)
	}
}

func TestMapErrNil(t *testing.T) {
	if err := mapErr(nil); err != nil {
		t.Fatalf("mapErr(nil) = %v; want nil", err)
	}
}
