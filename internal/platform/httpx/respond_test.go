package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type togglePayload struct {
	Role  string `json:"role"`
	Value *bool  `json:"value"`
}

func decode(body string) (togglePayload, error) {
	var out togglePayload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := DecodeJSON(httptest.NewRecorder(), req, &out)
	return out, err
}

func TestDecodeJSON(t *testing.T) {
	out, err := decode(`{"role":"teacher","value":true}`)
	require.NoError(t, err)
	assert.Equal(t, "teacher", out.Role)
	require.NotNil(t, out.Value)
	assert.True(t, *out.Value)

	for name, body := range map[string]string{
		"empty":    ``,
		"unknown":  `{"role":"teacher","extra":1}`,
		"trailing": `{"role":"teacher"}{"role":"parent"}`,
		"syntax":   `{"role":`,
		"oversize": `{"role":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
	} {
		_, err := decode(body)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		detail string
	}{
		{fmt.Errorf("%w: permission row", ErrNotFound), http.StatusNotFound, "resource not found: permission row"},
		{ErrConflict, http.StatusConflict, "conflict"},
		{ErrValidation, http.StatusBadRequest, "validation failed"},
		{ErrForbidden, http.StatusForbidden, "forbidden"},
		{ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{errors.New("pq: connection reset"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.status, rr.Code)
		assert.Equal(t, ProblemContentType, rr.Header().Get("Content-Type"))

		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
		assert.Equal(t, tc.status, problem.Status)
		assert.Equal(t, "about:blank", problem.Type)
		assert.Equal(t, tc.detail, problem.Detail)
	}
}
