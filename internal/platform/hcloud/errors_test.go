package hcloud

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	apiErr := func(code hcloud.ErrorCode) error {
		return fmt.Errorf("wrapped: %w", hcloud.Error{Code: code, Message: string(code)})
	}

	tests := []struct {
		name     string
		err      error
		locked   bool
		invalid  bool
		notFound bool
	}{
		{name: "nil", err: nil},
		{name: "plain error", err: errors.New("boom")},
		{name: "locked", err: apiErr(hcloud.ErrorCodeLocked), locked: true},
		{name: "conflict", err: apiErr(hcloud.ErrorCodeConflict), locked: true},
		{name: "rate limit", err: apiErr(hcloud.ErrorCodeRateLimitExceeded), locked: true},
		{name: "not found", err: apiErr(hcloud.ErrorCodeNotFound), invalid: true, notFound: true},
		{name: "invalid input", err: apiErr(hcloud.ErrorCodeInvalidInput), invalid: true},
		{name: "unauthorized", err: apiErr(hcloud.ErrorCodeUnauthorized), invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.locked, isResourceLocked(tt.err))
			assert.Equal(t, tt.invalid, isInvalidParameter(tt.err))
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
		})
	}
}
