package sqldb

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitQuoted(t *testing.T) {
	tests := []struct {
		name       string
		msg        string
		wantBefore string
		wantQuoted string
		wantAfter  string
		wantOK     bool
	}{
		{
			name:       "mysql missing table",
			msg:        "Error 1146 (42S02): Table 'app.users' doesn't exist",
			wantBefore: "Error 1146 (42S02): Table ",
			wantQuoted: "app.users",
			wantAfter:  " doesn't exist",
			wantOK:     true,
		},
		{
			name:       "first fragment only",
			msg:        "Duplicate entry 'a@b.c' for key 'users.email'",
			wantBefore: "Duplicate entry ",
			wantQuoted: "a@b.c",
			wantAfter:  " for key 'users.email'",
			wantOK:     true,
		},
		{
			name:       "empty fragment",
			msg:        "near '': syntax error",
			wantBefore: "near ",
			wantQuoted: "",
			wantAfter:  ": syntax error",
			wantOK:     true,
		},
		{
			name:       "no fragment",
			msg:        "no such table: users",
			wantBefore: "no such table: users",
			wantOK:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, quoted, after, ok := SplitQuoted(tt.msg)
			assert.Equal(t, tt.wantBefore, before)
			assert.Equal(t, tt.wantQuoted, quoted)
			assert.Equal(t, tt.wantAfter, after)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestWrapDriverError(t *testing.T) {
	assert.NoError(t, WrapDriverError("execute", "SELECT 1", nil))

	cause := fmt.Errorf("constraint failed")
	err := WrapDriverError("execute", "INSERT", cause)

	var de *DriverError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, "execute", de.Op)
	assert.Equal(t, "INSERT", de.Query)
	assert.Equal(t, "constraint failed", de.Message())
	assert.Equal(t, "execute: constraint failed", err.Error())
	assert.True(t, errors.Is(err, cause))

	// already wrapped errors keep their first op
	again := WrapDriverError("fetch", "", err)
	assert.Same(t, err, again)
}
